// Package notification renders customer-facing order summaries and builds
// WhatsApp deep links for them. Everything here is pure: no network calls,
// no state. The caller decides whether and where the link is presented.
package notification

import (
	"fmt"
	"net/url"
	"strings"

	"spice-store/internal/domain"

	"github.com/shopspring/decimal"
)

// Store carries the storefront identity used in message bodies.
type Store struct {
	Name     string
	Currency string
	Contact  string // E.164 digits without "+", the wa.me addressee
}

// FormatAmount renders a decimal amount with the store currency symbol.
func (s Store) FormatAmount(amount decimal.Decimal) string {
	return s.Currency + amount.StringFixed(2)
}

// OrderSummary renders the full human-readable order summary used in the
// checkout notification message.
func OrderSummary(order *domain.Order, store Store) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New order %s at %s\n\n", order.Code, store.Name)
	fmt.Fprintf(&b, "Customer: %s\n", order.Customer.Name)
	fmt.Fprintf(&b, "Phone: %s\n", order.Customer.Phone)
	fmt.Fprintf(&b, "Address: %s\n\n", order.Customer.Address)

	b.WriteString("Items:\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s x%d @ %s = %s\n",
			item.Name, item.Quantity,
			store.FormatAmount(item.Price),
			store.FormatAmount(item.Subtotal()))
	}

	fmt.Fprintf(&b, "\nTotal: %s\n\n", store.FormatAmount(order.Total))
	b.WriteString(closingLine(order))

	return b.String()
}

// StatusMessage renders the short confirmation/cancellation text shown to
// the customer after an admin moves the order.
func StatusMessage(order *domain.Order, store Store) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Order %s (%s): ", order.Code, store.FormatAmount(order.Total))
	b.WriteString(closingLine(order))

	return b.String()
}

func closingLine(order *domain.Order) string {
	switch order.Status {
	case domain.OrderStatusPending:
		return "Your order has been received and is awaiting confirmation."
	case domain.OrderStatusConfirmed:
		return "Your order is confirmed and being prepared."
	case domain.OrderStatusShipped:
		return "Your order is on its way."
	case domain.OrderStatusDelivered:
		return "Your order has been delivered. Thank you for shopping with us!"
	case domain.OrderStatusCancelled:
		reason := order.CancelReason
		if reason == "" {
			reason = "Cancelled by admin"
		}
		return fmt.Sprintf("Your order has been cancelled. Reason: %s.", reason)
	default:
		return ""
	}
}

// ProductList renders a shareable price-list message for a set of products.
func ProductList(products []*domain.Product, store Store) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s price list:\n\n", store.Name)
	for _, p := range products {
		fmt.Fprintf(&b, "- %s: %s", p.Name, store.FormatAmount(p.EffectivePrice()))
		if p.DiscountPrice.Valid {
			fmt.Fprintf(&b, " (was %s)", store.FormatAmount(p.Price))
		}
		if p.Stock == 0 {
			b.WriteString(" [out of stock]")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// DeepLink builds a client-followable wa.me URL with the message body
// pre-filled. No send happens server-side.
func DeepLink(contact, message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", contact, url.QueryEscape(message))
}
