package domain

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var allStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"pending to confirmed", OrderStatusPending, OrderStatusConfirmed, true},
		{"pending to cancelled", OrderStatusPending, OrderStatusCancelled, true},
		{"pending to shipped", OrderStatusPending, OrderStatusShipped, false},
		{"pending to delivered", OrderStatusPending, OrderStatusDelivered, false},
		{"confirmed to shipped", OrderStatusConfirmed, OrderStatusShipped, true},
		{"confirmed to cancelled", OrderStatusConfirmed, OrderStatusCancelled, true},
		{"confirmed back to pending", OrderStatusConfirmed, OrderStatusPending, false},
		{"shipped to delivered", OrderStatusShipped, OrderStatusDelivered, true},
		{"shipped to cancelled", OrderStatusShipped, OrderStatusCancelled, true},
		{"shipped back to confirmed", OrderStatusShipped, OrderStatusConfirmed, false},
		{"delivered is terminal", OrderStatusDelivered, OrderStatusCancelled, false},
		{"cancelled is terminal", OrderStatusCancelled, OrderStatusPending, false},
		{"self transition rejected", OrderStatusPending, OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// Terminal statuses admit no outgoing transition at all, no matter the
// target.
func TestProperty_TerminalStatusesAdmitNoTransition(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("no transition leaves a terminal status", prop.ForAll(
		func(fromRaw, toRaw string) bool {
			from := OrderStatus(fromRaw)
			to := OrderStatus(toRaw)
			if !from.IsTerminal() {
				return true
			}
			return !from.CanTransitionTo(to)
		},
		gen.OneConstOf("pending", "confirmed", "shipped", "delivered", "cancelled"),
		gen.OneConstOf("pending", "confirmed", "shipped", "delivered", "cancelled"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestParseOrderStatus(t *testing.T) {
	for _, status := range allStatuses {
		parsed, err := ParseOrderStatus(string(status))
		assert.NoError(t, err)
		assert.Equal(t, status, parsed)
	}

	_, err := ParseOrderStatus("returned")
	assert.Error(t, err)

	_, err = ParseOrderStatus("")
	assert.Error(t, err)
}

func TestReservesStock(t *testing.T) {
	assert.False(t, OrderStatusPending.ReservesStock())
	assert.True(t, OrderStatusConfirmed.ReservesStock())
	assert.True(t, OrderStatusShipped.ReservesStock())
	assert.False(t, OrderStatusDelivered.ReservesStock())
	assert.False(t, OrderStatusCancelled.ReservesStock())
}

func TestOrderCode(t *testing.T) {
	day := time.Date(2025, time.January, 14, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, "ORD-20250114-0007", OrderCode(day, 7))
	assert.Equal(t, "ORD-20250114-0001", OrderCode(day, 1))
	// Sequences past 9999 widen rather than wrap.
	assert.Equal(t, "ORD-20250114-10000", OrderCode(day, 10000))
}

func TestOrderItemSubtotal(t *testing.T) {
	item := OrderItem{
		Price:    decimal.RequireFromString("249.50"),
		Quantity: 3,
	}

	assert.True(t, item.Subtotal().Equal(decimal.RequireFromString("748.50")))
}
