package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spice-store/internal/domain"
	"spice-store/internal/notification"
	"spice-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyOrder       = errors.New("order must contain at least one item")
	ErrAlreadyCancelled = errors.New("order is already cancelled")
)

// ItemError reports a problem with one requested line item, naming the
// offending product. Any item error fails the whole request; partial orders
// are never created.
type ItemError struct {
	ProductName string
	ProductID   uuid.UUID
	Reason      string
}

func (e *ItemError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID.String()
	}
	return fmt.Sprintf("%s: %s", name, e.Reason)
}

// TransitionError reports an illegal lifecycle move.
type TransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

// CreateOrderItem is one requested checkout line.
type CreateOrderItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderStats is the aggregated reporting payload for the stats endpoint.
type OrderStats struct {
	Period       string                    `json:"period"`
	TotalOrders  int                       `json:"total_orders"`
	TotalRevenue decimal.Decimal           `json:"total_revenue"`
	ByStatus     []repository.StatusCounts `json:"by_status"`
	DailyTrend   []repository.DailyPoint   `json:"daily_trend"`
}

// OrderService owns the order lifecycle: creation, the status state machine
// and its coupled stock mutations, and the read operations.
type OrderService interface {
	// Create validates the requested items against the catalog, snapshots
	// them into a pending order and returns the order together with a
	// notification deep link. Stock is not touched at creation.
	Create(ctx context.Context, customer domain.CustomerInfo, items []CreateOrderItem) (*domain.Order, string, error)

	// UpdateStatus moves an order along the lifecycle table. Confirmation
	// reserves stock; cancellation of a reserving order restores it. All
	// side effects are atomic with the status change.
	UpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus, reason string) (*domain.Order, string, error)

	// ForceCancel cancels an order from any non-cancelled status, including
	// shipped and delivered. Stock is restored only when the order
	// currently holds a reservation.
	ForceCancel(ctx context.Context, id uuid.UUID, reason string) (*domain.Order, string, error)

	// MarkNotified records that the order's WhatsApp message was actually
	// sent. Creation only issues the deep link; sending is acknowledged
	// separately.
	MarkNotified(ctx context.Context, id uuid.UUID) (*domain.Order, error)

	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByCode(ctx context.Context, code string) (*domain.Order, error)
	List(ctx context.Context, filter repository.OrderFilter, page, pageSize int, sortBy, sortOrder string) ([]*domain.Order, int, error)
	Stats(ctx context.Context, period string) (*OrderStats, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	store       notification.Store
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	store notification.Store,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		store:       store,
	}
}

// Create builds and persists a pending order.
func (s *orderService) Create(ctx context.Context, customer domain.CustomerInfo, items []CreateOrderItem) (*domain.Order, string, error) {
	if len(items) == 0 {
		return nil, "", ErrEmptyOrder
	}

	now := time.Now()
	order := &domain.Order{
		ID:        uuid.New(),
		Customer:  customer,
		Status:    domain.OrderStatusPending,
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, req := range items {
		product, err := s.productRepo.FindByID(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, "", &ItemError{ProductID: req.ProductID, Reason: "product not found"}
			}
			return nil, "", fmt.Errorf("failed to look up product: %w", err)
		}

		if !product.IsActive {
			return nil, "", &ItemError{ProductName: product.Name, ProductID: product.ID, Reason: "product is not available"}
		}
		if req.Quantity < 1 {
			return nil, "", &ItemError{ProductName: product.Name, ProductID: product.ID, Reason: "quantity must be at least 1"}
		}
		if req.Quantity > product.MaxOrderQty {
			return nil, "", &ItemError{
				ProductName: product.Name,
				ProductID:   product.ID,
				Reason:      fmt.Sprintf("quantity exceeds the limit of %d per order", product.MaxOrderQty),
			}
		}
		if req.Quantity > product.Stock {
			return nil, "", &ItemError{
				ProductName: product.Name,
				ProductID:   product.ID,
				Reason:      fmt.Sprintf("requested %d but only %d in stock", req.Quantity, product.Stock),
			}
		}

		item := domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.EffectivePrice(),
			Image:     product.FirstImage(),
			SKU:       product.SKU,
			Quantity:  req.Quantity,
		}
		order.Items = append(order.Items, item)
		order.Total = order.Total.Add(item.Subtotal())
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, "", fmt.Errorf("failed to create order: %w", err)
	}

	link := notification.DeepLink(s.store.Contact, notification.OrderSummary(order, s.store))
	return order, link, nil
}

// UpdateStatus applies one lifecycle transition.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus, reason string) (*domain.Order, string, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	from := order.Status
	if !from.CanTransitionTo(to) {
		return nil, "", &TransitionError{From: from, To: to}
	}

	updated, err := s.orderRepo.Transition(ctx, id, from, to, cancelReason(to, reason), s.stockDeltas(order, from, to))
	if err != nil {
		// A concurrent request won the compare-and-swap; report the move as
		// invalid rather than applying side effects twice.
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, "", &TransitionError{From: from, To: to}
		}
		return nil, "", err
	}

	return updated, notification.StatusMessage(updated, s.store), nil
}

// ForceCancel cancels from any non-cancelled status.
func (s *orderService) ForceCancel(ctx context.Context, id uuid.UUID, reason string) (*domain.Order, string, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	from := order.Status
	if from == domain.OrderStatusCancelled {
		return nil, "", ErrAlreadyCancelled
	}

	updated, err := s.orderRepo.Transition(ctx, id, from, domain.OrderStatusCancelled,
		cancelReason(domain.OrderStatusCancelled, reason),
		s.stockDeltas(order, from, domain.OrderStatusCancelled))
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, "", ErrAlreadyCancelled
		}
		return nil, "", err
	}

	return updated, notification.StatusMessage(updated, s.store), nil
}

// stockDeltas computes the per-item stock adjustments coupled to a
// transition. Confirmation reserves stock; cancelling an order that holds a
// reservation restores it. Every other move leaves stock alone.
func (s *orderService) stockDeltas(order *domain.Order, from, to domain.OrderStatus) []repository.StockDelta {
	var sign int
	switch {
	case from == domain.OrderStatusPending && to == domain.OrderStatusConfirmed:
		sign = -1
	case to == domain.OrderStatusCancelled && from.ReservesStock():
		sign = 1
	default:
		return nil
	}

	deltas := make([]repository.StockDelta, 0, len(order.Items))
	for _, item := range order.Items {
		deltas = append(deltas, repository.StockDelta{
			ProductID: item.ProductID,
			Delta:     sign * item.Quantity,
		})
	}
	return deltas
}

func cancelReason(to domain.OrderStatus, reason string) string {
	if to != domain.OrderStatusCancelled {
		return ""
	}
	if reason == "" {
		return "Cancelled by admin"
	}
	return reason
}

// MarkNotified flips the notified flag once the message went out.
func (s *orderService) MarkNotified(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := s.orderRepo.MarkNotified(ctx, id); err != nil {
		return nil, err
	}
	return s.orderRepo.FindByID(ctx, id)
}

func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

func (s *orderService) GetByCode(ctx context.Context, code string) (*domain.Order, error) {
	return s.orderRepo.FindByCode(ctx, code)
}

func (s *orderService) List(ctx context.Context, filter repository.OrderFilter, page, pageSize int, sortBy, sortOrder string) ([]*domain.Order, int, error) {
	return s.orderRepo.List(ctx, filter, page, pageSize, sortBy, repository.ParseSortOrder(sortOrder))
}

// Stats aggregates counts, revenue and the daily trend over a lookback
// window.
func (s *orderService) Stats(ctx context.Context, period string) (*OrderStats, error) {
	since, err := PeriodStart(period, time.Now())
	if err != nil {
		return nil, err
	}

	byStatus, err := s.orderRepo.StatsByStatus(ctx, since)
	if err != nil {
		return nil, err
	}
	trend, err := s.orderRepo.DailyTrend(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &OrderStats{
		Period:       period,
		TotalRevenue: decimal.Zero,
		ByStatus:     byStatus,
		DailyTrend:   trend,
	}
	for _, sc := range byStatus {
		stats.TotalOrders += sc.Count
		if sc.Status != domain.OrderStatusCancelled {
			stats.TotalRevenue = stats.TotalRevenue.Add(sc.Revenue)
		}
	}
	return stats, nil
}
