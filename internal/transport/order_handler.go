package transport

import (
	"net/http"
	"time"

	"spice-store/internal/domain"
	"spice-store/internal/middleware"
	"spice-store/internal/repository"
	"spice-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerInfoRequest is the embedded customer block of a checkout request.
type CustomerInfoRequest struct {
	Name    string `json:"name" validate:"required,min=2"`
	Phone   string `json:"phone" validate:"required,e164"`
	Address string `json:"address" validate:"required,min=10"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// OrderItemRequest is one requested checkout line. Name is display-only on
// the client; the server snapshots the catalog name instead.
type OrderItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=10"`
	Name      string `json:"name"`
}

// CreateOrderRequest is the public checkout payload.
type CreateOrderRequest struct {
	Customer CustomerInfoRequest `json:"customerInfo" validate:"required"`
	Items    []OrderItemRequest  `json:"items" validate:"required,min=1,dive"`
}

// UpdateStatusRequest moves an order along the lifecycle.
type UpdateStatusRequest struct {
	Status             string `json:"status" validate:"required,oneof=pending confirmed shipped delivered cancelled"`
	CancellationReason string `json:"cancellationReason"`
}

// CancelOrderRequest force-cancels an order.
type CancelOrderRequest struct {
	CancellationReason string `json:"cancellationReason"`
}

// OrderHandler handles HTTP requests for order operations.
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, logger: logger}
}

// RegisterPublicRoutes registers the customer-facing order routes.
// checkoutLimiter wraps only order creation.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router, checkoutLimiter func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		if checkoutLimiter != nil {
			r.With(checkoutLimiter).Post("/", h.Create)
		} else {
			r.Post("/", h.Create)
		}
		r.Get("/{code}/status", h.StatusByCode)
	})
}

// RegisterAdminRoutes registers the back-office order routes.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router, forceCancelGuard func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/stats", h.Stats)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/status", h.UpdateStatus)
		r.Put("/{id}/notified", h.MarkNotified)
		r.With(forceCancelGuard).Put("/{id}/cancel", h.Cancel)
	})
}

// Create handles public checkout.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	items := make([]service.CreateOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id: "+item.ProductID)
			return
		}
		items = append(items, service.CreateOrderItem{ProductID: productID, Quantity: item.Quantity})
	}

	customer := domain.CustomerInfo{
		Name:    req.Customer.Name,
		Phone:   req.Customer.Phone,
		Address: req.Customer.Address,
		Email:   req.Customer.Email,
	}

	order, link, err := h.orderService.Create(r.Context(), customer, items)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("code", order.Code),
	)
	middleware.RespondWithMessage(w, http.StatusCreated, "order placed successfully", map[string]interface{}{
		"order":            order,
		"notificationLink": link,
	})
}

// List returns paginated, filtered orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	q := r.URL.Query()

	filter := repository.OrderFilter{}
	if raw := q.Get("status"); raw != "" {
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}
	if t, ok := parseDate(q.Get("startDate")); ok {
		filter.StartDate = &t
	}
	if t, ok := parseDate(q.Get("endDate")); ok {
		filter.EndDate = &t
	}

	orders, total, err := h.orderService.List(r.Context(), filter, page, limit, q.Get("sortBy"), q.Get("sortOrder"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"orders":     orders,
		"pagination": paginationEnvelope("totalOrders", page, limit, total),
	})
}

// Get returns one order by id.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orderService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// StatusByCode is the public order lookup by generated code.
func (h *OrderHandler) StatusByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	order, err := h.orderService.GetByCode(r.Context(), code)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	// The public lookup deliberately omits admin-only detail.
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"code":        order.Code,
		"status":      order.Status,
		"total":       order.Total,
		"items":       order.Items,
		"createdAt":   order.CreatedAt,
		"confirmedAt": order.ConfirmedAt,
		"shippedAt":   order.ShippedAt,
		"deliveredAt": order.DeliveredAt,
		"cancelledAt": order.CancelledAt,
	})
}

// UpdateStatus applies a lifecycle transition.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, message, err := h.orderService.UpdateStatus(r.Context(), id, status, req.CancellationReason)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithMessage(w, http.StatusOK, message, order)
}

// Cancel force-cancels an order from any non-cancelled status.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req CancelOrderRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	order, message, err := h.orderService.ForceCancel(r.Context(), id, req.CancellationReason)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order cancelled",
		zap.String("order_id", order.ID.String()),
		zap.String("reason", order.CancelReason),
	)
	middleware.RespondWithMessage(w, http.StatusOK, message, order)
}

// MarkNotified records that the WhatsApp message for the order was sent.
func (h *OrderHandler) MarkNotified(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orderService.MarkNotified(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "order marked as notified", order)
}

// Stats returns the aggregated order statistics for a lookback period.
func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orderService.Stats(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, stats)
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
