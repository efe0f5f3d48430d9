package transport

import (
	"net/http"
	"strconv"

	"spice-store/internal/middleware"
	"spice-store/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AnalyticsHandler handles HTTP requests for the reporting endpoints.
type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
	logger           *zap.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, logger: logger}
}

// RegisterAdminRoutes registers the back-office analytics routes.
func (h *AnalyticsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/dashboard", h.Dashboard)
		r.Get("/sales", h.Sales)
		r.Get("/top-products", h.TopProducts)
		r.Get("/category-performance", h.CategoryPerformance)
		r.Get("/low-stock", h.LowStock)
		r.Get("/out-of-stock", h.OutOfStock)
		r.Get("/stock-risks", h.StockRisks)
	})
}

// Dashboard returns the landing-page summary.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analyticsService.Dashboard(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// Sales returns totals and the daily trend for a period.
func (h *AnalyticsHandler) Sales(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyticsService.Sales(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, report)
}

// TopProducts returns the best sellers for a period.
func (h *AnalyticsHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	products, err := h.analyticsService.TopProducts(r.Context(), r.URL.Query().Get("period"), limit)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// CategoryPerformance returns per-category sales for a period.
func (h *AnalyticsHandler) CategoryPerformance(w http.ResponseWriter, r *http.Request) {
	categories, err := h.analyticsService.CategoryPerformance(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// LowStock lists products at or below the configured threshold.
func (h *AnalyticsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.analyticsService.LowStock(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// OutOfStock lists products with zero stock.
func (h *AnalyticsHandler) OutOfStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.analyticsService.OutOfStock(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// StockRisks lists pending demand that current stock cannot cover.
func (h *AnalyticsHandler) StockRisks(w http.ResponseWriter, r *http.Request) {
	risks, err := h.analyticsService.PendingStockRisks(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, risks)
}
