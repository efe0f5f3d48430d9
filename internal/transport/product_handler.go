package transport

import (
	"net/http"

	"spice-store/internal/middleware"
	"spice-store/internal/repository"
	"spice-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest is the admin payload for creating or updating a product.
type ProductRequest struct {
	Name          string            `json:"name" validate:"required,min=2"`
	Description   string            `json:"description"`
	CategoryID    string            `json:"categoryId" validate:"required,uuid"`
	Price         decimal.Decimal   `json:"price" validate:"required"`
	DiscountPrice *decimal.Decimal  `json:"discountPrice"`
	Images        []string          `json:"images"`
	Stock         int               `json:"stock" validate:"gte=0"`
	MaxOrderQty   int               `json:"maxOrderQty" validate:"omitempty,gte=1,lte=10"`
	SKU           string            `json:"sku"`
	Tags          []string          `json:"tags"`
	Specs         map[string]string `json:"specs"`
}

// SetActiveRequest toggles a product's availability.
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// ProductHandler handles HTTP requests for catalog operations.
type ProductHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(catalogService service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{catalogService: catalogService, logger: logger}
}

// RegisterPublicRoutes registers the storefront catalog routes.
func (h *ProductHandler) RegisterPublicRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/favorite", h.Favorite)
	})
}

// RegisterAdminRoutes registers the back-office catalog routes.
func (h *ProductHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Put("/{id}/active", h.SetActive)
	})
}

// List returns filtered, paginated products. Public listings only show
// active products; the admin console passes all=true to include disabled
// ones.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	q := r.URL.Query()

	filter := repository.ProductFilter{
		Search:     q.Get("search"),
		InStock:    q.Get("inStock") == "true",
		ActiveOnly: q.Get("all") != "true",
	}
	if raw := q.Get("category"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category id")
			return
		}
		filter.CategoryID = &categoryID
	}
	if raw := q.Get("minPrice"); raw != "" {
		if min, err := decimal.NewFromString(raw); err == nil {
			filter.MinPrice = &min
		}
	}
	if raw := q.Get("maxPrice"); raw != "" {
		if max, err := decimal.NewFromString(raw); err == nil {
			filter.MaxPrice = &max
		}
	}

	products, total, err := h.catalogService.List(r.Context(), filter, page, limit, q.Get("sortBy"), q.Get("sortOrder"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"products":   products,
		"pagination": paginationEnvelope("totalProducts", page, limit, total),
	})
}

// Get returns one product.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Favorite bumps the favorite counter.
func (h *ProductHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.catalogService.Favorite(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "added to favorites", nil)
}

// Create adds a product to the catalog.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeProductInput(w, r)
	if !ok {
		return
	}

	product, err := h.catalogService.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithMessage(w, http.StatusCreated, "product created", product)
}

// Update rewrites a product.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	input, ok := h.decodeProductInput(w, r)
	if !ok {
		return
	}

	product, err := h.catalogService.Update(r.Context(), id, input)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "product updated", product)
}

// Delete removes a product permanently, subject to the open-order guard.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.catalogService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RespondWithMessage(w, http.StatusOK, "product deleted", nil)
}

// SetActive soft-enables or soft-disables a product.
func (h *ProductHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req SetActiveRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	if err := h.catalogService.SetActive(r.Context(), id, *req.IsActive); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "product updated", nil)
}

func (h *ProductHandler) decodeProductInput(w http.ResponseWriter, r *http.Request) (service.ProductInput, bool) {
	var req ProductRequest
	if !decodeBody(w, r, h.logger, &req) {
		return service.ProductInput{}, false
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category id")
		return service.ProductInput{}, false
	}

	return service.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    categoryID,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Images:        req.Images,
		Stock:         req.Stock,
		MaxOrderQty:   req.MaxOrderQty,
		SKU:           req.SKU,
		Tags:          req.Tags,
		Specs:         req.Specs,
	}, true
}
