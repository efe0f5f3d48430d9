package transport

import (
	"net/http"

	"spice-store/internal/middleware"
	"spice-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryRequest is the admin payload for creating or updating a category.
type CategoryRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	ParentID string `json:"parentId" validate:"omitempty,uuid"`
	Image    string `json:"image"`
	IsActive *bool  `json:"isActive"`
}

// CategoryHandler handles HTTP requests for category operations.
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, logger: logger}
}

// RegisterPublicRoutes registers the storefront category routes.
func (h *CategoryHandler) RegisterPublicRoutes(r chi.Router) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/tree", h.Tree)
		r.Get("/{id}", h.Get)
	})
}

// RegisterAdminRoutes registers the back-office category routes.
func (h *CategoryHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List returns the flat category list.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// Tree returns the category hierarchy.
func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.categoryService.Tree(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, tree)
}

// Get returns one category.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	category, err := h.categoryService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// Create adds a category.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeCategoryInput(w, r)
	if !ok {
		return
	}

	category, err := h.categoryService.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Category created", zap.String("category_id", category.ID.String()))
	middleware.RespondWithMessage(w, http.StatusCreated, "category created", category)
}

// Update rewrites a category.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	input, ok := h.decodeCategoryInput(w, r)
	if !ok {
		return
	}

	category, err := h.categoryService.Update(r.Context(), id, input)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "category updated", category)
}

// Delete removes a category. force=true cascades owned products;
// subcategories always block.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := h.categoryService.Delete(r.Context(), id, force); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Category deleted",
		zap.String("category_id", id.String()),
		zap.Bool("force", force),
	)
	middleware.RespondWithMessage(w, http.StatusOK, "category deleted", nil)
}

func (h *CategoryHandler) decodeCategoryInput(w http.ResponseWriter, r *http.Request) (service.CategoryInput, bool) {
	var req CategoryRequest
	if !decodeBody(w, r, h.logger, &req) {
		return service.CategoryInput{}, false
	}

	input := service.CategoryInput{
		Name:     req.Name,
		Image:    req.Image,
		IsActive: req.IsActive,
	}
	if req.ParentID != "" {
		parentID, err := uuid.Parse(req.ParentID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid parent id")
			return service.CategoryInput{}, false
		}
		input.ParentID = &parentID
	}
	return input, true
}
