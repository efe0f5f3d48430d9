package transport

import (
	"errors"
	"net/http"
	"strconv"

	"spice-store/internal/middleware"
	"spice-store/internal/repository"
	"spice-store/internal/service"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagination parses page/limit query parameters with sane bounds.
func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// paginationEnvelope builds the standard pagination block. totalKey names
// the resource-specific counter field, e.g. totalOrders or totalProducts.
func paginationEnvelope(totalKey string, page, limit, total int) map[string]interface{} {
	totalPages := (total + limit - 1) / limit
	return map[string]interface{}{
		"currentPage": page,
		"totalPages":  totalPages,
		totalKey:      total,
		"hasNext":     page < totalPages,
		"hasPrev":     page > 1,
		"limit":       limit,
	}
}

// respondServiceError maps domain and repository errors onto the HTTP
// taxonomy: 404 for unknown ids, 409 for uniqueness conflicts, 400 for
// business-rule violations, 500 for everything else.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var itemErr *service.ItemError
	var transitionErr *service.TransitionError

	switch {
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrAdminNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, repository.ErrSKUConflict),
		errors.Is(err, repository.ErrCategoryNameConflict),
		errors.Is(err, repository.ErrAdminEmailConflict):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())

	case errors.As(err, &itemErr),
		errors.As(err, &transitionErr),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrDiscountNotBelowPrice),
		errors.Is(err, service.ErrProductReferenced),
		errors.Is(err, service.ErrCategorySelfParent),
		errors.Is(err, service.ErrCategoryCycle),
		errors.Is(err, service.ErrCategoryNotEmpty),
		errors.Is(err, service.ErrCategoryHasSubtree),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrSelfDeactivation),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrUnknownPeriod),
		errors.Is(err, repository.ErrInsufficientStock):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired):
		middleware.RespondWithError(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, service.ErrRegistrationClosed),
		errors.Is(err, service.ErrAccountDisabled):
		middleware.RespondWithError(w, http.StatusForbidden, err.Error())

	default:
		logger.Error("Unhandled service error", zap.Error(err))
		middleware.RespondWithServerError(w, err)
	}
}

// decodeBody decodes and validates a request body, answering 400 itself on
// failure. Returns false when the handler should stop.
func decodeBody(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
