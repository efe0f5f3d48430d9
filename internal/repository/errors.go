package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrSKUConflict          = errors.New("product with this SKU already exists")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrCategoryNameConflict = errors.New("category with this name already exists")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderCodeConflict    = errors.New("order code already exists")
	ErrStatusConflict       = errors.New("order status changed concurrently")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrAdminNotFound        = errors.New("admin not found")
	ErrAdminEmailConflict   = errors.New("admin with this email already exists")
	ErrAdminExists          = errors.New("an admin account already exists")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
)

// isUniqueViolation reports whether err is a unique-constraint violation on
// the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

// SortOrder represents the sort direction.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ParseSortOrder normalizes a caller-supplied sort direction.
func ParseSortOrder(s string) SortOrder {
	switch s {
	case "asc", "ASC":
		return SortOrderAsc
	default:
		return SortOrderDesc
	}
}
