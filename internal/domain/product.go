package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rating is the aggregate review score carried on a product.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Product represents a product in the catalog.
type Product struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	CategoryID    uuid.UUID           `json:"category_id"`
	Price         decimal.Decimal     `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price,omitempty"`
	Images        []string            `json:"images"`
	Stock         int                 `json:"stock"`
	MaxOrderQty   int                 `json:"max_order_qty"`
	SKU           string              `json:"sku,omitempty"`
	Tags          []string            `json:"tags,omitempty"`
	Specs         map[string]string   `json:"specs,omitempty"`
	Rating        Rating              `json:"rating"`
	FavoriteCount int                 `json:"favorite_count"`
	IsActive      bool                `json:"is_active"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// EffectivePrice is the price charged at checkout: the discount price when
// one is set, the list price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

// FirstImage returns the primary image, or "" when the product has none.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Category represents a product category. Categories form a tree through
// ParentID; the service layer rejects self-references and cycles.
type Category struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Image     string     `json:"image,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CategoryNode is a category with its resolved children, as returned by the
// tree endpoint.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}
