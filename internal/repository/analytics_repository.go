package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spice-store/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSales aggregates units sold and revenue per product.
type ProductSales struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Units     int             `json:"units"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// CategorySales aggregates sold units and revenue per category.
type CategorySales struct {
	CategoryID uuid.UUID       `json:"category_id"`
	Name       string          `json:"name"`
	Units      int             `json:"units"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// PendingStockRisk flags a product that appears in pending orders while its
// remaining stock is at or below the low-stock threshold.
type PendingStockRisk struct {
	ProductID     uuid.UUID `json:"product_id"`
	Name          string    `json:"name"`
	Stock         int       `json:"stock"`
	PendingUnits  int       `json:"pending_units"`
	PendingOrders int       `json:"pending_orders"`
}

// PeriodSummary is one bucket of the dashboard summary.
type PeriodSummary struct {
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// AnalyticsRepository holds the read-only aggregation queries backing the
// reporting endpoints. It never writes.
type AnalyticsRepository interface {
	TopProducts(ctx context.Context, since time.Time, limit int) ([]ProductSales, error)
	CategoryPerformance(ctx context.Context, since time.Time) ([]CategorySales, error)
	LowStock(ctx context.Context, threshold int) ([]*domain.Product, error)
	OutOfStock(ctx context.Context) ([]*domain.Product, error)
	PendingStockRisks(ctx context.Context, threshold int) ([]PendingStockRisk, error)
	SummaryBetween(ctx context.Context, from, to time.Time) (PeriodSummary, error)
	SummaryOverall(ctx context.Context) (PeriodSummary, error)
}

type analyticsRepository struct {
	db *sql.DB
}

// NewAnalyticsRepository creates a new instance of AnalyticsRepository.
func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// soldStatuses are the order statuses counted as realized sales.
const soldStatuses = `('confirmed', 'shipped', 'delivered')`

// TopProducts returns the best-selling products by units since the given
// time.
func (r *analyticsRepository) TopProducts(ctx context.Context, since time.Time, limit int) ([]ProductSales, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.product_id, i.name, SUM(i.quantity), SUM(i.price * i.quantity)
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE o.status IN `+soldStatuses+` AND o.created_at >= $1
		GROUP BY i.product_id, i.name
		ORDER BY SUM(i.quantity) DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top products: %w", err)
	}
	defer rows.Close()

	sales := []ProductSales{}
	for rows.Next() {
		var s ProductSales
		if err := rows.Scan(&s.ProductID, &s.Name, &s.Units, &s.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan product sales: %w", err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product sales: %w", err)
	}
	return sales, nil
}

// CategoryPerformance aggregates sold units and revenue per category since
// the given time. Items whose product was deleted fall out of the join; the
// order totals still exist on the order rows.
func (r *analyticsRepository) CategoryPerformance(ctx context.Context, since time.Time) ([]CategorySales, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, SUM(i.quantity), SUM(i.price * i.quantity)
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		JOIN products p ON p.id = i.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE o.status IN `+soldStatuses+` AND o.created_at >= $1
		GROUP BY c.id, c.name
		ORDER BY SUM(i.price * i.quantity) DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate category performance: %w", err)
	}
	defer rows.Close()

	sales := []CategorySales{}
	for rows.Next() {
		var s CategorySales
		if err := rows.Scan(&s.CategoryID, &s.Name, &s.Units, &s.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan category sales: %w", err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category sales: %w", err)
	}
	return sales, nil
}

// LowStock lists active products with 0 < stock <= threshold.
func (r *analyticsRepository) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = TRUE AND stock > 0 AND stock <= $1
		ORDER BY stock ASC
	`, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low-stock products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// OutOfStock lists active products with zero stock.
func (r *analyticsRepository) OutOfStock(ctx context.Context) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = TRUE AND stock = 0
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list out-of-stock products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// PendingStockRisks cross-references pending orders with the low-stock list:
// products that pending orders will need but that may not be coverable.
func (r *analyticsRepository) PendingStockRisks(ctx context.Context, threshold int) ([]PendingStockRisk, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.stock, SUM(i.quantity), COUNT(DISTINCT o.id)
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		JOIN products p ON p.id = i.product_id
		WHERE o.status = 'pending' AND p.stock <= $1
		GROUP BY p.id, p.name, p.stock
		ORDER BY p.stock ASC
	`, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to cross-reference pending stock: %w", err)
	}
	defer rows.Close()

	risks := []PendingStockRisk{}
	for rows.Next() {
		var risk PendingStockRisk
		if err := rows.Scan(&risk.ProductID, &risk.Name, &risk.Stock, &risk.PendingUnits, &risk.PendingOrders); err != nil {
			return nil, fmt.Errorf("failed to scan pending stock risk: %w", err)
		}
		risks = append(risks, risk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending stock risks: %w", err)
	}
	return risks, nil
}

// SummaryBetween counts orders and sums revenue for created_at in [from, to).
func (r *analyticsRepository) SummaryBetween(ctx context.Context, from, to time.Time) (PeriodSummary, error) {
	var s PeriodSummary
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2 AND status != 'cancelled'
	`, from, to).Scan(&s.Orders, &s.Revenue)
	if err != nil {
		return PeriodSummary{}, fmt.Errorf("failed to summarize period: %w", err)
	}
	return s, nil
}

// SummaryOverall counts all non-cancelled orders ever.
func (r *analyticsRepository) SummaryOverall(ctx context.Context) (PeriodSummary, error) {
	var s PeriodSummary
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE status != 'cancelled'
	`).Scan(&s.Orders, &s.Revenue)
	if err != nil {
		return PeriodSummary{}, fmt.Errorf("failed to summarize overall: %w", err)
	}
	return s, nil
}
