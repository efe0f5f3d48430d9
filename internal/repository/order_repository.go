package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"spice-store/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status    domain.OrderStatus
	StartDate *time.Time
	EndDate   *time.Time
}

// StockDelta is a per-product stock adjustment applied together with a
// status transition. Negative Delta reserves stock, positive restores it.
type StockDelta struct {
	ProductID uuid.UUID
	Delta     int
}

// StatusCounts aggregates orders by status.
type StatusCounts struct {
	Status  domain.OrderStatus `json:"status"`
	Count   int                `json:"count"`
	Revenue decimal.Decimal    `json:"revenue"`
}

// DailyPoint is one day of the order trend.
type DailyPoint struct {
	Day     time.Time       `json:"day"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// OrderRepository defines the interface for order data access. Orders are
// append-only: they are created once and then mutated only through status
// transitions; they are never deleted.
type OrderRepository interface {
	// Create persists the order, its line items and a freshly generated
	// order code inside a single transaction.
	Create(ctx context.Context, order *domain.Order) error

	// Transition atomically moves an order from one status to another,
	// applying stock deltas in the same transaction. It fails with
	// ErrStatusConflict when the order is no longer in the expected status
	// and ErrInsufficientStock when a negative delta would drive stock
	// below zero; either failure rolls back every change.
	Transition(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus, reason string, deltas []StockDelta) (*domain.Order, error)

	// MarkNotified flags an order as having had its customer notification
	// sent.
	MarkNotified(ctx context.Context, id uuid.UUID) error

	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByCode(ctx context.Context, code string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Order, int, error)
	CountReferencingProduct(ctx context.Context, productID uuid.UUID, statuses []domain.OrderStatus) (int, error)
	StatsByStatus(ctx context.Context, since time.Time) ([]StatusCounts, error)
	DailyTrend(ctx context.Context, since time.Time) ([]DailyPoint, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, code, customer_name, customer_phone, customer_addr, customer_email,
	total, status, notified, cancel_reason, confirmed_at, shipped_at,
	delivered_at, cancelled_at, created_at, updated_at`

// statusTimestampColumns maps a target status to the timestamp column
// stamped when the order enters it. Values are fixed identifiers, never
// caller input.
var statusTimestampColumns = map[domain.OrderStatus]string{
	domain.OrderStatusConfirmed: "confirmed_at",
	domain.OrderStatusShipped:   "shipped_at",
	domain.OrderStatusDelivered: "delivered_at",
	domain.OrderStatusCancelled: "cancelled_at",
}

// Create inserts the order, generates its code from the per-day sequence and
// writes all line items, in one transaction.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Atomic per-day sequence: the upsert either starts the day at 1 or
	// increments it, so concurrent checkouts can never mint the same code.
	// The sequence row is keyed on the order's creation date, the same date
	// the code embeds; the database clock never enters the code.
	var seq int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO order_sequences (day, seq)
		VALUES ($1::date, 1)
		ON CONFLICT (day) DO UPDATE SET seq = order_sequences.seq + 1
		RETURNING seq
	`, order.CreatedAt.Format("2006-01-02")).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to advance order sequence: %w", err)
	}
	order.Code = domain.OrderCode(order.CreatedAt, seq)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		order.ID,
		order.Code,
		order.Customer.Name,
		order.Customer.Phone,
		order.Customer.Address,
		order.Customer.Email,
		order.Total,
		order.Status,
		order.Notified,
		order.CancelReason,
		order.ConfirmedAt,
		order.ShippedAt,
		order.DeliveredAt,
		order.CancelledAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "orders_code_key") {
			return ErrOrderCodeConflict
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, price, image, sku, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, order.ID, i, item.ProductID, item.Name, item.Price, item.Image, item.SKU, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// Transition performs the compare-and-swap status update and stock
// adjustments as one atomic unit.
func (r *orderRepository) Transition(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus, reason string, deltas []StockDelta) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Guard the transition on the current status. Zero rows means the order
	// either does not exist or moved concurrently; both leave state untouched.
	query := `UPDATE orders SET status = $3, updated_at = now()`
	if col, ok := statusTimestampColumns[to]; ok {
		query += ", " + col + " = now()"
	}
	if to == domain.OrderStatusCancelled {
		query += ", cancel_reason = $4"
	}
	query += ` WHERE id = $1 AND status = $2`

	args := []interface{}{orderID, from, to}
	if to == domain.OrderStatusCancelled {
		args = append(args, reason)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrStatusConflict
	}

	for _, delta := range deltas {
		if delta.Delta < 0 {
			// Conditional decrement: refuses to drive stock negative, which
			// aborts the whole transition.
			res, err := tx.ExecContext(ctx, `
				UPDATE products SET stock = stock + $2, updated_at = now()
				WHERE id = $1 AND stock >= $3
			`, delta.ProductID, delta.Delta, -delta.Delta)
			if err != nil {
				return nil, fmt.Errorf("failed to reserve stock: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return nil, fmt.Errorf("failed to get rows affected: %w", err)
			}
			if n == 0 {
				return nil, fmt.Errorf("product %s: %w", delta.ProductID, ErrInsufficientStock)
			}
		} else if delta.Delta > 0 {
			_, err := tx.ExecContext(ctx, `
				UPDATE products SET stock = stock + $2, updated_at = now()
				WHERE id = $1
			`, delta.ProductID, delta.Delta)
			if err != nil {
				return nil, fmt.Errorf("failed to restore stock: %w", err)
			}
		}
	}

	order, err := r.findBy(ctx, tx, "id = $1", orderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}
	return order, nil
}

// MarkNotified records that the customer notification for the order went
// out.
func (r *orderRepository) MarkNotified(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET notified = TRUE, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark order notified: %w", err)
	}
	return requireRowsAffected(result, ErrOrderNotFound)
}

// FindByID retrieves an order with its items.
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findBy(ctx, r.db, "id = $1", id)
}

// FindByCode retrieves an order by its human-readable code.
func (r *orderRepository) FindByCode(ctx context.Context, code string) (*domain.Order, error) {
	return r.findBy(ctx, r.db, "code = $1", code)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *orderRepository) findBy(ctx context.Context, q querier, cond string, arg interface{}) (*domain.Order, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+cond, arg)

	order, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	if err := r.loadItems(ctx, q, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// List retrieves orders with filtering, pagination and sorting, items
// included.
func (r *orderRepository) List(ctx context.Context, filter OrderFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Order, int, error) {
	validSortFields := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"total":      true,
		"status":     true,
		"code":       true,
	}
	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	conds := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.StartDate != nil {
		conds = append(conds, "created_at >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conds = append(conds, "created_at <= "+arg(*filter.EndDate))
	}

	whereClause := ""
	if len(conds) > 0 {
		whereClause = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		%s
		ORDER BY %s %s
		LIMIT %s OFFSET %s
	`, orderColumns, whereClause, sortBy, sortOrder, arg(pageSize), arg(offset))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.loadItems(ctx, r.db, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// CountReferencingProduct counts orders in the given statuses that contain
// the product. Used as the delete guard on catalog products.
func (r *orderRepository) CountReferencingProduct(ctx context.Context, productID uuid.UUID, statuses []domain.OrderStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(statuses))
	args := []interface{}{productID}
	for i, s := range statuses {
		args = append(args, s)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT COUNT(DISTINCT o.id)
		FROM orders o
		JOIN order_items i ON i.order_id = o.id
		WHERE i.product_id = $1 AND o.status IN (%s)
	`, strings.Join(placeholders, ", "))

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count referencing orders: %w", err)
	}
	return count, nil
}

// StatsByStatus aggregates order counts and revenue per status since the
// given time.
func (r *orderRepository) StatsByStatus(ctx context.Context, since time.Time) ([]StatusCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE created_at >= $1
		GROUP BY status
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate order stats: %w", err)
	}
	defer rows.Close()

	stats := []StatusCounts{}
	for rows.Next() {
		var s StatusCounts
		if err := rows.Scan(&s.Status, &s.Count, &s.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan order stats: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order stats: %w", err)
	}
	return stats, nil
}

// DailyTrend groups orders by calendar day since the given time.
func (r *orderRepository) DailyTrend(ctx context.Context, since time.Time) ([]DailyPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date_trunc('day', created_at) AS day, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily trend: %w", err)
	}
	defer rows.Close()

	points := []DailyPoint{}
	for rows.Next() {
		var p DailyPoint
		if err := rows.Scan(&p.Day, &p.Count, &p.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan daily trend: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily trend: %w", err)
	}
	return points, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.Code,
		&order.Customer.Name,
		&order.Customer.Phone,
		&order.Customer.Address,
		&order.Customer.Email,
		&order.Total,
		&order.Status,
		&order.Notified,
		&order.CancelReason,
		&order.ConfirmedAt,
		&order.ShippedAt,
		&order.DeliveredAt,
		&order.CancelledAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, q querier, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	placeholders := make([]string, len(orders))
	args := make([]interface{}, len(orders))
	for i, order := range orders {
		order.Items = []domain.OrderItem{}
		byID[order.ID] = order
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = order.ID
	}

	query := fmt.Sprintf(`
		SELECT order_id, product_id, name, price, image, sku, quantity
		FROM order_items
		WHERE order_id IN (%s)
		ORDER BY order_id, position
	`, strings.Join(placeholders, ", "))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Price, &item.Image, &item.SKU, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}
	return nil
}
