package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"spice-store/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductFilter narrows product listings. Zero values mean "no filter".
type ProductFilter struct {
	Search     string
	CategoryID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    bool
	ActiveOnly bool
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Product, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	IncrementFavorites(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, category_id, price, discount_price, images,
	stock, max_order_qty, sku, tags, specs, rating_avg, rating_count,
	favorite_count, is_active, created_at, updated_at`

// Create inserts a new product using parameterized queries.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	images, tags, specs, err := marshalProductJSON(product)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.CategoryID,
		product.Price,
		product.DiscountPrice,
		images,
		product.Stock,
		product.MaxOrderQty,
		nullableSKU(product.SKU),
		tags,
		specs,
		product.Rating.Average,
		product.Rating.Count,
		product.FavoriteCount,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "products_sku_key") {
			return ErrSKUConflict
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update rewrites all mutable product fields.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	images, tags, specs, err := marshalProductJSON(product)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET name = $2, description = $3, category_id = $4, price = $5,
		    discount_price = $6, images = $7, stock = $8, max_order_qty = $9,
		    sku = $10, tags = $11, specs = $12, is_active = $13, updated_at = $14
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.CategoryID,
		product.Price,
		product.DiscountPrice,
		images,
		product.Stock,
		product.MaxOrderQty,
		nullableSKU(product.SKU),
		tags,
		specs,
		product.IsActive,
		time.Now(),
	)

	if err != nil {
		if isUniqueViolation(err, "products_sku_key") {
			return ErrSKUConflict
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return requireRowsAffected(result, ErrProductNotFound)
}

// Delete removes a product permanently. Callers are responsible for the
// "referenced by open orders" guard.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return requireRowsAffected(result, ErrProductNotFound)
}

// DeleteByCategory removes every product owned by a category and returns the
// deleted rows so image cleanup can run afterwards.
func (r *productRepository) DeleteByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		DELETE FROM products WHERE category_id = $1
		RETURNING `+productColumns, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete products by category: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// SetActive toggles the soft-delete flag.
func (r *productRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set product active flag: %w", err)
	}
	return requireRowsAffected(result, ErrProductNotFound)
}

// IncrementFavorites bumps the favorite counter atomically.
func (r *productRepository) IncrementFavorites(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET favorite_count = favorite_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment favorites: %w", err)
	}
	return requireRowsAffected(result, ErrProductNotFound)
}

// FindByID retrieves a product by ID.
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	product, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products with filtering, pagination and sorting.
func (r *productRepository) List(ctx context.Context, filter ProductFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection.
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"created_at": true,
		"stock":      true,
		"rating_avg": true,
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

	if filter.ActiveOnly {
		conds = append(conds, "is_active = TRUE")
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s OR tags::text ILIKE %s)", p, p, p))
	}
	if filter.CategoryID != nil {
		conds = append(conds, "category_id = "+arg(*filter.CategoryID))
	}
	if filter.MinPrice != nil {
		conds = append(conds, "COALESCE(discount_price, price) >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "COALESCE(discount_price, price) <= "+arg(*filter.MaxPrice))
	}
	if filter.InStock {
		conds = append(conds, "stock > 0")
	}

	whereClause := ""
	if len(conds) > 0 {
		whereClause = "WHERE " + strings.Join(conds, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s %s
		LIMIT %s OFFSET %s
	`, productColumns, whereClause, sortBy, sortOrder, arg(pageSize), arg(offset))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// CountByCategory counts products owned by a category.
func (r *productRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE category_id = $1`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products by category: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var images, tags, specs []byte
	var sku sql.NullString

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.CategoryID,
		&product.Price,
		&product.DiscountPrice,
		&images,
		&product.Stock,
		&product.MaxOrderQty,
		&sku,
		&tags,
		&specs,
		&product.Rating.Average,
		&product.Rating.Count,
		&product.FavoriteCount,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.SKU = sku.String
	if err := json.Unmarshal(images, &product.Images); err != nil {
		return nil, fmt.Errorf("failed to decode product images: %w", err)
	}
	if err := json.Unmarshal(tags, &product.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode product tags: %w", err)
	}
	if err := json.Unmarshal(specs, &product.Specs); err != nil {
		return nil, fmt.Errorf("failed to decode product specs: %w", err)
	}

	return product, nil
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func marshalProductJSON(product *domain.Product) (images, tags, specs []byte, err error) {
	if product.Images == nil {
		product.Images = []string{}
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}
	if product.Specs == nil {
		product.Specs = map[string]string{}
	}

	if images, err = json.Marshal(product.Images); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode product images: %w", err)
	}
	if tags, err = json.Marshal(product.Tags); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode product tags: %w", err)
	}
	if specs, err = json.Marshal(product.Specs); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode product specs: %w", err)
	}
	return images, tags, specs, nil
}

func nullableSKU(sku string) sql.NullString {
	return sql.NullString{String: sku, Valid: sku != ""}
}

func requireRowsAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
