package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spice-store/internal/assets"
	"spice-store/internal/domain"
	"spice-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDiscountNotBelowPrice = errors.New("discount price must be below the list price")
	ErrProductReferenced     = errors.New("product is referenced by open orders; deactivate it instead")
)

// ProductInput carries the admin-supplied product fields for create/update.
type ProductInput struct {
	Name          string
	Description   string
	CategoryID    uuid.UUID
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Images        []string
	Stock         int
	MaxOrderQty   int
	SKU           string
	Tags          []string
	Specs         map[string]string
}

// CatalogService owns product reads and the admin-facing catalog writes.
type CatalogService interface {
	List(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy, sortOrder string) ([]*domain.Product, int, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)

	// Delete removes a product permanently. It is refused while pending or
	// confirmed orders still reference the product; image cleanup on the
	// asset host is best-effort.
	Delete(ctx context.Context, id uuid.UUID) error

	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Favorite(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	orderRepo    repository.OrderRepository
	cleaner      assets.Cleaner
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	orderRepo repository.OrderRepository,
	cleaner assets.Cleaner,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		orderRepo:    orderRepo,
		cleaner:      cleaner,
	}
}

func (s *catalogService) List(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy, sortOrder string) ([]*domain.Product, int, error) {
	return s.productRepo.List(ctx, filter, page, pageSize, sortBy, repository.ParseSortOrder(sortOrder))
}

func (s *catalogService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// Create validates and inserts a new product.
func (s *catalogService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Price:       input.Price,
		Images:      input.Images,
		Stock:       input.Stock,
		MaxOrderQty: input.MaxOrderQty,
		SKU:         input.SKU,
		Tags:        input.Tags,
		Specs:       input.Specs,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.DiscountPrice != nil {
		product.DiscountPrice = decimal.NullDecimal{Decimal: *input.DiscountPrice, Valid: true}
	}
	if product.MaxOrderQty == 0 {
		product.MaxOrderQty = 10
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update rewrites a product and cleans up any images dropped by the edit.
func (s *catalogService) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{
		ID:            id,
		Name:          input.Name,
		Description:   input.Description,
		CategoryID:    input.CategoryID,
		Price:         input.Price,
		Images:        input.Images,
		Stock:         input.Stock,
		MaxOrderQty:   input.MaxOrderQty,
		SKU:           input.SKU,
		Tags:          input.Tags,
		Specs:         input.Specs,
		Rating:        existing.Rating,
		FavoriteCount: existing.FavoriteCount,
		IsActive:      existing.IsActive,
		CreatedAt:     existing.CreatedAt,
		UpdatedAt:     time.Now(),
	}
	if input.DiscountPrice != nil {
		product.DiscountPrice = decimal.NullDecimal{Decimal: *input.DiscountPrice, Valid: true}
	}
	if product.MaxOrderQty == 0 {
		product.MaxOrderQty = existing.MaxOrderQty
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	s.cleaner.RemoveImages(ctx, removedImages(existing.Images, product.Images))
	return product, nil
}

// Delete enforces the open-order guard, then removes the product and its
// images.
func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	open, err := s.orderRepo.CountReferencingProduct(ctx, id, []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusConfirmed,
	})
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrProductReferenced
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.cleaner.RemoveImages(ctx, product.Images)
	return nil
}

func (s *catalogService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.productRepo.SetActive(ctx, id, active)
}

func (s *catalogService) Favorite(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.IncrementFavorites(ctx, id)
}

func (s *catalogService) validateInput(ctx context.Context, input ProductInput) error {
	if input.DiscountPrice != nil && !input.DiscountPrice.LessThan(input.Price) {
		return ErrDiscountNotBelowPrice
	}

	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return fmt.Errorf("category %s: %w", input.CategoryID, repository.ErrCategoryNotFound)
		}
		return err
	}
	return nil
}

// removedImages returns the URLs present in old but absent from new.
func removedImages(old, new []string) []string {
	kept := make(map[string]bool, len(new))
	for _, img := range new {
		kept[img] = true
	}

	removed := []string{}
	for _, img := range old {
		if !kept[img] {
			removed = append(removed, img)
		}
	}
	return removed
}
