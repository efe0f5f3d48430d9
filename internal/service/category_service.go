package service

import (
	"context"
	"errors"
	"time"

	"spice-store/internal/assets"
	"spice-store/internal/domain"
	"spice-store/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrCategorySelfParent = errors.New("category cannot be its own parent")
	ErrCategoryCycle      = errors.New("category parent would create a cycle")
	ErrCategoryNotEmpty   = errors.New("category owns products or subcategories; pass force to cascade")
	ErrCategoryHasSubtree = errors.New("category owns subcategories; delete or move them first")
)

// maxCategoryDepth bounds the ancestor walk so corrupted data cannot hang a
// request.
const maxCategoryDepth = 100

// CategoryInput carries the admin-supplied category fields.
type CategoryInput struct {
	Name     string
	ParentID *uuid.UUID
	Image    string
	IsActive *bool
}

// CategoryService owns category CRUD, the guarded delete and the tree view.
type CategoryService interface {
	List(ctx context.Context) ([]*domain.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	Create(ctx context.Context, input CategoryInput) (*domain.Category, error)
	Update(ctx context.Context, id uuid.UUID, input CategoryInput) (*domain.Category, error)

	// Delete refuses while the category owns products or subcategories.
	// With force it cascade-deletes owned products (and their images);
	// subcategories always block deletion.
	Delete(ctx context.Context, id uuid.UUID, force bool) error

	// Tree builds the parent-to-children hierarchy in one pass over the
	// flat category list.
	Tree(ctx context.Context) ([]*domain.CategoryNode, error)
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	cleaner      assets.Cleaner
}

// NewCategoryService creates a new instance of CategoryService.
func NewCategoryService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	cleaner assets.Cleaner,
) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cleaner:      cleaner,
	}
}

func (s *categoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categoryRepo.FindByID(ctx, id)
}

// Create validates the parent reference and inserts the category.
func (s *categoryService) Create(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	if input.ParentID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *input.ParentID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	category := &domain.Category{
		ID:        uuid.New(),
		Name:      input.Name,
		ParentID:  input.ParentID,
		Image:     input.Image,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Update rewrites a category, rejecting self-references and cycles.
func (s *categoryService) Update(ctx context.Context, id uuid.UUID, input CategoryInput) (*domain.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.ParentID != nil {
		if *input.ParentID == id {
			return nil, ErrCategorySelfParent
		}
		if err := s.checkNoCycle(ctx, id, *input.ParentID); err != nil {
			return nil, err
		}
	}

	category.Name = input.Name
	category.ParentID = input.ParentID
	category.Image = input.Image
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	category.UpdatedAt = time.Now()

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// checkNoCycle walks the candidate parent's ancestor chain and rejects the
// update if it passes through the category being edited.
func (s *categoryService) checkNoCycle(ctx context.Context, id, parentID uuid.UUID) error {
	current := parentID
	for depth := 0; depth < maxCategoryDepth; depth++ {
		ancestor, err := s.categoryRepo.FindByID(ctx, current)
		if err != nil {
			return err
		}
		if ancestor.ParentID == nil {
			return nil
		}
		if *ancestor.ParentID == id {
			return ErrCategoryCycle
		}
		current = *ancestor.ParentID
	}
	return ErrCategoryCycle
}

// Delete applies the ownership guards and, with force, cascades product
// deletion.
func (s *categoryService) Delete(ctx context.Context, id uuid.UUID, force bool) error {
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		return err
	}

	children, err := s.categoryRepo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		// Subcategories block deletion even with force; cascading a whole
		// subtree is too destructive for a single flag.
		if force {
			return ErrCategoryHasSubtree
		}
		return ErrCategoryNotEmpty
	}

	products, err := s.productRepo.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if products > 0 && !force {
		return ErrCategoryNotEmpty
	}

	if products > 0 {
		deleted, err := s.productRepo.DeleteByCategory(ctx, id)
		if err != nil {
			return err
		}
		images := []string{}
		for _, p := range deleted {
			images = append(images, p.Images...)
		}
		s.cleaner.RemoveImages(ctx, images)
	}

	return s.categoryRepo.Delete(ctx, id)
}

// Tree reconstructs the hierarchy from the flat list with a single
// parent-id map, so lookup cost stays linear and data cycles cannot loop
// the builder.
func (s *categoryService) Tree(ctx context.Context) ([]*domain.CategoryNode, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make(map[uuid.UUID]*domain.CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &domain.CategoryNode{Category: *c, Children: []*domain.CategoryNode{}}
	}

	roots := []*domain.CategoryNode{}
	for _, c := range categories {
		node := nodes[c.ID]
		if c.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*c.ParentID]
		if !ok {
			// Orphaned parent reference: surface the node at the root
			// rather than dropping it.
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	return roots, nil
}
