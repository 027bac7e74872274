package service

import (
	"context"
	"strings"

	"todo-service/internal/model"
	"todo-service/internal/repository"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	store *repository.Store
}

func NewCategoryService(store *repository.Store) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.store.LoadCategories(ctx)
}

// Create adds a category, defaulting its color and icon.
func (s *CategoryService) Create(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationf("Category name is required")
	}

	var created model.Category
	err := s.store.Update(func() error {
		categories, err := s.store.LoadCategories(ctx)
		if err != nil {
			return err
		}

		created = model.Category{
			ID:    nextID(categories, func(c model.Category) int { return c.ID }),
			Name:  name,
			Color: in.Color,
			Icon:  in.Icon,
		}
		if created.Color == "" {
			created.Color = model.DefaultCategoryColor
		}
		if created.Icon == "" {
			created.Icon = model.DefaultCategoryIcon
		}

		categories = append(categories, created)
		return s.store.ReplaceCategories(ctx, categories)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Names maps category ids to names.
func (s *CategoryService) Names(ctx context.Context) (map[int]string, error) {
	categories, err := s.store.LoadCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}
