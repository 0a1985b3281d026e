package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"tasktracker/internal/core/cache"
	"tasktracker/internal/domain"
	"tasktracker/pkg/utils"
)

const categoriesCacheKey = "tasktracker:categories:all"

type CategoryService struct {
	categories domain.CategoryRepository
	cache      *cache.Cache // nil = 不缓存
	ttl        time.Duration
}

func NewCategoryService(categories domain.CategoryRepository, c *cache.Cache, ttl time.Duration) *CategoryService {
	return &CategoryService{categories: categories, cache: c, ttl: ttl}
}

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	if s.cache == nil {
		return s.categories.FindAll(ctx)
	}
	cs, err := cache.GetOrLoadJSON(s.cache, ctx, categoriesCacheKey, s.ttl, func(ctx context.Context) (*[]domain.Category, error) {
		all, err := s.categories.FindAll(ctx)
		if err != nil {
			return nil, err
		}
		return &all, nil
	})
	if err != nil {
		return nil, err
	}
	if cs == nil {
		return nil, nil
	}
	return *cs, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find category %q: %w", id, err)
	}
	if c == nil {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("category name is required")
	}
	c := &domain.Category{ID: utils.NewID(), Name: name, Description: description}
	if err := s.categories.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save category: %w", err)
	}
	s.invalidate(ctx)
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("category name is required")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = name
	c.Description = description
	if err := s.categories.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save category: %w", err)
	}
	s.invalidate(ctx)
	return c, nil
}

// Delete 删除分类；引用它的任务保留，分类置空
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *CategoryService) Exists(ctx context.Context, id string) (bool, error) {
	return s.categories.ExistsByID(ctx, id)
}

func (s *CategoryService) ExistsByName(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	all, err := s.categories.FindAll(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range all {
		if strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, categoriesCacheKey)
	}
}
