package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/linkshelf/internal/cache"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

// CategoryService handles business logic for categories.
type CategoryService struct {
	repo   repository.CategoryRepository
	cache  cache.ListCache
	logger *slog.Logger
}

// NewCategoryService creates a CategoryService. A nil cache disables caching.
func NewCategoryService(repo repository.CategoryRepository, c cache.ListCache, logger *slog.Logger) *CategoryService {
	if c == nil {
		c = cache.Noop{}
	}
	return &CategoryService{repo: repo, cache: c, logger: logger}
}

// ListCategories returns every category ordered by name, or an empty list
// when storage fails.
func (s *CategoryService) ListCategories(ctx context.Context) []model.Category {
	cats, err := readThrough(ctx, s.cache, s.logger, cache.KeyCategories, func() ([]model.Category, error) {
		return s.repo.ListCategories(ctx)
	})
	if err != nil {
		s.logger.Error("failed to list categories", slog.String("error", err.Error()))
		return []model.Category{}
	}
	return cats
}

// CreateCategory validates and stores a new category. Reusing an id is a
// Conflict.
func (s *CategoryService) CreateCategory(ctx context.Context, in model.CreateCategoryInput) (*model.Category, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	cat := &model.Category{ID: in.ID, Name: in.Name}
	if err := s.repo.CreateCategory(ctx, cat); err != nil {
		s.logger.Error("failed to create category",
			slog.String("id", cat.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating category: %w", err)
	}
	invalidate(ctx, s.cache, s.logger)

	s.logger.Info("category created", slog.String("id", cat.ID), slog.String("name", cat.Name))
	return cat, nil
}
