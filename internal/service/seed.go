package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/cache"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
	"github.com/sakif/linkshelf/internal/seed"
)

// SeedService imports a seed file into the catalog.
type SeedService struct {
	repo   repository.SeedRepository
	cache  cache.ListCache
	logger *slog.Logger
	now    func() time.Time
}

// NewSeedService creates a SeedService. A nil cache disables caching.
func NewSeedService(repo repository.SeedRepository, c cache.ListCache, logger *slog.Logger) *SeedService {
	if c == nil {
		c = cache.Noop{}
	}
	return &SeedService{repo: repo, cache: c, logger: logger, now: time.Now}
}

// Import validates every category and link in f against the same rules the
// admin form uses, then inserts them in one transaction. Existing ids are
// left untouched, so importing the same file twice is harmless. Nothing is
// written if any entry is invalid.
func (s *SeedService) Import(ctx context.Context, f seed.File) (repository.SeedResult, error) {
	cats, links, err := f.Flatten(s.now())
	if err != nil {
		return repository.SeedResult{}, apperror.ValidationFailed("seed", err.Error())
	}

	for _, c := range cats {
		if err := (model.CreateCategoryInput{ID: c.ID, Name: c.Name}).Validate(); err != nil {
			return repository.SeedResult{}, fmt.Errorf("category %s: %w", c.ID, err)
		}
	}
	for _, l := range links {
		in := model.CreateLinkInput{
			Name:        l.Name,
			Description: l.Description,
			URL:         l.URL,
			CategoryID:  l.CategoryID,
			Rating:      l.Rating,
			FaviconURL:  l.FaviconURL,
		}
		if err := in.Validate(); err != nil {
			return repository.SeedResult{}, fmt.Errorf("link %q: %w", l.Name, err)
		}
	}

	res, err := s.repo.ImportSeed(ctx, cats, links)
	if err != nil {
		s.logger.Error("seed import failed", slog.String("error", err.Error()))
		return repository.SeedResult{}, fmt.Errorf("importing seed: %w", err)
	}
	invalidate(ctx, s.cache, s.logger)

	s.logger.Info("seed imported",
		slog.Int("categories", res.Categories),
		slog.Int("links", res.Links),
		slog.Int("skipped", len(cats)+len(links)-res.Categories-res.Links),
	)
	return res, nil
}
