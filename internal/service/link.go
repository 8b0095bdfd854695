// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept plain Go values, not HTTP types, so the same code backs
// the JSON API, the admin pages and the shelfctl CLI.
//
// READS NEVER FAIL:
// A listing that cannot be read is reported as empty (and logged), so the
// gallery degrades to "no links" instead of an error page. Writes return
// their error to the caller.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/cache"
	"github.com/sakif/linkshelf/internal/favicon"
	"github.com/sakif/linkshelf/internal/linkfilter"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

// LinkService handles business logic for links.
type LinkService struct {
	repo   repository.LinkRepository
	cache  cache.ListCache
	logger *slog.Logger
}

// NewLinkService creates a LinkService. A nil cache disables caching.
func NewLinkService(repo repository.LinkRepository, c cache.ListCache, logger *slog.Logger) *LinkService {
	if c == nil {
		c = cache.Noop{}
	}
	return &LinkService{repo: repo, cache: c, logger: logger}
}

// ListLinks returns one page of links matching q. Out-of-range paging
// values are clamped (see model.LinkQuery.Normalize). On a storage error it
// logs and returns an empty page with Total 0.
func (s *LinkService) ListLinks(ctx context.Context, q model.LinkQuery) model.LinkPage {
	q = q.Normalize()

	page, err := readThrough(ctx, s.cache, s.logger, cache.PageKey(q), func() (model.LinkPage, error) {
		items, total, err := s.repo.List(ctx, q)
		if err != nil {
			return model.LinkPage{}, err
		}
		return model.LinkPage{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
	})
	if err != nil {
		s.logger.Error("failed to list links",
			slog.Int("page", q.Page),
			slog.Int("pageSize", q.PageSize),
			slog.String("search", q.Search),
			slog.String("error", err.Error()),
		)
		return model.EmptyPage(q)
	}
	return page
}

// Browse loads the whole catalog once (cached) and refines it in memory
// with the store's collation. Both the gallery page and `shelfctl links
// list` use it.
func (s *LinkService) Browse(ctx context.Context, search string, categoryIDs []string, sort model.SortKey) []model.Link {
	return linkfilter.FilterAndSortWith(s.allLinks(ctx), search, categoryIDs, sort, linkfilter.ForSQL(s.repo.Collation()))
}

func (s *LinkService) allLinks(ctx context.Context) []model.Link {
	all, err := readThrough(ctx, s.cache, s.logger, cache.KeyAllLinks, func() ([]model.Link, error) {
		return s.repo.ListAll(ctx)
	})
	if err != nil {
		s.logger.Error("failed to load links", slog.String("error", err.Error()))
		return []model.Link{}
	}
	return all
}

// GetLink returns a single link or an apperror.NotFound.
func (s *LinkService) GetLink(ctx context.Context, id string) (*model.Link, error) {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting link: %w", err)
	}
	return link, nil
}

// CreateLink validates the input, fills in a favicon when none was given,
// and stores the link. The returned link carries its new id, its date and
// the category name.
func (s *LinkService) CreateLink(ctx context.Context, in model.CreateLinkInput) (*model.Link, error) {
	in = in.Trim()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	link := &model.Link{
		Name:        in.Name,
		Description: in.Description,
		URL:         in.URL,
		FaviconURL:  in.FaviconURL,
		CategoryID:  in.CategoryID,
		Rating:      in.Rating,
	}
	if link.FaviconURL == "" {
		link.FaviconURL = favicon.FromURL(link.URL)
	}

	if err := s.repo.Create(ctx, link); err != nil {
		s.logger.Error("failed to create link",
			slog.String("name", link.Name),
			slog.String("categoryId", link.CategoryID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating link: %w", err)
	}
	s.invalidate(ctx)

	s.logger.Info("link created",
		slog.String("id", link.ID),
		slog.String("name", link.Name),
	)
	return s.reload(ctx, link), nil
}

// UpdateLink applies the supplied fields of in to the link with the given
// id. An update with no fields is rejected without touching storage. When
// the URL changes and no favicon was supplied, the favicon is derived from
// the new URL. dateAdded never changes.
func (s *LinkService) UpdateLink(ctx context.Context, id string, in model.UpdateLinkInput) (*model.Link, error) {
	if in.IsEmpty() {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}
	in = in.Trim()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("updating link: %w", err)
	}

	patch := model.LinkPatch{
		Name:        in.Name,
		Description: in.Description,
		URL:         in.URL,
		FaviconURL:  in.FaviconURL,
		CategoryID:  in.CategoryID,
		Rating:      in.Rating,
	}
	if in.URL != nil && in.FaviconURL == nil && *in.URL != current.URL {
		fav := favicon.FromURL(*in.URL)
		patch.FaviconURL = &fav
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		s.logger.Error("failed to update link",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating link: %w", err)
	}
	s.invalidate(ctx)

	s.logger.Info("link updated", slog.String("id", id))
	return s.reload(ctx, &model.Link{ID: id}), nil
}

// DeleteLink removes a link. Deleting an id that does not exist is a
// NotFound failure.
func (s *LinkService) DeleteLink(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting link: %w", err)
	}
	s.invalidate(ctx)

	s.logger.Info("link deleted", slog.String("id", id))
	return nil
}

// reload re-reads a link after a write so the caller sees the joined
// category name. If the read fails the written value is returned as is.
func (s *LinkService) reload(ctx context.Context, written *model.Link) *model.Link {
	fresh, err := s.repo.GetByID(ctx, written.ID)
	if err != nil {
		s.logger.Warn("could not reload link after write",
			slog.String("id", written.ID),
			slog.String("error", err.Error()),
		)
		return written
	}
	return fresh
}

func (s *LinkService) invalidate(ctx context.Context) {
	invalidate(ctx, s.cache, s.logger)
}

// invalidate drops every cached listing. A cache failure is logged; the
// write it follows has already succeeded.
func invalidate(ctx context.Context, c cache.ListCache, logger *slog.Logger) {
	if err := c.Invalidate(ctx); err != nil {
		logger.Warn("cache invalidation failed", slog.String("error", err.Error()))
	}
}

// readThrough serves key from c, or calls load and caches its result. The
// generation is taken before load runs, so a result that raced with a
// write is stored under the generation that write retired. Cache failures
// are logged and fall back to load; load's error is returned as is.
func readThrough[T any](ctx context.Context, c cache.ListCache, logger *slog.Logger, key string, load func() (T, error)) (T, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		logger.Warn("cache generation unavailable", slog.String("key", key), slog.String("error", err.Error()))
		return load()
	}
	key = cache.Versioned(gen, key)

	var cached T
	if ok, err := c.Get(ctx, key, &cached); err != nil {
		logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if ok {
		return cached, nil
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v); err != nil {
		logger.Warn("cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return v, nil
}
