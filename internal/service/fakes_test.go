package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/linkfilter"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

// =========================================================================
// FAKE REPOSITORY
// =========================================================================
//
// fakeStore implements every repository interface in memory. Each failing
// operation can be forced with the matching *Err field to exercise the
// service's error paths.

type fakeStore struct {
	links      map[string]model.Link
	categories map[string]model.Category
	nextID     int
	collation  string

	// afterList runs inside List once the rows are read.
	afterList func()

	listErr    error
	listAllErr error
	createErr  error
	updateErr  error
	catsErr    error
	seedErr    error

	calls struct {
		list, listAll, update, getByID int
	}
}

var (
	_ repository.LinkRepository     = (*fakeStore)(nil)
	_ repository.CategoryRepository = (*fakeStore)(nil)
	_ repository.SeedRepository     = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		links: make(map[string]model.Link),
		categories: map[string]model.Category{
			"dev": {ID: "dev", Name: "Development"},
			"web": {ID: "web", Name: "Web"},
		},
	}
}

func (f *fakeStore) withCategoryName(l model.Link) model.Link {
	l.CategoryName = f.categories[l.CategoryID].Name
	return l
}

func (f *fakeStore) Create(_ context.Context, link *model.Link) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.categories[link.CategoryID]; !ok {
		return apperror.ValidationFailed("categoryId", "unknown category")
	}
	f.nextID++
	link.ID = fmt.Sprintf("fake-%d", f.nextID)
	link.DateAdded = "2024-06-01"
	f.links[link.ID] = *link
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*model.Link, error) {
	f.calls.getByID++
	l, ok := f.links[id]
	if !ok {
		return nil, apperror.NotFound("link", id)
	}
	l = f.withCategoryName(l)
	return &l, nil
}

func (f *fakeStore) List(_ context.Context, q model.LinkQuery) ([]model.Link, int, error) {
	f.calls.list++
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	all := f.sorted()
	if f.afterList != nil {
		f.afterList()
	}
	start := q.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + q.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]model.Link, error) {
	f.calls.listAll++
	if f.listAllErr != nil {
		return nil, f.listAllErr
	}
	return f.sorted(), nil
}

func (f *fakeStore) sorted() []model.Link {
	out := make([]model.Link, 0, len(f.links))
	for _, l := range f.links {
		out = append(out, f.withCategoryName(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) Update(_ context.Context, id string, p model.LinkPatch) error {
	f.calls.update++
	if f.updateErr != nil {
		return f.updateErr
	}
	l, ok := f.links[id]
	if !ok {
		return apperror.NotFound("link", id)
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.URL != nil {
		l.URL = *p.URL
	}
	if p.FaviconURL != nil {
		l.FaviconURL = *p.FaviconURL
	}
	if p.CategoryID != nil {
		l.CategoryID = *p.CategoryID
	}
	if p.Rating != nil {
		l.Rating = *p.Rating
	}
	f.links[id] = l
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.links[id]; !ok {
		return apperror.NotFound("link", id)
	}
	delete(f.links, id)
	return nil
}

func (f *fakeStore) Collation() string {
	if f.collation == "" {
		return linkfilter.SQLLinkName
	}
	return f.collation
}

func (f *fakeStore) ListCategories(_ context.Context) ([]model.Category, error) {
	if f.catsErr != nil {
		return nil, f.catsErr
	}
	out := make([]model.Category, 0, len(f.categories))
	for _, c := range f.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) CreateCategory(_ context.Context, c *model.Category) error {
	if _, ok := f.categories[c.ID]; ok {
		return apperror.Conflict("category", c.ID)
	}
	f.categories[c.ID] = *c
	return nil
}

func (f *fakeStore) ImportSeed(_ context.Context, cats []model.Category, links []model.Link) (repository.SeedResult, error) {
	var res repository.SeedResult
	if f.seedErr != nil {
		return res, f.seedErr
	}
	for _, c := range cats {
		if _, ok := f.categories[c.ID]; !ok {
			f.categories[c.ID] = c
			res.Categories++
		}
	}
	for _, l := range links {
		if _, ok := f.links[l.ID]; !ok {
			f.links[l.ID] = l
			res.Links++
		}
	}
	return res, nil
}

// =========================================================================
// FAKE CACHE
// =========================================================================

// memCache is a map-backed cache.ListCache that counts invalidations.
// Invalidate advances the generation and clears the map.
type memCache struct {
	mu            sync.Mutex
	entries       map[string]any
	gen           int64
	invalidations int
	failInvalid   bool
}

func (c *memCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func newMemCache() *memCache { return &memCache{entries: make(map[string]any)} }

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *model.LinkPage:
		*d = v.(model.LinkPage)
	case *[]model.Link:
		*d = v.([]model.Link)
	case *[]model.Category:
		*d = v.([]model.Category)
	default:
		return false, errors.New("memCache: unsupported type")
	}
	return true, nil
}

func (c *memCache) Set(_ context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	c.gen++
	c.entries = make(map[string]any)
	if c.failInvalid {
		return errors.New("redis: connection refused")
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
