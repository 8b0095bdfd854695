// Package repository declares the storage contracts the service layer
// depends on, plus the SQL fragments shared by every implementation.
package repository

import (
	"context"

	"github.com/sakif/linkshelf/internal/model"
)

// LinkRepository stores links. Every read joins the owning category, so a
// link whose category row is missing is never returned.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetByID(ctx context.Context, id string) (*model.Link, error)
	// List returns one page plus the number of rows matching the same
	// predicate. q must already be normalized.
	List(ctx context.Context, q model.LinkQuery) ([]model.Link, int, error)
	ListAll(ctx context.Context) ([]model.Link, error)
	Update(ctx context.Context, id string, patch model.LinkPatch) error
	Delete(ctx context.Context, id string) error
	// Collation names the SQL collation text columns are ordered with,
	// so in-memory sorting can match (see linkfilter.ForSQL).
	Collation() string
}

// CategoryRepository stores categories.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
}

// SeedRepository imports a seed data set in one transaction, skipping rows
// whose id already exists. It reports how many rows were actually inserted.
type SeedRepository interface {
	ImportSeed(ctx context.Context, categories []model.Category, links []model.Link) (SeedResult, error)
}

// SeedResult counts the rows a seed import inserted.
type SeedResult struct {
	Categories int `json:"categories"`
	Links      int `json:"links"`
}
