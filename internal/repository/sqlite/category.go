package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

// ListCategories returns all categories ordered by name.
func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name FROM categories
		 ORDER BY name COLLATE `+db.collation+` ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

// CreateCategory inserts a category with a caller-chosen id. Reusing an id
// is a Conflict.
func (db *DB) CreateCategory(ctx context.Context, category *model.Category) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?)`,
		category.ID, category.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("category", category.ID)
		}
		return fmt.Errorf("sqlite: creating category %s: %w", category.ID, err)
	}
	return nil
}

// ImportSeed inserts categories and then links in a single transaction.
// Rows whose id already exists are skipped, so running the same seed twice
// leaves the database unchanged. Links must already carry an ID and a
// DateAdded.
func (db *DB) ImportSeed(ctx context.Context, categories []model.Category, links []model.Link) (repository.SeedResult, error) {
	var res repository.SeedResult

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("sqlite: beginning seed transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer tx.Rollback()

	for _, c := range categories {
		result, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (id, name) VALUES (?, ?)`,
			c.ID, c.Name,
		)
		if err != nil {
			return repository.SeedResult{}, fmt.Errorf("sqlite: seeding category %s: %w", c.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return repository.SeedResult{}, fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		res.Categories += int(n)
	}

	for _, l := range links {
		result, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO links (id, name, description, url, favicon_url, category_id, rating, date_added)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, l.Name, l.Description, l.URL,
			repository.NullString(l.FaviconURL),
			l.CategoryID, l.Rating, l.DateAdded,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return repository.SeedResult{}, apperror.ValidationFailed("categoryId",
					fmt.Sprintf("link %s refers to unknown category %q", l.ID, l.CategoryID))
			}
			return repository.SeedResult{}, fmt.Errorf("sqlite: seeding link %s: %w", l.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return repository.SeedResult{}, fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		res.Links += int(n)
	}

	if err := tx.Commit(); err != nil {
		return repository.SeedResult{}, fmt.Errorf("sqlite: committing seed: %w", err)
	}
	return res, nil
}
