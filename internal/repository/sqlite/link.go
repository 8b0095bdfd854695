package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

// compile-time checks that *DB implements the repository interfaces
var (
	_ repository.LinkRepository     = (*DB)(nil)
	_ repository.CategoryRepository = (*DB)(nil)
	_ repository.SeedRepository     = (*DB)(nil)
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanLink reads one row selected with repository.LinkColumns.
func scanLink(s rowScanner) (model.Link, error) {
	var (
		l       model.Link
		favicon sql.NullString
	)
	err := s.Scan(
		&l.ID, &l.Name, &l.Description, &l.URL, &favicon,
		&l.CategoryID, &l.CategoryName, &l.Rating, &l.DateAdded,
	)
	l.FaviconURL = favicon.String
	return l, err
}

// Create inserts a new link. It assigns the ID and stamps DateAdded with
// today's UTC date; any values the caller set in those fields are replaced.
//
// A category id that does not exist is reported as a validation failure on
// categoryId rather than a storage error.
func (db *DB) Create(ctx context.Context, link *model.Link) error {
	link.ID = xid.New().String()
	link.DateAdded = db.now().UTC().Format(model.DateLayout)

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO links (id, name, description, url, favicon_url, category_id, rating, date_added)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		link.ID,
		link.Name,
		link.Description,
		link.URL,
		repository.NullString(link.FaviconURL),
		link.CategoryID,
		link.Rating,
		link.DateAdded,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.ValidationFailed("categoryId",
				fmt.Sprintf("category %q does not exist", link.CategoryID))
		}
		return fmt.Errorf("sqlite: creating link: %w", err)
	}
	return nil
}

// GetByID retrieves a single link together with its category name.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Link, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+repository.LinkColumns+`
		 FROM links l JOIN categories c ON c.id = l.category_id
		 WHERE l.id = ?`,
		id,
	)
	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("link", id)
		}
		return nil, fmt.Errorf("sqlite: getting link %s: %w", id, err)
	}
	return &link, nil
}

// List returns one page of links matching q, plus the number of links that
// match q across all pages. q is expected to be normalized.
//
// The count and the page run as two statements without a transaction; a
// write landing between them can make Total off by one for that response.
func (db *DB) List(ctx context.Context, q model.LinkQuery) ([]model.Link, int, error) {
	pageSQL, pageArgs, countSQL, countArgs := repository.ListSQL(q, db.collation)

	var total int
	if err := db.conn.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting links: %w", err)
	}
	if total == 0 {
		return []model.Link{}, 0, nil
	}

	links, err := db.queryLinks(ctx, q.PageSize, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// ListAll returns every link ordered by name. It feeds the in-memory
// refinement used by the gallery page.
func (db *DB) ListAll(ctx context.Context) ([]model.Link, error) {
	return db.queryLinks(ctx, 0,
		`SELECT `+repository.LinkColumns+`
		 FROM links l JOIN categories c ON c.id = l.category_id
		 ORDER BY `+repository.OrderBy(model.SortName, db.collation))
}

func (db *DB) queryLinks(ctx context.Context, sizeHint int, query string, args ...any) ([]model.Link, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing links: %w", err)
	}
	defer rows.Close()

	links := make([]model.Link, 0, sizeHint)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning link row: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating links: %w", err)
	}
	return links, nil
}

// Update writes only the columns set in patch. id and date_added are never
// touched. A missing link is reported as NotFound.
func (db *DB) Update(ctx context.Context, id string, patch model.LinkPatch) error {
	set := repository.PatchAssignments(patch)
	if set.Len() == 0 {
		return apperror.ValidationFailed("", "no fields to update")
	}

	args := append(set.Args(), id)
	result, err := db.conn.ExecContext(ctx,
		`UPDATE links SET `+set.SQL()+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		if isForeignKeyViolation(err) && patch.CategoryID != nil {
			return apperror.ValidationFailed("categoryId",
				fmt.Sprintf("category %q does not exist", *patch.CategoryID))
		}
		return fmt.Errorf("sqlite: updating link %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("link", id)
	}
	return nil
}

// Delete removes a link by its ID.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM links WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting link %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("link", id)
	}
	return nil
}
