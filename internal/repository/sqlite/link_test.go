package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/linkfilter"
	"github.com/sakif/linkshelf/internal/model"
)

// newTestDB opens a fresh in-memory database with the schema applied.
// Each test gets its own database, destroyed when the test finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test db")
	t.Cleanup(func() { db.Close() })
	return db
}

func seedCategories(t *testing.T, db *DB, cats ...model.Category) {
	t.Helper()
	for i := range cats {
		require.NoError(t, db.CreateCategory(context.Background(), &cats[i]))
	}
}

func createTestLink(t *testing.T, db *DB, name, categoryID string, rating float64) *model.Link {
	t.Helper()
	link := &model.Link{
		Name:        name,
		Description: name + " description text",
		URL:         "https://example.com/" + name,
		CategoryID:  categoryID,
		Rating:      rating,
	}
	require.NoError(t, db.Create(context.Background(), link))
	return link
}

// fixedClock makes DateAdded predictable.
func fixedClock(db *DB, day string) {
	ts, _ := time.Parse(model.DateLayout, day)
	db.now = func() time.Time { return ts }
}

func TestOpen_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Options{})
	assert.Error(t, err, "empty URL must be rejected")

	_, err = Open(ctx, Options{DatabaseURL: "libsql://shelf.turso.io"})
	assert.ErrorContains(t, err, "auth token")
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("libsql://shelf-me.turso.io"))
	assert.True(t, IsRemote("https://shelf-me.turso.io"))
	assert.True(t, IsRemote("wss://shelf-me.turso.io"))
	assert.False(t, IsRemote(":memory:"))
	assert.False(t, IsRemote("data/linkshelf.db"))
	assert.False(t, IsRemote("file:data/linkshelf.db"))
}

func TestInitialize_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Initialize(ctx))
	require.NoError(t, db.Initialize(ctx))
	assert.NoError(t, db.Ping(ctx))
	assert.Equal(t, CollationLinkName, db.Collation())
	assert.False(t, db.Remote())
}

func TestInitialize_AddsFaviconColumnToOldSchema(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Options{DatabaseURL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.conn.ExecContext(ctx, `CREATE TABLE categories (id TEXT PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.conn.ExecContext(ctx, `CREATE TABLE links (
		id TEXT PRIMARY KEY, name TEXT NOT NULL, description TEXT NOT NULL,
		url TEXT NOT NULL, category_id TEXT NOT NULL REFERENCES categories(id),
		rating REAL NOT NULL DEFAULT 0, date_added TEXT NOT NULL)`)
	require.NoError(t, err)

	require.NoError(t, db.Initialize(ctx))

	var count int
	require.NoError(t, db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('links') WHERE name = 'favicon_url'`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCreate_AssignsIDAndDate(t *testing.T) {
	db := newTestDB(t)
	seedCategories(t, db, model.Category{ID: "dev", Name: "Development"})
	fixedClock(db, "2024-05-06")

	link := &model.Link{ID: "ignored", DateAdded: "1999-01-01", Name: "Go", Description: "The Go language", URL: "https://go.dev", CategoryID: "dev", Rating: 5}
	require.NoError(t, db.Create(context.Background(), link))

	assert.NotEqual(t, "ignored", link.ID)
	assert.Len(t, link.ID, 20, "xid strings are 20 chars")
	assert.Equal(t, "2024-05-06", link.DateAdded)

	got, err := db.GetByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, "Development", got.CategoryName)
	assert.Equal(t, "", got.FaviconURL, "NULL favicon reads back as empty")
	assert.Equal(t, 5.0, got.Rating)
}

func TestCreate_UnknownCategory(t *testing.T) {
	db := newTestDB(t)

	link := &model.Link{Name: "Go", Description: "The Go language", URL: "https://go.dev", CategoryID: "nope"}
	err := db.Create(context.Background(), link)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "got %v", err)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "categoryId", appErr.Field)
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestList_PaginationAndTotal(t *testing.T) {
	db := newTestDB(t)
	seedCategories(t, db, model.Category{ID: "dev", Name: "Development"})
	for _, name := range []string{"delta", "alpha", "echo", "charlie", "bravo"} {
		createTestLink(t, db, name, "dev", 3)
	}
	ctx := context.Background()

	q := model.LinkQuery{Page: 1, PageSize: 2, Sort: model.SortName}.Normalize()
	page1, total, err := db.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)
	assert.Equal(t, "alpha", page1[0].Name)
	assert.Equal(t, "bravo", page1[1].Name)

	q.Page = 3
	page3, total, err := db.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page3, 1)
	assert.Equal(t, "echo", page3[0].Name)

	q.Page = 4
	beyond, total, err := db.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 5, total, "total is independent of the page")
	assert.Empty(t, beyond)
}

func TestList_FiltersAndSorts(t *testing.T) {
	db := newTestDB(t)
	seedCategories(t, db,
		model.Category{ID: "dev", Name: "Development"},
		model.Category{ID: "web", Name: "Web"},
	)
	ctx := context.Background()

	fixedClock(db, "2024-01-01")
	goLink := createTestLink(t, db, "Go", "dev", 5)
	fixedClock(db, "2024-03-01")
	htmx := createTestLink(t, db, "htmx", "web", 4)
	fixedClock(db, "2024-02-01")
	alpine := createTestLink(t, db, "Alpine", "web", 4)

	tests := []struct {
		name      string
		q         model.LinkQuery
		wantIDs   []string
		wantTotal int
	}{
		{
			name:      "name ascending ignores case",
			q:         model.LinkQuery{Sort: model.SortName},
			wantIDs:   []string{alpine.ID, goLink.ID, htmx.ID},
			wantTotal: 3,
		},
		{
			name:      "date descending",
			q:         model.LinkQuery{Sort: model.SortDate},
			wantIDs:   []string{htmx.ID, alpine.ID, goLink.ID},
			wantTotal: 3,
		},
		{
			name:      "category ascending with id tie-break",
			q:         model.LinkQuery{Sort: model.SortCategory},
			wantIDs:   []string{goLink.ID, minID(htmx.ID, alpine.ID), maxID(htmx.ID, alpine.ID)},
			wantTotal: 3,
		},
		{
			name:      "rating descending with id tie-break",
			q:         model.LinkQuery{Sort: model.SortRating},
			wantIDs:   []string{goLink.ID, minID(htmx.ID, alpine.ID), maxID(htmx.ID, alpine.ID)},
			wantTotal: 3,
		},
		{
			name:      "category filter",
			q:         model.LinkQuery{CategoryIDs: []string{"web"}},
			wantIDs:   []string{alpine.ID, htmx.ID},
			wantTotal: 2,
		},
		{
			name:      "search is case-insensitive on name",
			q:         model.LinkQuery{Search: "HTM"},
			wantIDs:   []string{htmx.ID},
			wantTotal: 1,
		},
		{
			name:      "search matches description",
			q:         model.LinkQuery{Search: "description"},
			wantIDs:   []string{alpine.ID, goLink.ID, htmx.ID},
			wantTotal: 3,
		},
		{
			name:      "LIKE wildcards match literally",
			q:         model.LinkQuery{Search: "%"},
			wantIDs:   []string{},
			wantTotal: 0,
		},
		{
			name:      "search and category combined",
			q:         model.LinkQuery{Search: "alp", CategoryIDs: []string{"dev"}},
			wantIDs:   []string{},
			wantTotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := db.List(ctx, tt.q.Normalize())
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			ids := make([]string, len(got))
			for i, l := range got {
				ids[i] = l.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

// TestList_MatchesInMemoryEngine checks that a SQL listing and the
// in-memory engine agree on every backend collation.
func TestList_MatchesInMemoryEngine(t *testing.T) {
	db := newTestDB(t)
	seedCategories(t, db,
		model.Category{ID: "dev", Name: "Development"},
		model.Category{ID: "eu", Name: "Événements"},
		model.Category{ID: "web", Name: "web"},
	)
	ctx := context.Background()

	links := []struct {
		name, category, day string
		rating              float64
	}{
		{"Zed", "dev", "2024-01-01", 4},
		{"Équipe", "eu", "2024-02-01", 3},
		{"Go", "dev", "2024-02-01", 5},
		{"apple", "web", "2024-03-01", 4},
		{"go", "web", "2024-01-01", 5},
		{"Éclair", "eu", "2024-03-01", 2},
		{"zebra", "web", "2024-02-01", 3},
	}
	for _, l := range links {
		fixedClock(db, l.day)
		createTestLink(t, db, l.name, l.category, l.rating)
	}

	all, err := db.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(links))

	sortKeys := []model.SortKey{model.SortName, model.SortDate, model.SortCategory, model.SortRating}
	searches := []string{"", "e", "GO"}
	filters := [][]string{nil, {"eu", "web"}}

	for _, collation := range []string{CollationLinkName, CollationNoCase} {
		db.collation = collation
		compare := linkfilter.ForSQL(collation)

		for _, key := range sortKeys {
			for _, search := range searches {
				for _, cats := range filters {
					q := model.LinkQuery{PageSize: 100, Search: search, CategoryIDs: cats, Sort: key}.Normalize()
					got, total, err := db.List(ctx, q)
					require.NoError(t, err)

					want := linkfilter.FilterAndSortWith(all, search, cats, key, compare)
					assert.Equal(t, linkNames(want), linkNames(got),
						"collation=%s sort=%s search=%q categories=%v", collation, key, search, cats)
					assert.Equal(t, len(want), total)
				}
			}
		}
	}
}

func linkNames(links []model.Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.Name + "/" + l.ID
	}
	return out
}

func minID(a, b string) string {
	if a < b {
		return a
	}
	return b
}

func maxID(a, b string) string {
	if a > b {
		return a
	}
	return b
}

func TestList_SkipsOrphans(t *testing.T) {
	db := newTestDB(t)
	seedCategories(t, db, model.Category{ID: "dev", Name: "Development"})
	createTestLink(t, db, "Go", "dev", 5)
	ctx := context.Background()

	// Bypass the foreign key to simulate a row left behind by another tool.
	_, err := db.conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`)
	require.NoError(t, err)
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO links (id, name, description, url, category_id, rating, date_added)
		 VALUES ('orphan', 'Orphan', 'no category row', 'https://x.test', 'gone', 1, '2024-01-01')`)
	require.NoError(t, err)

	links, total, err := db.List(ctx, model.LinkQuery{}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, links, 1)

	all, err := db.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = db.GetByID(ctx, "orphan")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	seedCategories(t, db,
		model.Category{ID: "dev", Name: "Development"},
		model.Category{ID: "web", Name: "Web"},
	)
	fixedClock(db, "2024-01-01")
	link := createTestLink(t, db, "Go", "dev", 3)
	fixedClock(db, "2025-09-09")
	ctx := context.Background()

	name := "Go language"
	cat := "web"
	rating := 4.5
	require.NoError(t, db.Update(ctx, link.ID, model.LinkPatch{Name: &name, CategoryID: &cat, Rating: &rating}))

	got, err := db.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go language", got.Name)
	assert.Equal(t, "Web", got.CategoryName, "category name comes from the join")
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, link.Description, got.Description, "untouched fields keep their value")
	assert.Equal(t, "2024-01-01", got.DateAdded, "dateAdded never changes")
}

func TestUpdate_Errors(t *testing.T) {
	db := newTestDB(t)
	seedCategories(t, db, model.Category{ID: "dev", Name: "Development"})
	link := createTestLink(t, db, "Go", "dev", 3)
	ctx := context.Background()

	name := "anything"
	err := db.Update(ctx, "missing", model.LinkPatch{Name: &name})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = db.Update(ctx, link.ID, model.LinkPatch{})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	bad := "nope"
	err = db.Update(ctx, link.ID, model.LinkPatch{CategoryID: &bad})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUpdate_ClearsFavicon(t *testing.T) {
	db := newTestDB(t)
	seedCategories(t, db, model.Category{ID: "dev", Name: "Development"})
	ctx := context.Background()

	link := &model.Link{Name: "Go", Description: "The Go language", URL: "https://go.dev", FaviconURL: "https://go.dev/icon.png", CategoryID: "dev"}
	require.NoError(t, db.Create(ctx, link))

	empty := ""
	require.NoError(t, db.Update(ctx, link.ID, model.LinkPatch{FaviconURL: &empty}))

	got, err := db.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.FaviconURL)
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	seedCategories(t, db, model.Category{ID: "dev", Name: "Development"})
	link := createTestLink(t, db, "Go", "dev", 3)
	ctx := context.Background()

	require.NoError(t, db.Delete(ctx, link.ID))

	_, err := db.GetByID(ctx, link.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = db.Delete(ctx, link.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "second delete reports not found")
}
