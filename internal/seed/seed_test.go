package seed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
categories:
  - id: dev
    name: Development
    links:
      - id: link_go
        name: Go
        description: The Go programming language
        url: https://go.dev
        rating: 5
        dateAdded: 2024-01-02
      - name: Rust
        description: A language empowering everyone
        url: https://www.rust-lang.org
        rating: 4.5
        faviconUrl: https://www.rust-lang.org/favicon.ico
  - id: web
    name: Web
`

func TestLoadAndFlatten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Categories, 2)

	now := time.Date(2025, 3, 4, 23, 30, 0, 0, time.UTC)
	cats, links, err := f.Flatten(now)
	require.NoError(t, err)

	assert.Len(t, cats, 2)
	assert.Equal(t, "Web", cats[1].Name)
	require.Len(t, links, 2)

	goLink := links[0]
	assert.Equal(t, "link_go", goLink.ID)
	assert.Equal(t, "dev", goLink.CategoryID)
	assert.Equal(t, "2024-01-02", goLink.DateAdded, "dates stay as written")
	assert.Equal(t, "https://www.google.com/s2/favicons?sz=64&domain_url=go.dev", goLink.FaviconURL)

	rust := links[1]
	assert.Equal(t, LinkID("dev", "https://www.rust-lang.org"), rust.ID, "missing ids are derived")
	assert.Equal(t, "2025-03-04", rust.DateAdded)
	assert.Equal(t, 4.5, rust.Rating)
	assert.Equal(t, "https://www.rust-lang.org/favicon.ico", rust.FaviconURL)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("categories:\n  - id: dev\n    nmae: typo\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFlatten_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "category without id", doc: "categories:\n  - name: Nameless\n"},
		{name: "duplicate category", doc: "categories:\n  - id: dev\n    name: A\n  - id: dev\n    name: B\n"},
		{name: "same url twice in a category", doc: "categories:\n  - id: dev\n    name: Dev\n    links:\n      - name: Go\n        url: https://go.dev\n      - name: Golang\n        url: https://go.dev\n"},
		{name: "duplicate explicit link id", doc: "categories:\n  - id: dev\n    name: Dev\n    links:\n      - id: x\n        name: Go\n  - id: web\n    name: Web\n    links:\n      - id: x\n        name: htmx\n"},
		{name: "bad date", doc: "categories:\n  - id: dev\n    name: Dev\n    links:\n      - name: Go\n        dateAdded: 02/01/2024\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			_, _, err = f.Flatten(time.Now())
			assert.Error(t, err)
		})
	}
}

func TestFlatten_DerivedIDsAreStable(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	_, first, err := f.Flatten(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, second, err := f.Flatten(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestLinkID(t *testing.T) {
	id := LinkID("dev", "https://go.dev")
	assert.Equal(t, id, LinkID("dev", "https://go.dev"))
	assert.Regexp(t, `^link_[0-9a-f]{16}$`, id)
	assert.NotEqual(t, id, LinkID("web", "https://go.dev"), "the category is part of the id")
	assert.NotEqual(t, id, LinkID("dev", "https://go.dev/doc"))
}
