// Package cache holds rendered listing results between mutations.
//
// Reads of the catalog vastly outnumber writes, so the service layer keeps
// the result of each distinct listing query here and drops all of them
// whenever a link or category changes. With no Redis configured the Noop
// cache is used and every read goes to the database.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/sakif/linkshelf/internal/model"
)

// ListCache stores JSON-encodable listing results by key.
//
// GENERATIONS:
// A reader takes the current Generation before it queries the database and
// stores its result under Versioned(gen, key). Invalidate moves to a new
// generation, so a result read before a write but stored after the write's
// Invalidate lands under a generation nobody asks for again.
type ListCache interface {
	// Generation returns the current generation number.
	Generation(ctx context.Context) (int64, error)
	// Get decodes the value stored under key into dst. It reports false on
	// a miss.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	// Invalidate starts a new generation and drops the cached listings.
	Invalidate(ctx context.Context) error
}

// Keys for the cached views.
const (
	KeyAllLinks   = "links:all"
	KeyCategories = "categories"
)

// Versioned scopes key to a generation.
func Versioned(gen int64, key string) string {
	return fmt.Sprintf("v%d:%s", gen, key)
}

// PageKey identifies one page of a listing. q must already be normalized
// so equivalent queries share an entry. The query is JSON encoded before
// hashing, so no choice of search text or category ids can make two
// different queries produce the same key.
func PageKey(q model.LinkQuery) string {
	data, _ := json.Marshal([]any{q.Sort, q.Page, q.PageSize, q.CategoryIDs, q.Search})
	sum := sha256.Sum256(data)
	return "links:page:" + hex.EncodeToString(sum[:])
}

// Noop never stores anything.
type Noop struct{}

var _ ListCache = Noop{}

func (Noop) Generation(context.Context) (int64, error)      { return 0, nil }
func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any) error         { return nil }
func (Noop) Invalidate(context.Context) error               { return nil }
