// Package linkfilter refines an already-loaded list of links in memory.
//
// The gallery page and `shelfctl links list` load the full catalog once and
// then narrow it here. The predicate and the ordering are the same as the
// SQL listing in package repository: a search term matches the name or
// description as an ASCII case-insensitive substring, category filters are a
// membership test, and every sort key breaks ties on id ascending. Text
// columns are compared with the Collation matching the store's SQL
// collation (see ForSQL).
package linkfilter

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sakif/linkshelf/internal/model"
)

// SQL collation names. The embedded store registers SQLLinkName backed by
// CompareText; hosted libSQL only has the built-in SQLNoCase.
const (
	SQLLinkName = "LINKNAME"
	SQLNoCase   = "NOCASE"
)

// Collation orders two display strings. It returns -1, 0 or +1.
type Collation func(a, b string) int

// ForSQL returns the in-memory equivalent of a SQL collation name.
// Unknown names get CompareText.
func ForSQL(name string) Collation {
	if strings.EqualFold(name, SQLNoCase) {
		return CompareNoCase
	}
	return CompareText
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.Und)
)

// CompareText orders two display strings the way a reader expects: accents
// and case are secondary to the base letters. It returns -1, 0 or +1.
//
// The embedded SQLite store registers this function as the LINKNAME
// collation so server-side and in-memory ordering agree.
func CompareText(a, b string) int {
	// collate.Collator keeps internal buffers and is not safe for concurrent use.
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

// CompareNoCase is SQLite's NOCASE: A-Z fold to a-z, then the bytes are
// compared, and a string sorts before any longer string it prefixes.
func CompareNoCase(a, b string) int {
	return strings.Compare(asciiLower(a), asciiLower(b))
}

// FilterAndSort returns the links matching search and categoryIDs, ordered
// by sortKey with CompareText. The input slice is never modified. An empty
// search or an empty category list does not filter; an unknown sort key
// sorts by name.
func FilterAndSort(items []model.Link, search string, categoryIDs []string, sortKey model.SortKey) []model.Link {
	return FilterAndSortWith(items, search, categoryIDs, sortKey, CompareText)
}

// FilterAndSortWith is FilterAndSort with an explicit text collation. A nil
// collation means CompareText.
func FilterAndSortWith(items []model.Link, search string, categoryIDs []string, sortKey model.SortKey, collation Collation) []model.Link {
	if collation == nil {
		collation = CompareText
	}
	needle := asciiLower(strings.TrimSpace(search))

	var cats map[string]struct{}
	if len(categoryIDs) > 0 {
		cats = make(map[string]struct{}, len(categoryIDs))
		for _, id := range categoryIDs {
			if id = strings.TrimSpace(id); id != "" {
				cats[id] = struct{}{}
			}
		}
		if len(cats) == 0 {
			cats = nil
		}
	}

	out := make([]model.Link, 0, len(items))
	for _, l := range items {
		if cats != nil {
			if _, ok := cats[l.CategoryID]; !ok {
				continue
			}
		}
		if needle != "" &&
			!strings.Contains(asciiLower(l.Name), needle) &&
			!strings.Contains(asciiLower(l.Description), needle) {
			continue
		}
		out = append(out, l)
	}

	less := lessFunc(model.ParseSortKey(string(sortKey)), collation)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func lessFunc(key model.SortKey, compare Collation) func(a, b model.Link) bool {
	byID := func(a, b model.Link) bool { return a.ID < b.ID }

	switch key {
	case model.SortDate:
		return func(a, b model.Link) bool {
			if a.DateAdded != b.DateAdded {
				return a.DateAdded > b.DateAdded
			}
			return byID(a, b)
		}
	case model.SortCategory:
		return func(a, b model.Link) bool {
			if c := compare(a.CategoryName, b.CategoryName); c != 0 {
				return c < 0
			}
			return byID(a, b)
		}
	case model.SortRating:
		return func(a, b model.Link) bool {
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			return byID(a, b)
		}
	default:
		return func(a, b model.Link) bool {
			if c := compare(a.Name, b.Name); c != 0 {
				return c < 0
			}
			return byID(a, b)
		}
	}
}

// asciiLower folds only A-Z, matching SQLite's LIKE.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
