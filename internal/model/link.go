// Package model defines the data structures used throughout the application.
package model

import "strings"

// Category is a named grouping that every Link belongs to.
// Categories are created by the seed step or by an operator; nothing in
// linkshelf deletes them.
type Category struct {
	ID   string `json:"id"   yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Link is a single bookmarked URL.
//
// CategoryName is a read projection: every read path joins the categories
// table to fill it. It is never written to the links table, so renaming a
// category is immediately visible on all of its links.
type Link struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	URL          string  `json:"url"`
	FaviconURL   string  `json:"faviconUrl,omitempty"` // "" means NULL in storage
	CategoryID   string  `json:"categoryId"`
	CategoryName string  `json:"categoryName"`
	Rating       float64 `json:"rating"`
	DateAdded    string  `json:"dateAdded"` // YYYY-MM-DD, set once at creation
}

// DateLayout is the day-precision format of Link.DateAdded.
const DateLayout = "2006-01-02"

// SortKey selects the ordering of a link listing.
type SortKey string

const (
	SortName     SortKey = "name"     // name ascending
	SortDate     SortKey = "date"     // dateAdded descending
	SortCategory SortKey = "category" // categoryName ascending
	SortRating   SortKey = "rating"   // rating descending
)

// ParseSortKey maps user input to a SortKey. Anything unrecognised falls
// back to SortName so every listing has a deterministic order.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortName, SortDate, SortCategory, SortRating:
		return k
	default:
		return SortName
	}
}

// Pagination limits.
const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// LinkQuery describes one page of a filtered, sorted listing.
// Page is 1-indexed.
type LinkQuery struct {
	Page        int
	PageSize    int
	Search      string
	CategoryIDs []string
	Sort        SortKey
}

// Normalize clamps pagination to safe values, trims the search text, drops
// blank category ids and resolves the sort key. The result never produces a
// negative OFFSET.
func (q LinkQuery) Normalize() LinkQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Sort = ParseSortKey(string(q.Sort))

	ids := make([]string, 0, len(q.CategoryIDs))
	for _, id := range q.CategoryIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	q.CategoryIDs = ids
	return q
}

// Offset is the number of rows skipped before this page.
func (q LinkQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// LinkPage is one page of results plus the total number of matches.
type LinkPage struct {
	Items    []Link `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// EmptyPage is the result reported when a listing could not be read.
func EmptyPage(q LinkQuery) LinkPage {
	return LinkPage{Items: []Link{}, Total: 0, Page: q.Page, PageSize: q.PageSize}
}

// LinkPatch lists the columns an update touches. A nil field is left as is.
// DateAdded and ID are deliberately absent: both are immutable.
type LinkPatch struct {
	Name        *string
	Description *string
	URL         *string
	FaviconURL  *string
	CategoryID  *string
	Rating      *float64
}

// IsEmpty reports whether the patch changes nothing.
func (p LinkPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.URL == nil &&
		p.FaviconURL == nil && p.CategoryID == nil && p.Rating == nil
}
