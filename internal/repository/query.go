package repository

import (
	"strings"

	"github.com/sakif/linkshelf/internal/model"
)

// Clause is one SQL boolean expression with its positional arguments.
type Clause struct {
	SQL  string
	Args []any
}

// Predicate is a conjunction of clauses.
type Predicate []Clause

// SQL renders the predicate for a WHERE clause. An empty predicate renders
// as "1=1" so callers can always write "WHERE " + p.SQL().
func (p Predicate) SQL() string {
	if len(p) == 0 {
		return "1=1"
	}
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.SQL
	}
	return strings.Join(parts, " AND ")
}

// Args returns the arguments of all clauses in order.
func (p Predicate) Args() []any {
	var args []any
	for _, c := range p {
		args = append(args, c.Args...)
	}
	return args
}

// likeEscaper escapes LIKE metacharacters so user input always matches
// literally. The backslash goes first.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchClause matches text as a substring of the link's name or
// description. SQLite's LIKE folds ASCII letters only.
// An empty (or all-whitespace) text yields ok == false.
func SearchClause(text string) (c Clause, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Clause{}, false
	}
	pattern := "%" + likeEscaper.Replace(text) + "%"
	return Clause{
		SQL:  `(l.name LIKE ? ESCAPE '\' OR l.description LIKE ? ESCAPE '\')`,
		Args: []any{pattern, pattern},
	}, true
}

// CategoryClause restricts links to the given category ids.
// An empty id list yields ok == false.
func CategoryClause(ids []string) (c Clause, ok bool) {
	if len(ids) == 0 {
		return Clause{}, false
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	return Clause{
		SQL:  "l.category_id IN (" + placeholders + ")",
		Args: args,
	}, true
}

// BuildPredicate combines the search and category clauses of q.
func BuildPredicate(q model.LinkQuery) Predicate {
	var p Predicate
	if c, ok := SearchClause(q.Search); ok {
		p = append(p, c)
	}
	if c, ok := CategoryClause(q.CategoryIDs); ok {
		p = append(p, c)
	}
	return p
}

// OrderBy returns the ORDER BY list for key. Text columns are compared with
// collation (LINKNAME on the embedded store, NOCASE on remote ones). Every
// ordering ends with l.id so pages never overlap or skip rows.
func OrderBy(key model.SortKey, collation string) string {
	var primary string
	switch model.ParseSortKey(string(key)) {
	case model.SortDate:
		primary = "l.date_added DESC"
	case model.SortCategory:
		primary = "c.name COLLATE " + collation + " ASC"
	case model.SortRating:
		primary = "l.rating DESC"
	default:
		primary = "l.name COLLATE " + collation + " ASC"
	}
	return primary + ", l.id ASC"
}

// Assignments builds the SET list of an UPDATE in the order columns are added.
type Assignments struct {
	cols []string
	args []any
}

// Set appends "column = ?" bound to value.
func (a *Assignments) Set(column string, value any) {
	a.cols = append(a.cols, column+" = ?")
	a.args = append(a.args, value)
}

// Len is the number of assignments.
func (a *Assignments) Len() int { return len(a.cols) }

// SQL renders the comma-separated SET list.
func (a *Assignments) SQL() string { return strings.Join(a.cols, ", ") }

// Args returns the bound values in column order.
func (a *Assignments) Args() []any { return a.args }

// PatchAssignments maps a LinkPatch onto link columns. A FaviconURL of ""
// clears the column.
func PatchAssignments(p model.LinkPatch) *Assignments {
	a := &Assignments{}
	if p.Name != nil {
		a.Set("name", *p.Name)
	}
	if p.Description != nil {
		a.Set("description", *p.Description)
	}
	if p.URL != nil {
		a.Set("url", *p.URL)
	}
	if p.FaviconURL != nil {
		a.Set("favicon_url", NullString(*p.FaviconURL))
	}
	if p.CategoryID != nil {
		a.Set("category_id", *p.CategoryID)
	}
	if p.Rating != nil {
		a.Set("rating", *p.Rating)
	}
	return a
}

// NullString stores "" as SQL NULL.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListSQL returns the page query and the count query for q. Both use the
// same FROM/JOIN/WHERE so Total always agrees with the page contents.
func ListSQL(q model.LinkQuery, collation string) (pageSQL string, pageArgs []any, countSQL string, countArgs []any) {
	p := BuildPredicate(q)
	from := " FROM links l JOIN categories c ON c.id = l.category_id WHERE " + p.SQL()

	pageSQL = "SELECT " + LinkColumns + from +
		" ORDER BY " + OrderBy(q.Sort, collation) + " LIMIT ? OFFSET ?"
	pageArgs = append(p.Args(), q.PageSize, q.Offset())

	countSQL = "SELECT COUNT(*)" + from
	countArgs = p.Args()
	return pageSQL, pageArgs, countSQL, countArgs
}

// LinkColumns is the joined select list every link read scans, in the order
// expected by a row scanner.
const LinkColumns = "l.id, l.name, l.description, l.url, l.favicon_url, l.category_id, c.name, l.rating, l.date_added"
