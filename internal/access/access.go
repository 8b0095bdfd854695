// Package access decides who may change the catalog.
//
// There are no roles: a signed-in user either appears on the allow-list
// (by GitHub user id or by primary email) or does not. Anyone, signed in
// or not, may browse.
package access

import "strings"

// AllowList is an immutable set of user ids and email addresses.
type AllowList struct {
	entries map[string]struct{}
}

// Parse builds an AllowList from a comma-separated value such as
// `123456, "me@example.com"`. Entries are trimmed, surrounding quotes are
// stripped and empty entries are dropped.
func Parse(raw string) AllowList {
	entries := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		entries[part] = struct{}{}
	}
	return AllowList{entries: entries}
}

// Len is the number of distinct entries.
func (a AllowList) Len() int { return len(a.entries) }

// Contains reports whether s is on the list. Matching is exact.
func (a AllowList) Contains(s string) bool {
	if s == "" {
		return false
	}
	_, ok := a.entries[s]
	return ok
}

// Gate answers the authorization question for mutating operations.
type Gate struct {
	allowed AllowList
}

// NewGate returns a Gate over list.
func NewGate(list AllowList) *Gate {
	return &Gate{allowed: list}
}

// Allows reports whether the user identified by userID, or by the primary
// email address, is on the allow-list. An empty email never matches.
func (g *Gate) Allows(userID, email string) bool {
	if g == nil {
		return false
	}
	return g.allowed.Contains(userID) || g.allowed.Contains(email)
}
