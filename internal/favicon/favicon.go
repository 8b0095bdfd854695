// Package favicon derives a favicon URL for a bookmarked site.
//
// linkshelf never fetches icons itself. It points at Google's public favicon
// service, which takes the site's host and returns a 64px icon.
package favicon

import (
	"net/url"
	"strings"
)

const serviceURL = "https://www.google.com/s2/favicons?sz=64&domain_url="

// Fallback is returned when the link URL cannot be parsed into a host.
const Fallback = serviceURL + "example.com"

// FromURL returns the favicon-service URL for the host of raw.
//
// FromURL never fails: a URL that does not parse, has no scheme, or has an
// empty host yields Fallback.
func FromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return Fallback
	}
	return serviceURL + url.QueryEscape(u.Hostname())
}
