// Package seed reads the one-time seed file that populates an empty catalog.
//
// The file lists categories, each with the links that belong to it:
//
//	categories:
//	  - id: dev
//	    name: Development
//	    links:
//	      - name: Go
//	        description: The Go programming language
//	        url: https://go.dev
//	        rating: 5
//
// Link ids, dates and favicons are optional; Flatten fills them in. A
// missing id is derived from the category id and the URL, so importing the
// same file again finds the rows it inserted the first time.
package seed

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakif/linkshelf/internal/favicon"
	"github.com/sakif/linkshelf/internal/model"
)

// File is the parsed seed document.
type File struct {
	Categories []Category `yaml:"categories"`
}

// Category is a category together with its links.
type Category struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Links []Link `yaml:"links"`
}

// Link is one seeded link. CategoryID comes from the enclosing Category.
type Link struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	URL         string  `yaml:"url"`
	Rating      float64 `yaml:"rating"`
	DateAdded   string  `yaml:"dateAdded"`
	FaviconURL  string  `yaml:"faviconUrl"`
}

// Load reads and parses a seed file from disk.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("seed: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a seed document. Unknown keys are rejected so typos do not
// silently drop data.
func Parse(data []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("seed: parsing yaml: %w", err)
	}
	return f, nil
}

// Flatten turns the nested document into rows ready for insertion. Missing
// link ids come from LinkID, missing dates become now's UTC date and missing
// favicons are derived from the link URL. Two links ending up with the same
// id are an error.
func (f File) Flatten(now time.Time) ([]model.Category, []model.Link, error) {
	today := now.UTC().Format(model.DateLayout)

	cats := make([]model.Category, 0, len(f.Categories))
	var links []model.Link
	seen := make(map[string]bool)
	seenLinks := make(map[string]string)

	for _, c := range f.Categories {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, nil, fmt.Errorf("seed: category %q has no id", c.Name)
		}
		if seen[id] {
			return nil, nil, fmt.Errorf("seed: category id %q appears twice", id)
		}
		seen[id] = true
		cats = append(cats, model.Category{ID: id, Name: strings.TrimSpace(c.Name)})

		for _, l := range c.Links {
			link := model.Link{
				ID:          strings.TrimSpace(l.ID),
				Name:        strings.TrimSpace(l.Name),
				Description: strings.TrimSpace(l.Description),
				URL:         strings.TrimSpace(l.URL),
				FaviconURL:  strings.TrimSpace(l.FaviconURL),
				CategoryID:  id,
				Rating:      l.Rating,
				DateAdded:   strings.TrimSpace(l.DateAdded),
			}
			if link.ID == "" {
				link.ID = LinkID(id, link.URL)
			}
			if prev, dup := seenLinks[link.ID]; dup {
				return nil, nil, fmt.Errorf("seed: links %q and %q share id %q (same id, or same category and url)", prev, link.Name, link.ID)
			}
			seenLinks[link.ID] = link.Name
			if link.DateAdded == "" {
				link.DateAdded = today
			} else if _, err := time.Parse(model.DateLayout, link.DateAdded); err != nil {
				return nil, nil, fmt.Errorf("seed: link %q: dateAdded %q is not YYYY-MM-DD", link.Name, link.DateAdded)
			}
			if link.FaviconURL == "" {
				link.FaviconURL = favicon.FromURL(link.URL)
			}
			links = append(links, link)
		}
	}
	return cats, links, nil
}

// LinkID derives the id of a seeded link that has none.
func LinkID(categoryID, url string) string {
	sum := sha256.Sum256([]byte(categoryID + "\x00" + url))
	return "link_" + hex.EncodeToString(sum[:8])
}
