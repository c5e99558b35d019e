// Package archive defines the content categories searched by the overlay and
// the result and group shapes shared by every layer.
package archive

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Category is one of the fixed archive collections. The declaration order is
// the rendering order and the flattening order.
type Category int

const (
	Documents Category = iota
	Photos
	Periodicals
	Testimonials
	References
	PersonalArchives
)

// MaxGroupItems caps the number of items a single group may show.
const MaxGroupItems = 6

// ErrUnknownCategory is returned by ParseCategory for unrecognised slugs.
var ErrUnknownCategory = errors.New("unknown category")

var categorySlugs = [...]string{
	Documents:        "documents",
	Photos:           "photos",
	Periodicals:      "periodicals",
	Testimonials:     "testimonials",
	References:       "references",
	PersonalArchives: "personal-archives",
}

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{Documents, Photos, Periodicals, Testimonials, References, PersonalArchives}
}

// RemoteCategories returns the categories backed by a remote collection.
func RemoteCategories() []Category {
	out := make([]Category, 0, len(categorySlugs))
	for _, c := range Categories() {
		if c.Remote() {
			out = append(out, c)
		}
	}
	return out
}

// String returns the category slug.
func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categorySlugs[c]
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return c >= Documents && c <= PersonalArchives
}

// Remote reports whether the category has a remote collection. Personal
// archives only exist in the bundled dataset.
func (c Category) Remote() bool {
	return c.Valid() && c != PersonalArchives
}

// ParseCategory maps a slug (case-insensitive) to its Category.
func ParseCategory(s string) (Category, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for i, slug := range categorySlugs {
		if slug == needle {
			return Category(i), nil
		}
	}
	// common aliases used by the collection endpoints
	switch needle {
	case "photo-albums", "photo-archives":
		return Photos, nil
	case "personal", "personal_archives":
		return PersonalArchives, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// ParseCategories parses a list of slugs, failing on the first unknown one.
func ParseCategories(values []string) ([]Category, error) {
	out := make([]Category, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		c, err := ParseCategory(v)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ItemHref builds the in-site route of a single record.
func (c Category) ItemHref(id string) string {
	return "/" + c.String() + "/" + url.PathEscape(id)
}

// CatalogHref returns the catalog route carrying the query as the q parameter.
// An empty query returns the route unchanged.
func CatalogHref(route, query string) string {
	if route == "" {
		route = "/catalog"
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return route
	}
	sep := "?"
	if strings.Contains(route, "?") {
		sep = "&"
	}
	return route + sep + "q=" + url.QueryEscape(query)
}
