// Package fallback serves the bundled static datasets used when a remote
// collection is unavailable or has nothing to say for a query.
package fallback

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/archsearch/internal/archive"
)

//go:embed data/*.yaml
var embedded embed.FS

// Record is one entry of a bundled dataset.
type Record struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Summary string   `yaml:"summary"`
	Tags    []string `yaml:"tags"`
	Decade  string   `yaml:"decade"`
	Meta    string   `yaml:"meta"`
	Href    string   `yaml:"href"`
}

// haystack is the lower-cased text a query is matched against.
func (r Record) haystack() string {
	parts := []string{r.Title, r.Summary, strings.Join(r.Tags, " "), r.Decade}
	return strings.ToLower(strings.Join(parts, " "))
}

type entry struct {
	result   archive.Result
	haystack string
}

// Index answers substring queries over one dataset per category. It is
// immutable after construction and safe for concurrent use.
type Index struct {
	entries map[archive.Category][]entry
}

var (
	embeddedOnce  sync.Once
	embeddedIndex *Index
	embeddedErr   error
)

// New returns the index over the embedded datasets. The datasets are parsed
// once per process.
func New() (*Index, error) {
	embeddedOnce.Do(func() {
		embeddedIndex, embeddedErr = Load(embedded, "data")
	})
	return embeddedIndex, embeddedErr
}

// Load reads <dir>/<category-slug>.yaml for every category from fsys. A
// missing file leaves that category empty.
func Load(fsys fs.FS, dir string) (*Index, error) {
	records := make(map[archive.Category][]Record, len(archive.Categories()))
	for _, c := range archive.Categories() {
		name := path.Join(dir, c.String()+".yaml")
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var recs []Record
		if err := yaml.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		records[c] = recs
	}
	return NewFromRecords(records), nil
}

// Overlay loads override datasets from fsys and keeps the embedded dataset
// for every category the override does not provide.
func Overlay(fsys fs.FS, dir string) (*Index, error) {
	base, err := New()
	if err != nil {
		return nil, err
	}
	override, err := Load(fsys, dir)
	if err != nil {
		return nil, err
	}
	merged := &Index{entries: make(map[archive.Category][]entry, len(base.entries))}
	for c, e := range base.entries {
		merged.entries[c] = e
	}
	for c, e := range override.entries {
		merged.entries[c] = e
	}
	return merged, nil
}

// NewFromRecords builds an index from caller-supplied records.
func NewFromRecords(records map[archive.Category][]Record) *Index {
	idx := &Index{entries: make(map[archive.Category][]entry, len(records))}
	for c, recs := range records {
		entries := make([]entry, 0, len(recs))
		for _, r := range recs {
			if r.ID == "" || r.Title == "" {
				continue
			}
			href := r.Href
			if href == "" {
				href = c.ItemHref(r.ID)
			}
			entries = append(entries, entry{
				result: archive.Result{
					ID:          r.ID,
					Title:       r.Title,
					Meta:        r.Meta,
					Description: r.Summary,
					Href:        href,
					Category:    c,
				},
				haystack: r.haystack(),
			})
		}
		idx.entries[c] = entries
	}
	return idx
}

// Search returns every record of category c whose searchable text contains
// the query, case-insensitively, in dataset order.
func (i *Index) Search(c archive.Category, query string) []archive.Result {
	if i == nil {
		return nil
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}
	var out []archive.Result
	for _, e := range i.entries[c] {
		if strings.Contains(e.haystack, needle) {
			out = append(out, e.result)
		}
	}
	return out
}

// SearchAll runs Search for every category.
func (i *Index) SearchAll(query string) map[archive.Category][]archive.Result {
	out := make(map[archive.Category][]archive.Result, len(archive.Categories()))
	for _, c := range archive.Categories() {
		out[c] = i.Search(c, query)
	}
	return out
}

// Len returns the number of records held for category c.
func (i *Index) Len(c archive.Category) int {
	if i == nil {
		return 0
	}
	return len(i.entries[c])
}
