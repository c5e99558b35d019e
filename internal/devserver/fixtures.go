package devserver

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/archsearch/internal/archive"
)

//go:embed fixtures/*.yaml
var fixtureFS embed.FS

// fixtureName returns the collection name used for both the fixture file and
// the default route.
func fixtureName(c archive.Category) string {
	if c == archive.Photos {
		return "photo-albums"
	}
	return c.String()
}

// loadFixtures decodes one YAML file per remote category. Records stay
// untyped so they are served exactly as written.
func loadFixtures() (map[archive.Category][]map[string]any, error) {
	out := make(map[archive.Category][]map[string]any, len(archive.RemoteCategories()))
	for _, c := range archive.RemoteCategories() {
		name := "fixtures/" + fixtureName(c) + ".yaml"
		raw, err := fixtureFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var records []map[string]any
		if err := yaml.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		out[c] = records
	}
	return out, nil
}
