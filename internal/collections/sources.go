package collections

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/oakwood-commons/archsearch/internal/archive"
	"github.com/oakwood-commons/archsearch/internal/config"
)

// NewSources builds one Client per remote category from the collection
// settings. Offline settings yield no sources. Extra options apply to every
// client after the settings-derived ones.
func NewSources(cfg config.CollectionsSettings, limit int, opts ...Option) (map[archive.Category]Source, error) {
	sources := make(map[archive.Category]Source)
	if cfg.Offline {
		return sources, nil
	}

	endpoints := config.DefaultEndpoints()
	for slug, path := range cfg.Endpoints {
		endpoints[slug] = path
	}

	for _, c := range archive.RemoteCategories() {
		path, ok := endpoints[c.String()]
		if !ok || strings.TrimSpace(path) == "" {
			continue
		}
		endpoint, err := ResolveEndpoint(cfg.BaseURL, path)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", c, err)
		}
		clientOpts := []Option{WithLimit(limit), WithTimeout(cfg.Timeout)}
		if cfg.Breaker.Enabled {
			clientOpts = append(clientOpts, WithBreaker(cfg.Breaker.Failures, cfg.Breaker.Cooldown))
		}
		clientOpts = append(clientOpts, opts...)
		sources[c] = NewClient(c, endpoint, clientOpts...)
	}
	return sources, nil
}

// ResolveEndpoint joins a collection path onto base. A path that is already an
// absolute URL is returned unchanged.
func ResolveEndpoint(base, path string) (string, error) {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if !b.IsAbs() {
		return "", fmt.Errorf("base url %q is not absolute", base)
	}
	return strings.TrimRight(b.String(), "/") + "/" + strings.TrimLeft(path, "/"), nil
}
