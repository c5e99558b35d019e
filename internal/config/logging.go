package config

import (
	"sort"

	"github.com/go-logr/logr"
)

// Log writes the resolved settings at debug verbosity, skipping sections that
// do not apply to the current mode.
func Log(lgr logr.Logger, s *Settings) {
	l := lgr.V(1)
	l.Info("config: search", "debounce", s.Search.Debounce.String(), "limit", s.Search.Limit, "fallback_on_empty", s.Search.FallbackOnEmpty)
	l.Info("config: site", "base_url", s.Site.BaseURL, "catalog_route", s.Site.CatalogRoute)

	if s.Collections.Offline {
		l.Info("config: collections", "offline", true)
	} else {
		slugs := make([]string, 0, len(s.Collections.Endpoints))
		for slug := range s.Collections.Endpoints {
			slugs = append(slugs, slug)
		}
		sort.Strings(slugs)
		l.Info("config: collections", "base_url", s.Collections.BaseURL, "endpoints", slugs, "timeout", s.Collections.Timeout.String())
		if s.Collections.Breaker.Enabled {
			l.Info("config: collections.breaker", "failures", s.Collections.Breaker.Failures, "cooldown", s.Collections.Breaker.Cooldown.String())
		}
	}

	if s.Fallback.Dir != "" {
		l.Info("config: fallback", "dir", s.Fallback.Dir)
	}
	if s.Metrics.Addr != "" {
		l.Info("config: metrics", "addr", s.Metrics.Addr)
	}
}

// LogServe writes the development server settings.
func LogServe(lgr logr.Logger, s *Settings) {
	lgr.Info("config: serve", "addr", s.Serve.Addr, "latency", s.Serve.Latency.String(), "jitter", s.Serve.Jitter.String(), "fail", s.Serve.Fail, "empty", s.Serve.Empty)
}
