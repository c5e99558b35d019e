package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oakwood-commons/archsearch/internal/collections"
	"github.com/oakwood-commons/archsearch/internal/config"
	"github.com/oakwood-commons/archsearch/internal/fallback"
	"github.com/oakwood-commons/archsearch/internal/federation"
	"github.com/oakwood-commons/archsearch/pkg/settings"
)

// newSearcher wires the collection clients, the fallback dataset and the
// federation metrics registered on reg.
func newSearcher(s *config.Settings, reg prometheus.Registerer, lgr logr.Logger) (*federation.Searcher, error) {
	fb, err := loadFallback(s.Fallback.Dir)
	if err != nil {
		return nil, err
	}
	sources, err := collections.NewSources(s.Collections, s.Search.Limit,
		collections.WithUserAgent(settings.VersionInformation.UserAgent()),
		collections.WithLogger(lgr),
	)
	if err != nil {
		return nil, err
	}
	metrics, err := federation.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return federation.New(sources, fb,
		federation.WithPolicy(federation.Policy{
			FallbackOnEmpty: s.Search.FallbackOnEmpty,
			Limit:           s.Search.Limit,
		}),
		federation.WithMetrics(metrics),
		federation.WithLogger(lgr),
	), nil
}

// loadFallback returns the bundled dataset, overlaid with the YAML files in
// dir when one is configured.
func loadFallback(dir string) (*fallback.Index, error) {
	if dir == "" {
		return fallback.New()
	}
	idx, err := fallback.Overlay(os.DirFS(dir), ".")
	if err != nil {
		return nil, fmt.Errorf("fallback dir %s: %w", dir, err)
	}
	return idx, nil
}

// serveMetrics exposes reg on addr until the returned stop function runs.
// An empty addr disables the endpoint.
func serveMetrics(addr string, reg *prometheus.Registry, lgr logr.Logger) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Listener = ln
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lgr.Error(err, "metrics server stopped")
		}
	}()
	lgr.Info("metrics listening", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	}, nil
}
