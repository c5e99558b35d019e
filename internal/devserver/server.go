// Package devserver serves the remote collection contract from embedded
// fixtures so the overlay can be run and tested without the real site.
package devserver

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oakwood-commons/archsearch/internal/archive"
	"github.com/oakwood-commons/archsearch/internal/collections"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

// Config controls the development server.
type Config struct {
	Addr    string
	Latency time.Duration
	Jitter  time.Duration

	// Fail answers 503 for these categories.
	Fail []archive.Category

	// Empty answers success with no data for these categories.
	Empty []archive.Category

	// Endpoints maps category slugs to paths. Missing entries use /api/<slug>.
	Endpoints map[string]string

	Registry *prometheus.Registry
	Logger   logr.Logger
}

// Server is an echo server for the five remote collections.
type Server struct {
	cfg      Config
	echo     *echo.Echo
	data     map[archive.Category][]map[string]any
	fail     map[archive.Category]bool
	empty    map[archive.Category]bool
	requests *prometheus.CounterVec
}

// New builds the server and registers its routes.
func New(cfg Config) (*Server, error) {
	data, err := loadFixtures()
	if err != nil {
		return nil, err
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		cfg:   cfg,
		echo:  echo.New(),
		data:  data,
		fail:  categorySet(cfg.Fail),
		empty: categorySet(cfg.Empty),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archsearch_devserver_requests_total",
			Help: "Collection requests served by the development server.",
		}, []string{"category", "code"}),
	}
	if err := cfg.Registry.Register(s.requests); err != nil {
		return nil, err
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: collections.RequestIDHeader,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			cfg.Logger.V(1).Info("request",
				"method", v.Method, "uri", v.URI, "status", v.Status,
				"latency", v.Latency.String(), "request_id", v.RequestID)
			return nil
		},
	}))
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = http.StatusText(code)
		}
		if !c.Response().Committed {
			_ = c.JSON(code, collections.Envelope[map[string]any]{Error: msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))

	for _, c := range archive.RemoteCategories() {
		path := cfg.Endpoints[c.String()]
		if path == "" {
			path = "/api/" + fixtureName(c)
		}
		e.GET(path, s.list(c))
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("collections server listening", "addr", s.cfg.Addr)
		errCh <- s.echo.Start(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) list(c archive.Category) echo.HandlerFunc {
	return func(ec echo.Context) error {
		if err := s.delay(ec.Request().Context()); err != nil {
			return err
		}

		if s.fail[c] {
			s.requests.WithLabelValues(c.String(), "503").Inc()
			return ec.JSON(http.StatusServiceUnavailable, collections.Envelope[map[string]any]{
				Error: c.String() + " collection unavailable",
			})
		}

		page := intParam(ec, "page", 1)
		if page < 1 {
			page = 1
		}
		limit := min(max(intParam(ec, "limit", defaultLimit), 1), maxLimit)

		var matched []map[string]any
		if !s.empty[c] {
			matched = filter(s.data[c], ec.QueryParam("q"))
		}

		total := len(matched)
		start := total
		if page-1 <= total/limit {
			start = min((page-1)*limit, total)
		}
		end := min(start+limit, total)
		data := matched[start:end]
		if data == nil {
			data = []map[string]any{}
		}

		s.requests.WithLabelValues(c.String(), "200").Inc()
		return ec.JSON(http.StatusOK, collections.Envelope[map[string]any]{
			Success: true,
			Data:    data,
			Meta: &collections.PaginationMeta{
				Page:       page,
				Limit:      limit,
				Total:      total,
				TotalPages: (total + limit - 1) / limit,
			},
		})
	}
}

func (s *Server) delay(ctx context.Context) error {
	d := s.cfg.Latency
	if s.cfg.Jitter > 0 {
		d += time.Duration(rand.Int64N(int64(s.cfg.Jitter)))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// filter keeps records whose title, description or testimonial text
// contains q, ignoring case. An empty q keeps everything.
func filter(records []map[string]any, q string) []map[string]any {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return records
	}
	var out []map[string]any
	for _, rec := range records {
		for _, field := range []string{"title", "description", "testimonialText"} {
			if v, ok := rec[field].(string); ok && strings.Contains(strings.ToLower(v), q) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

func intParam(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func categorySet(cs []archive.Category) map[archive.Category]bool {
	set := make(map[archive.Category]bool, len(cs))
	for _, c := range cs {
		set[c] = true
	}
	return set
}
