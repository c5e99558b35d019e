// Package collections talks to the remote content collections. Each Client
// serves one category through the shared list-by-query contract.
package collections

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/oakwood-commons/archsearch/internal/archive"
	"github.com/oakwood-commons/archsearch/pkg/settings"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// snippetBytes bounds how much of an error body is kept.
const snippetBytes = 4096

// Source looks up results for a query in one collection.
type Source interface {
	Search(ctx context.Context, query string) ([]archive.Result, error)
}

// Client is the HTTP Source for one remote category.
type Client struct {
	category  archive.Category
	endpoint  string
	limit     int
	timeout   time.Duration
	userAgent string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
	newID     func() string
	lgr       logr.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLimit sets the page size, clamped to 1..MaxGroupItems.
func WithLimit(limit int) Option {
	return func(c *Client) {
		c.limit = clampLimit(limit)
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRequestIDs overrides the request id generator.
func WithRequestIDs(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(lgr logr.Logger) Option {
	return func(c *Client) {
		c.lgr = lgr
	}
}

// WithBreaker trips the client open after failures consecutive errors and
// probes again after cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		if failures == 0 {
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "collections/" + c.category.String(),
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.lgr.Info("breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
}

// NewClient returns a Client for category c at endpoint (an absolute URL).
func NewClient(c archive.Category, endpoint string, opts ...Option) *Client {
	cl := &Client{
		category:  c,
		endpoint:  endpoint,
		limit:     archive.MaxGroupItems,
		userAgent: settings.VersionInformation.UserAgent(),
		http:      &http.Client{},
		newID:     uuid.NewString,
		lgr:       logr.Discard(),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Category returns the category served by the client.
func (c *Client) Category() archive.Category { return c.category }

// Endpoint returns the list endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Search requests the first page of matches for query.
func (c *Client) Search(ctx context.Context, query string) ([]archive.Result, error) {
	if c.breaker == nil {
		return c.fetch(ctx, query)
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	results, _ := out.([]archive.Result)
	return results, nil
}

func (c *Client) fetch(ctx context.Context, query string) ([]archive.Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target, err := c.requestURL(query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	requestID := c.newID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	lgr := c.lgr.WithValues("category", c.category.String(), "request_id", requestID)
	lgr.V(2).Info("collection request", "url", target)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.category, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, snippetBytes))
		return nil, &StatusError{Code: resp.StatusCode, URL: target, Snippet: strings.TrimSpace(string(b))}
	}

	var env Envelope[Record]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", c.category, err)
	}
	if !env.Success {
		if env.Error != "" {
			return nil, fmt.Errorf("%s: %w: %s", c.category, ErrUnsuccessful, env.Error)
		}
		return nil, fmt.Errorf("%s: %w", c.category, ErrUnsuccessful)
	}

	results := make([]archive.Result, 0, len(env.Data))
	for _, rec := range env.Data {
		if res, ok := rec.ToResult(c.category); ok {
			results = append(results, res)
		}
	}
	lgr.V(2).Info("collection response", "records", len(env.Data), "results", len(results))
	return results, nil
}

func (c *Client) requestURL(query string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("%s: endpoint: %w", c.category, err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("page", "1")
	q.Set("limit", strconv.Itoa(c.limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > archive.MaxGroupItems {
		return archive.MaxGroupItems
	}
	return limit
}
