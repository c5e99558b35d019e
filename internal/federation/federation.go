// Package federation fans one query out to every remote collection, folds
// failures into empty answers, and merges each category with the bundled
// fallback dataset.
package federation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/oakwood-commons/archsearch/internal/archive"
	"github.com/oakwood-commons/archsearch/internal/collections"
	"github.com/oakwood-commons/archsearch/internal/fallback"
	"github.com/oakwood-commons/archsearch/internal/flatten"
	"github.com/oakwood-commons/archsearch/internal/limiter"
)

// Origin names the source that supplied a category's visible results.
type Origin string

const (
	OriginRemote   Origin = "remote"
	OriginFallback Origin = "fallback"
	OriginNone     Origin = "none"
)

// Outcome describes how one category was resolved for a batch.
type Outcome struct {
	Category archive.Category `json:"category" yaml:"category"`
	// Remote is nil when the category has no remote or the call failed.
	Remote   []archive.Result `json:"remote,omitempty" yaml:"remote,omitempty"`
	Failed   bool             `json:"failed" yaml:"failed"`
	Err      string           `json:"error,omitempty" yaml:"error,omitempty"`
	Fallback []archive.Result `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	Visible  []archive.Result `json:"visible" yaml:"visible"`
	Source   Origin           `json:"source" yaml:"source"`
	Duration time.Duration    `json:"duration" yaml:"duration"`
}

// Batch is the settled answer to one query.
type Batch struct {
	Query    string          `json:"query" yaml:"query"`
	Outcomes []Outcome       `json:"outcomes" yaml:"outcomes"`
	Groups   []archive.Group `json:"groups" yaml:"groups"`
}

// Policy tunes the merge rule.
type Policy struct {
	// FallbackOnEmpty makes a successful but empty remote answer fall back
	// to the bundled dataset. When false only failures fall back.
	FallbackOnEmpty bool
	// Limit caps the visible items per category.
	Limit int
}

// DefaultPolicy falls back on empty answers and shows up to six items.
func DefaultPolicy() Policy {
	return Policy{FallbackOnEmpty: true, Limit: archive.MaxGroupItems}
}

// Searcher runs federated queries. It is safe for concurrent use.
type Searcher struct {
	sources     map[archive.Category]collections.Source
	fallback    *fallback.Index
	descriptors archive.Descriptors
	policy      Policy
	metrics     *Metrics
	lgr         logr.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithPolicy replaces the default merge policy.
func WithPolicy(p Policy) Option {
	return func(s *Searcher) {
		s.policy = p
	}
}

// WithMetrics records request and merge statistics.
func WithMetrics(m *Metrics) Option {
	return func(s *Searcher) {
		s.metrics = m
	}
}

// WithDescriptors overrides group labels, icons and list routes.
func WithDescriptors(d archive.Descriptors) Option {
	return func(s *Searcher) {
		if d != nil {
			s.descriptors = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(lgr logr.Logger) Option {
	return func(s *Searcher) {
		s.lgr = lgr
	}
}

// New returns a Searcher over sources with fb as the fallback dataset.
// Categories without a source are served by the fallback alone.
func New(sources map[archive.Category]collections.Source, fb *fallback.Index, opts ...Option) *Searcher {
	s := &Searcher{
		sources:     sources,
		fallback:    fb,
		descriptors: archive.DefaultDescriptors(),
		policy:      DefaultPolicy(),
		lgr:         logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy.Limit < 1 || s.policy.Limit > archive.MaxGroupItems {
		s.policy.Limit = archive.MaxGroupItems
	}
	return s
}

// settled is the result of one remote call after errors and panics have
// been folded into a failure flag.
type settled struct {
	results  []archive.Result
	err      error
	duration time.Duration
}

// settle calls src and never fails: an error or panic yields nil results.
func settle(ctx context.Context, src collections.Source, query string) settled {
	start := time.Now()
	var (
		results []archive.Result
		err     error
	)
	if r := panics.Try(func() { results, err = src.Search(ctx, query) }); r != nil {
		err = fmt.Errorf("source panicked: %w", r.AsError())
	}
	if err != nil {
		results = nil
	}
	return settled{results: results, err: err, duration: time.Since(start)}
}

// Search answers query from every category. An empty query yields an empty
// batch without contacting any source.
func (s *Searcher) Search(ctx context.Context, query string) Batch {
	query = strings.TrimSpace(query)
	if query == "" {
		return Batch{Query: query}
	}

	categories := archive.Categories()
	remote := make([]settled, len(categories))
	var wg conc.WaitGroup
	for i, c := range categories {
		src, ok := s.sources[c]
		if !ok || src == nil {
			continue
		}
		wg.Go(func() {
			remote[i] = settle(ctx, src, query)
		})
	}

	// the bundled datasets are searched while the remote calls are in flight
	local := make([][]archive.Result, len(categories))
	for i, c := range categories {
		local[i] = s.fallback.Search(c, query)
	}

	wg.Wait()

	s.metrics.observeBatch()
	capCfg := limiter.Config{Limit: s.policy.Limit}
	outcomes := make([]Outcome, len(categories))
	visible := make(map[archive.Category][]archive.Result, len(categories))
	for i, c := range categories {
		_, hasRemote := s.sources[c]
		o := Outcome{
			Category: c,
			Remote:   remote[i].results,
			Failed:   hasRemote && remote[i].err != nil,
			Fallback: local[i],
			Duration: remote[i].duration,
		}
		if remote[i].err != nil {
			o.Err = remote[i].err.Error()
		}
		if hasRemote {
			s.metrics.observeRequest(c, o)
		}

		o.Source = s.choose(hasRemote, o)
		switch o.Source {
		case OriginRemote:
			o.Visible = limiter.Apply(capCfg, o.Remote)
		case OriginFallback:
			o.Visible = limiter.Apply(capCfg, o.Fallback)
		}
		visible[c] = o.Visible
		s.metrics.observeMerge(c, o.Source)

		s.lgr.V(1).Info("category merged",
			"category", c.String(),
			"query", query,
			"remote", len(o.Remote),
			"failed", o.Failed,
			"fallback", len(o.Fallback),
			"source", string(o.Source),
			"duration", o.Duration.String(),
		)
		outcomes[i] = o
	}

	return Batch{
		Query:    query,
		Outcomes: outcomes,
		Groups:   flatten.Groups(visible, s.descriptors),
	}
}

func (s *Searcher) choose(hasRemote bool, o Outcome) Origin {
	switch {
	case len(o.Remote) > 0:
		return OriginRemote
	case hasRemote && !o.Failed && !s.policy.FallbackOnEmpty:
		return OriginNone
	case len(o.Fallback) > 0:
		return OriginFallback
	default:
		return OriginNone
	}
}
