package federation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/archsearch/internal/archive"
	"github.com/oakwood-commons/archsearch/internal/collections"
	"github.com/oakwood-commons/archsearch/internal/fallback"
)

type fakeSource struct {
	results []archive.Result
	err     error
	panic   bool
	delay   time.Duration
	calls   atomic.Int32
}

func (f *fakeSource) Search(ctx context.Context, _ string) ([]archive.Result, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panic {
		panic("collection exploded")
	}
	return f.results, f.err
}

func hits(c archive.Category, ids ...string) []archive.Result {
	out := make([]archive.Result, len(ids))
	for i, id := range ids {
		out[i] = archive.Result{ID: id, Title: "Remote " + id, Href: c.ItemHref(id), Category: c}
	}
	return out
}

func testFallback() *fallback.Index {
	records := map[archive.Category][]fallback.Record{}
	for _, c := range archive.Categories() {
		records[c] = []fallback.Record{
			{ID: c.String() + "-local-1", Title: "Greve local um"},
			{ID: c.String() + "-local-2", Title: "Greve local dois"},
			{ID: c.String() + "-other", Title: "Unrelated"},
		}
	}
	return fallback.NewFromRecords(records)
}

func outcome(t *testing.T, b Batch, c archive.Category) Outcome {
	t.Helper()
	for _, o := range b.Outcomes {
		if o.Category == c {
			return o
		}
	}
	t.Fatalf("no outcome for %s", c)
	return Outcome{}
}

func TestSearchEmptyQueryIssuesNoRequests(t *testing.T) {
	src := &fakeSource{results: hits(archive.Documents, "a")}
	s := New(map[archive.Category]collections.Source{archive.Documents: src}, testFallback())

	b := s.Search(context.Background(), "   ")
	assert.Empty(t, b.Groups)
	assert.Empty(t, b.Outcomes)
	assert.Equal(t, int32(0), src.calls.Load())
}

func TestSearchMergeRule(t *testing.T) {
	sources := map[archive.Category]collections.Source{
		archive.Documents:    &fakeSource{results: hits(archive.Documents, "d1", "d2")},
		archive.Photos:       &fakeSource{err: errors.New("503")},
		archive.Periodicals:  &fakeSource{results: []archive.Result{}},
		archive.Testimonials: &fakeSource{panic: true},
	}
	s := New(sources, testFallback())
	b := s.Search(context.Background(), " greve ")
	assert.Equal(t, "greve", b.Query)
	require.Len(t, b.Outcomes, len(archive.Categories()))

	docs := outcome(t, b, archive.Documents)
	assert.Equal(t, OriginRemote, docs.Source)
	assert.Equal(t, []string{"d1", "d2"}, ids(docs.Visible))
	assert.Len(t, docs.Fallback, 2, "fallback is computed even when unused")

	photos := outcome(t, b, archive.Photos)
	assert.True(t, photos.Failed)
	assert.Nil(t, photos.Remote)
	assert.Equal(t, OriginFallback, photos.Source)
	assert.Equal(t, []string{"photos-local-1", "photos-local-2"}, ids(photos.Visible))

	periodicals := outcome(t, b, archive.Periodicals)
	assert.False(t, periodicals.Failed)
	assert.Equal(t, OriginFallback, periodicals.Source, "empty remote falls back")

	testimonials := outcome(t, b, archive.Testimonials)
	assert.True(t, testimonials.Failed)
	assert.Contains(t, testimonials.Err, "panicked")
	assert.Equal(t, OriginFallback, testimonials.Source)

	personal := outcome(t, b, archive.PersonalArchives)
	assert.False(t, personal.Failed)
	assert.Equal(t, OriginFallback, personal.Source)

	require.Len(t, b.Groups, len(archive.Categories()))
	for i, c := range archive.Categories() {
		assert.Equal(t, c, b.Groups[i].Category)
	}
}

func TestSearchRemoteWinsOverFallbackWithNoOverlap(t *testing.T) {
	s := New(map[archive.Category]collections.Source{
		archive.References: &fakeSource{results: hits(archive.References, "r1")},
	}, testFallback())
	b := s.Search(context.Background(), "greve")
	refs := outcome(t, b, archive.References)
	assert.Equal(t, []string{"r1"}, ids(refs.Visible))
}

func TestSearchStrictEmptyPolicy(t *testing.T) {
	s := New(map[archive.Category]collections.Source{
		archive.Documents: &fakeSource{},
		archive.Photos:    &fakeSource{err: errors.New("down")},
	}, testFallback(), WithPolicy(Policy{FallbackOnEmpty: false, Limit: 6}))

	b := s.Search(context.Background(), "greve")
	assert.Equal(t, OriginNone, outcome(t, b, archive.Documents).Source)
	assert.Empty(t, outcome(t, b, archive.Documents).Visible)
	assert.Equal(t, OriginFallback, outcome(t, b, archive.Photos).Source, "failures still fall back")
	assert.Equal(t, OriginFallback, outcome(t, b, archive.PersonalArchives).Source)
}

func TestSearchCapsVisibleItems(t *testing.T) {
	s := New(map[archive.Category]collections.Source{
		archive.Documents: &fakeSource{results: hits(archive.Documents, "1", "2", "3", "4", "5", "6", "7", "8")},
	}, nil, WithPolicy(Policy{FallbackOnEmpty: true, Limit: 3}))

	b := s.Search(context.Background(), "x")
	assert.Len(t, outcome(t, b, archive.Documents).Visible, 3)
	require.Len(t, b.Groups, 1)
	assert.Len(t, b.Groups[0].Items, 3)
}

func TestSearchNothingAnywhere(t *testing.T) {
	s := New(map[archive.Category]collections.Source{
		archive.Documents: &fakeSource{err: errors.New("down")},
	}, testFallback())
	b := s.Search(context.Background(), "zzzz-no-match")
	assert.Empty(t, b.Groups)
	for _, o := range b.Outcomes {
		assert.Equal(t, OriginNone, o.Source)
	}
}

func TestSearchRunsSourcesConcurrently(t *testing.T) {
	sources := map[archive.Category]collections.Source{}
	for _, c := range archive.RemoteCategories() {
		sources[c] = &fakeSource{results: hits(c, "x"), delay: 100 * time.Millisecond}
	}
	s := New(sources, testFallback())

	start := time.Now()
	b := s.Search(context.Background(), "greve")
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 400*time.Millisecond, "sources must not run one after another")
	for _, c := range archive.RemoteCategories() {
		assert.Equal(t, OriginRemote, outcome(t, b, c).Source)
	}
}

func TestSearchWaitsForSlowestSource(t *testing.T) {
	slow := &fakeSource{results: hits(archive.Periodicals, "late"), delay: 50 * time.Millisecond}
	s := New(map[archive.Category]collections.Source{
		archive.Documents:   &fakeSource{results: hits(archive.Documents, "fast")},
		archive.Periodicals: slow,
	}, testFallback())

	b := s.Search(context.Background(), "greve")
	assert.Equal(t, []string{"late"}, ids(outcome(t, b, archive.Periodicals).Visible))
}

func TestSearchCancelledContextFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(map[archive.Category]collections.Source{
		archive.Documents: &fakeSource{results: hits(archive.Documents, "a"), delay: time.Second},
	}, testFallback())

	b := s.Search(ctx, "greve")
	docs := outcome(t, b, archive.Documents)
	assert.True(t, docs.Failed)
	assert.Equal(t, OriginFallback, docs.Source)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	s := New(map[archive.Category]collections.Source{
		archive.Documents:   &fakeSource{results: hits(archive.Documents, "a")},
		archive.Photos:      &fakeSource{err: errors.New("down")},
		archive.Periodicals: &fakeSource{},
	}, testFallback(), WithMetrics(m))

	s.Search(context.Background(), "greve")
	s.Search(context.Background(), "greve")
	s.Search(context.Background(), "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.batches))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("documents", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("photos", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("periodicals", "empty")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.merged.WithLabelValues("documents", "remote")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.merged.WithLabelValues("photos", "fallback")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.merged.WithLabelValues("personal-archives", "fallback")))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "duplicate registration is reported")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeBatch()
		m.observeMerge(archive.Documents, OriginRemote)
		m.observeRequest(archive.Documents, Outcome{})
	})
}

func ids(results []archive.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}
