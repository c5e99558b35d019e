package federation

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oakwood-commons/archsearch/internal/archive"
)

// Metrics records per-source request and merge statistics. A nil *Metrics
// records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	merged   *prometheus.CounterVec
	batches  prometheus.Counter
}

// NewMetrics registers the federation collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "archsearch",
			Name:      "source_requests_total",
			Help:      "Remote collection requests by category and outcome.",
		}, []string{"category", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "archsearch",
			Name:      "source_request_duration_seconds",
			Help:      "Remote collection request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"}),
		merged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "archsearch",
			Name:      "merge_source_total",
			Help:      "Which source supplied each category's visible results.",
		}, []string{"category", "source"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archsearch",
			Name:      "batches_total",
			Help:      "Federated search batches executed.",
		}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration, m.merged, m.batches} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeRequest(c archive.Category, o Outcome) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case o.Failed:
		outcome = "error"
	case len(o.Remote) == 0:
		outcome = "empty"
	}
	m.requests.WithLabelValues(c.String(), outcome).Inc()
	m.duration.WithLabelValues(c.String()).Observe(o.Duration.Seconds())
}

func (m *Metrics) observeMerge(c archive.Category, src Origin) {
	if m == nil {
		return
	}
	m.merged.WithLabelValues(c.String(), string(src)).Inc()
}

func (m *Metrics) observeBatch() {
	if m == nil {
		return
	}
	m.batches.Inc()
}
