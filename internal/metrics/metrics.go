// Package metrics exposes Prometheus instruments for index builds and searches.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ecpbench"

// Metrics groups the instruments registered on one registry.
type Metrics struct {
	BuildDuration  *prometheus.HistogramVec
	SearchDuration *prometheus.HistogramVec
	Searches       *prometheus.CounterVec
	CacheHits      prometheus.Counter
	Leaves         *prometheus.GaugeVec
	Points         *prometheus.GaugeVec
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BuildDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "build_duration_seconds",
			Help:      "Time spent building an index.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"index", "type"}),
		SearchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "search_duration_seconds",
			Help:      "Latency of a single k-NN search.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 16),
		}, []string{"index"}),
		Searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "searches_total",
			Help:      "Searches served, by outcome.",
		}, []string{"index", "outcome"}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Searches answered from the result cache.",
		}),
		Leaves: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "leaves",
			Help:      "Leaf clusters in each live index.",
		}, []string{"index"}),
		Points: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "points",
			Help:      "Points stored in each live index.",
		}, []string{"index"}),
	}
}

func (m *Metrics) ObserveBuild(index, typ string, d time.Duration, points, leaves int) {
	m.BuildDuration.WithLabelValues(index, typ).Observe(d.Seconds())
	m.Points.WithLabelValues(index).Set(float64(points))
	m.Leaves.WithLabelValues(index).Set(float64(leaves))
}

func (m *Metrics) ObserveSearch(index string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Searches.WithLabelValues(index, outcome).Inc()
	if err == nil {
		m.SearchDuration.WithLabelValues(index).Observe(d.Seconds())
	}
}

// Forget drops the per-index series once an index is deleted.
func (m *Metrics) Forget(index string) {
	labels := prometheus.Labels{"index": index}
	m.BuildDuration.DeletePartialMatch(labels)
	m.SearchDuration.DeletePartialMatch(labels)
	m.Searches.DeletePartialMatch(labels)
	m.Points.DeletePartialMatch(labels)
	m.Leaves.DeletePartialMatch(labels)
}
