package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "transitplanner"

// Metrics collectors of the planner. a nil *Metrics is valid and records nothing.
type Metrics struct {
	searches         *prometheus.CounterVec
	pruned           *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	nodesVisited     prometheus.Histogram
	searchDuration   prometheus.Histogram
	interchangeBuild prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Journey searches by outcome.",
		}, []string{"outcome"}),
		pruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_branches_total",
			Help:      "Branches abandoned during search by reason.",
		}, []string{"reason"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interchange_cache_lookups_total",
			Help:      "Interchange index cache lookups by result.",
		}, []string{"result"}),
		nodesVisited: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_nodes_visited",
			Help:      "Graph nodes visited per search.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
		}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Wall clock duration of journey searches.",
			Buckets:   prometheus.DefBuckets,
		}),
		interchangeBuild: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interchange_build_seconds",
			Help:      "Duration of route interchange index builds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	reg.MustRegister(m.searches, m.pruned, m.cacheLookups, m.nodesVisited, m.searchDuration, m.interchangeBuild)
	return m
}

func (m *Metrics) ObserveSearch(outcome string, nodesVisited int, took time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.nodesVisited.Observe(float64(nodesVisited))
	m.searchDuration.Observe(took.Seconds())
}

func (m *Metrics) Pruned(reason string) {
	if m == nil {
		return
	}
	m.pruned.WithLabelValues(reason).Inc()
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveInterchangeBuild(took time.Duration) {
	if m == nil {
		return
	}
	m.interchangeBuild.Observe(took.Seconds())
}
