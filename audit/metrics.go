package audit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the audit pipeline.
type Metrics struct {
	Registry        *prometheus.Registry
	PagesTotal      *prometheus.CounterVec
	FetchAttempts   *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	CandidatesTotal *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_pages_total",
			Help: "Total pages processed by outcome.",
		},
		[]string{"outcome"},
	)
	fetchAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_fetch_attempts_total",
			Help: "Relay fetch attempts by relay name and outcome.",
		},
		[]string{"relay", "outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_fetch_duration_seconds",
			Help:    "Relay fetch attempt latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	candidates := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_candidates_total",
			Help: "Extracted product candidates by strategy.",
		},
		[]string{"strategy"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_cache_lookups_total",
			Help: "Cache lookups by namespace and result.",
		},
		[]string{"namespace", "result"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_errors_total",
			Help: "Audit errors by category.",
		},
		[]string{"category"},
	)

	registry.MustRegister(pages, fetchAttempts, fetchDuration, candidates, cacheLookups, errorsTotal)

	return &Metrics{
		Registry:        registry,
		PagesTotal:      pages,
		FetchAttempts:   fetchAttempts,
		FetchDuration:   fetchDuration,
		CandidatesTotal: candidates,
		CacheLookups:    cacheLookups,
		ErrorsTotal:     errorsTotal,
	}
}

// IncPage counts one processed page by outcome.
func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records one relay attempt.
func (m *Metrics) ObserveFetch(relay, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(relay, outcome).Inc()
	m.FetchDuration.Observe(elapsed.Seconds())
}

// IncCandidate counts one extracted candidate for a strategy label.
func (m *Metrics) IncCandidate(strategy string) {
	if m == nil {
		return
	}
	m.CandidatesTotal.WithLabelValues(strategy).Inc()
}

// IncCacheLookup counts one cache lookup result.
func (m *Metrics) IncCacheLookup(namespace, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(namespace, result).Inc()
}

// IncError counts one error for a category label.
func (m *Metrics) IncError(category string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(category).Inc()
}
