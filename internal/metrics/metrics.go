// Package metrics exposes Prometheus instrumentation for propfinder.
//
// Collectors live on a private registry so several instances (tests, a
// CLI run next to a server) never collide. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "propfinder"

// Metrics holds every collector.
type Metrics struct {
	registry *prometheus.Registry

	// Backend metrics
	BackendRequests *prometheus.CounterVec
	BackendDuration prometheus.Histogram
	BreakerState    prometheus.Gauge

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Search metrics
	SearchRequests *prometheus.CounterVec
	SearchDuration prometheus.Histogram
	SearchResults  prometheus.Histogram

	// Dataset metrics
	DatasetReloads    *prometheus.CounterVec
	DatasetProperties prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		BackendRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Search backend requests by kind and outcome",
		}, []string{"kind", "outcome"}),

		BackendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Search backend request latency",
			Buckets:   prometheus.DefBuckets,
		}),

		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Search cache lookups by result",
		}, []string{"result"}),

		SearchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Property searches by surface and status",
		}, []string{"surface", "status"}),

		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end property search latency",
			Buckets:   prometheus.DefBuckets,
		}),

		SearchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),

		DatasetReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_reloads_total",
			Help:      "Dataset reload attempts by outcome",
		}, []string{"outcome"}),

		DatasetProperties: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_properties",
			Help:      "Properties in the served dataset snapshot",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBackend records one backend call.
func (m *Metrics) ObserveBackend(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(kind, outcome).Inc()
	m.BackendDuration.Observe(d.Seconds())
}

// SetBreakerState records the circuit breaker state.
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.BreakerState.Set(float64(state))
}

// ObserveCache records a cache lookup: "hit", "miss" or "error".
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveSearch records one completed search.
func (m *Metrics) ObserveSearch(surface string, status, results int, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchRequests.WithLabelValues(surface, strconv.Itoa(status)).Inc()
	m.SearchDuration.Observe(d.Seconds())
	if status < 400 {
		m.SearchResults.Observe(float64(results))
	}
}

// ObserveReload records a dataset reload attempt.
func (m *Metrics) ObserveReload(ok bool, properties int) {
	if m == nil {
		return
	}
	if !ok {
		m.DatasetReloads.WithLabelValues("error").Inc()
		return
	}
	m.DatasetReloads.WithLabelValues("ok").Inc()
	m.DatasetProperties.Set(float64(properties))
}
