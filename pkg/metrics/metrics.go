// Package metrics defines the Prometheus collectors used by the searcher and
// the indexer, exposes an HTTP handler for scraping, and pushes batch build
// metrics to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the collectors for the search service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       *prometheus.CounterVec
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
	IndexDocuments       prometheus.Gauge
	IndexTerms           prometheus.Gauge
}

// New creates the search collectors and registers them with reg. Tests pass
// a fresh prometheus.NewRegistry() so repeated construction does not panic.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, empty_query, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_cache_hits_total",
				Help: "Total number of result cache hits by tier (local, redis).",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_index_documents",
				Help: "Number of documents in the served index.",
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_index_terms",
				Help: "Number of distinct terms in the served index.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
		m.IndexDocuments,
		m.IndexTerms,
	)

	return m
}

// BuildMetrics holds the collectors for one index build.
type BuildMetrics struct {
	DocsIndexedTotal prometheus.Counter
	DocsSkippedTotal prometheus.Counter
	IndexTerms       prometheus.Gauge
	IndexPostings    prometheus.Gauge
	BuildDuration    prometheus.Gauge
	BuildsTotal      *prometheus.CounterVec
}

func NewBuild(reg prometheus.Registerer) *BuildMetrics {
	m := &BuildMetrics{
		DocsIndexedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_docs_indexed_total",
			Help: "Documents added to the index.",
		}),
		DocsSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_docs_skipped_total",
			Help: "Malformed records skipped during the build.",
		}),
		IndexTerms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_index_terms",
			Help: "Distinct terms in the built index.",
		}),
		IndexPostings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_index_postings",
			Help: "Postings in the built index.",
		}),
		BuildDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_build_duration_seconds",
			Help: "Wall time of the last index build.",
		}),
		BuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_builds_total",
			Help: "Index builds by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(
		m.DocsIndexedTotal,
		m.DocsSkippedTotal,
		m.IndexTerms,
		m.IndexPostings,
		m.BuildDuration,
		m.BuildsTotal,
	)
	return m
}

// Handler returns the scrape handler for the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Push sends everything gathered by g to the Pushgateway at url under job.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
