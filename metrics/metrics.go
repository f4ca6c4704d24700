// Package metrics provides Prometheus metrics for foliosearch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "foliosearch"

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// SearchesTotal counts searches by endpoint and outcome.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of search requests",
		},
		[]string{"endpoint", "status"},
	)

	// SearchDuration measures search duration.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of searches in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)

	// SearchResults observes how many results a search returned.
	SearchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Distribution of result counts per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"endpoint"},
	)

	// RebuildsTotal counts index rebuilds by outcome.
	RebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_rebuilds_total",
			Help:      "Total number of index rebuilds",
		},
		[]string{"status"},
	)

	// RebuildDuration measures rebuild duration.
	RebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_rebuild_duration_seconds",
			Help:      "Duration of index rebuilds in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// IndexedItems tracks the number of indexed items per type.
	IndexedItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_items",
			Help:      "Number of items in the search index",
		},
		[]string{"type"},
	)

	// HTTPRequestsTotal counts HTTP requests by route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "code"},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)
)

// RecordSearch records a search.
func RecordSearch(endpoint, status string, numOfResults int, duration float64) {
	SearchesTotal.WithLabelValues(endpoint, status).Inc()
	SearchDuration.WithLabelValues(endpoint).Observe(duration)
	if status == StatusSuccess {
		SearchResults.WithLabelValues(endpoint).Observe(float64(numOfResults))
	}
}

// RecordRebuild records an index rebuild.
func RecordRebuild(status string, duration float64) {
	RebuildsTotal.WithLabelValues(status).Inc()
	RebuildDuration.Observe(duration)
}

// SetIndexedItems sets the indexed item gauges.
func SetIndexedItems(posts, projects int) {
	IndexedItems.WithLabelValues("post").Set(float64(posts))
	IndexedItems.WithLabelValues("project").Set(float64(projects))
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method, route, code string) {
	HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordRateLimited records a request rejected by the rate limiter.
func RecordRateLimited() {
	RateLimitedTotal.Inc()
}
