package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Redirect decisions by outcome ("allowed" or a deny reason)
	RedirectDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirect_decisions_total",
			Help: "Total number of redirect decisions by outcome",
		},
		[]string{"outcome", "entry"},
	)

	// Analytics pipeline
	AnalyticsJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_jobs_total",
			Help: "Click recording jobs by result",
		},
		[]string{"result"},
	)

	AnalyticsQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analytics_queue_depth",
			Help: "Click recording jobs waiting for a worker",
		},
	)

	UniqueVisitorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "unique_visitors_total",
			Help: "Visits recorded as a first-seen fingerprint",
		},
	)

	// Geo and cache
	GeoLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geo_lookups_total",
			Help: "Geo resolutions by source",
		},
		[]string{"source"},
	)

	LinkCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_cache_total",
			Help: "Link cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordHTTPMetrics records metrics for an HTTP request
func RecordHTTPMetrics(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDecision counts a redirect outcome for the given entry point.
func RecordDecision(outcome, entry string) {
	RedirectDecisionsTotal.WithLabelValues(outcome, entry).Inc()
}
