// Package metrics holds the Prometheus collectors of the app.
// They are registered on the default registry and served by the debug server on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "njia_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "njia_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "njia_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// Domain Metrics
	QuizSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "njia_quiz_submissions_total",
			Help: "Total number of quiz submissions by resulting primary stream",
		},
		[]string{"primary_stream"},
	)

	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "njia_recommendations_served_total",
			Help: "Total number of recommendation lists served",
		},
		[]string{"kind"},
	)

	RemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "njia_reminders_sent_total",
			Help: "Total number of deadline reminders sent",
		},
	)

	// Email Metrics
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "njia_emails_sent_total",
			Help: "Total number of emails handed to the email provider",
		},
		[]string{"result"}, // "ok", "error", "rejected"
	)

	// Cache Metrics
	CatalogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "njia_catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"kind"},
	)

	CatalogCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "njia_catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
		[]string{"kind"},
	)
)

// RecordHTTPRequest records an API request metric
func RecordHTTPRequest(method, path string, code int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordQuizSubmission(primaryStream string) {
	if primaryStream == "" {
		primaryStream = "none"
	}
	QuizSubmissions.WithLabelValues(primaryStream).Inc()
}

func RecordRecommendations(kind string) {
	RecommendationsServed.WithLabelValues(kind).Inc()
}

func RecordReminderSent() {
	RemindersSent.Inc()
}

func RecordEmail(result string) {
	EmailsSent.WithLabelValues(result).Inc()
}

// RecordCacheLookup records a catalog cache hit or miss
func RecordCacheLookup(kind string, hit bool) {
	if hit {
		CatalogCacheHits.WithLabelValues(kind).Inc()
	} else {
		CatalogCacheMisses.WithLabelValues(kind).Inc()
	}
}
