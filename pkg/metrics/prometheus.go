// Package metrics provides Prometheus metrics for the bolao prediction service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Prediction write path
	predictionsSubmitted prometheus.Counter
	predictionsRejected  *prometheus.CounterVec

	// Leaderboard read path
	leaderboardBuilds        prometheus.Counter
	leaderboardBuildDuration prometheus.Histogram
	leaderboardSize          prometheus.Gauge

	// Data set size
	totalUsers       prometheus.Gauge
	totalMatches     prometheus.Gauge
	finalizedMatches prometheus.Gauge
	totalPredictions prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryUpdateLatency *prometheus.HistogramVec
	repositoryQueryLatency  *prometheus.HistogramVec
	repositoryErrors        *prometheus.CounterVec

	// Errors
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bolao",
		subsystem:        "predictions",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.predictionsSubmitted = m.counter("submitted_total", "Total number of predictions stored (inserts and replacements)")
	m.predictionsRejected = m.counterVec("rejected_total", "Total number of rejected prediction submissions", "reason")

	m.leaderboardBuilds = m.counter("leaderboard_builds_total", "Total number of leaderboard recomputations")
	m.leaderboardBuildDuration = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "leaderboard_build_duration_milliseconds",
		Help:        "Leaderboard recomputation latency in milliseconds, including store reads",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
	m.leaderboardSize = m.gauge("leaderboard_size", "Number of entries in the last computed leaderboard")

	m.totalUsers = m.gauge("users", "Number of known users")
	m.totalMatches = m.gauge("matches", "Number of scheduled matches")
	m.finalizedMatches = m.gauge("finalized_matches", "Number of matches with an official result")
	m.totalPredictions = m.gauge("stored", "Number of stored predictions")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.repositoryUpdateLatency = m.histogramVec("repository_update_latency_milliseconds",
		"Repository write latency in milliseconds", "driver", "op")
	m.repositoryQueryLatency = m.histogramVec("repository_query_latency_milliseconds",
		"Repository read latency in milliseconds", "driver", "op")
	m.repositoryErrors = m.counterVec("repository_errors_total", "Repository errors by driver and operation", "driver", "op")

	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint",
		"endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// RecordPredictionSubmitted increments the stored predictions counter.
func RecordPredictionSubmitted() {
	globalManager.predictionsSubmitted.Inc()
}

// RecordPredictionRejected counts a rejected submission by reason
// (validation, not_found, locked, store).
func RecordPredictionRejected(reason string) {
	globalManager.predictionsRejected.WithLabelValues(reason).Inc()
}

// RecordLeaderboardBuild records one recomputation and its size.
func RecordLeaderboardBuild(durationMs float64, entries int) {
	globalManager.leaderboardBuilds.Inc()
	globalManager.leaderboardBuildDuration.Observe(durationMs)
	globalManager.leaderboardSize.Set(float64(entries))
}

// UpdateDataSetSize refreshes the data set gauges.
func UpdateDataSetSize(users, matches, finalized, predictions int) {
	globalManager.totalUsers.Set(float64(users))
	globalManager.totalMatches.Set(float64(matches))
	globalManager.finalizedMatches.Set(float64(finalized))
	globalManager.totalPredictions.Set(float64(predictions))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRepositoryUpdateLatency records a write against the store.
func RecordRepositoryUpdateLatency(driver, op string, latencyMs float64) {
	globalManager.repositoryUpdateLatency.WithLabelValues(driver, op).Observe(latencyMs)
}

// RecordRepositoryQueryLatency records a read against the store.
func RecordRepositoryQueryLatency(driver, op string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(driver, op).Observe(latencyMs)
}

// RecordRepositoryError counts a failed store call.
func RecordRepositoryError(driver, op string) {
	globalManager.repositoryErrors.WithLabelValues(driver, op).Inc()
}

// RecordErrorByType records errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates the system memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
