package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "user_role"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// Business metrics
	receiptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipts_total",
			Help: "Total number of receipt uploads",
		},
		[]string{"status", "severity_tier"},
	)

	severityScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "receipt_severity_score",
			Help:    "Severity score assigned to uploaded receipts",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		[]string{"source"},
	)

	// Queue metrics
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current number of active receipts in a hospital queue",
		},
		[]string{"hospital_id"},
	)

	queueAssignDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_assign_duration_seconds",
			Help:    "Time spent inserting a receipt and renumbering its partition",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"hospital_id", "status"},
	)

	queueBusyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_busy_total",
			Help: "Total number of bounded-wait lock acquisition failures",
		},
		[]string{"hospital_id"},
	)

	// Cache metrics
	cacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipt_cache_requests_total",
			Help: "Total receipt list cache lookups",
		},
		[]string{"result"},
	)

	// Classifier adapter metrics
	classifierRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_requests_total",
			Help: "Total number of severity classifier requests",
		},
		[]string{"status"},
	)

	classifierRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_request_duration_seconds",
			Help:    "Severity classifier request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	classifierFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classifier_fallbacks_total",
			Help: "Total number of uploads classified by the heuristic fallback",
		},
	)

	// Storage metrics
	storageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifact_storage_requests_total",
			Help: "Total number of artifact store operations",
		},
		[]string{"operation", "status"},
	)

	// Database metrics
	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// Authentication metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "status"},
	)

	systemErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "system_errors_total",
			Help: "Total number of system errors",
		},
		[]string{"error_type", "component"},
	)
)

// HTTP Metrics
func RecordHTTPRequest(method, endpoint, statusCode, userRole string, duration float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, userRole).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, statusCode).Observe(duration)
}

// Receipt Metrics
func RecordReceipt(status, severityTier string) {
	receiptsTotal.WithLabelValues(status, severityTier).Inc()
}

func RecordSeverityScore(source string, score float64) {
	severityScore.WithLabelValues(source).Observe(score)
}

// Queue Metrics
func SetQueueDepth(hospitalID string, depth float64) {
	queueDepth.WithLabelValues(hospitalID).Set(depth)
}

func RecordQueueAssign(hospitalID, status string, duration float64) {
	queueAssignDuration.WithLabelValues(hospitalID, status).Observe(duration)
}

func RecordQueueBusy(hospitalID string) {
	queueBusyTotal.WithLabelValues(hospitalID).Inc()
}

// Cache Metrics
func RecordCacheHit() {
	cacheRequestsTotal.WithLabelValues("hit").Inc()
}

func RecordCacheMiss() {
	cacheRequestsTotal.WithLabelValues("miss").Inc()
}

// Classifier Metrics
func RecordClassifierRequest(status string, duration float64) {
	classifierRequestsTotal.WithLabelValues(status).Inc()
	classifierRequestDuration.WithLabelValues(status).Observe(duration)
}

func RecordClassifierFallback() {
	classifierFallbacksTotal.Inc()
}

// Storage Metrics
func RecordStorageRequest(operation, status string) {
	storageRequestsTotal.WithLabelValues(operation, status).Inc()
}

// Database Metrics
func SetDBConnectionsActive(count float64) {
	dbConnectionsActive.Set(count)
}

func RecordDBQuery(operation, table string, duration float64) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// Authentication Metrics
func RecordAuthAttempt(method, status string) {
	authAttemptsTotal.WithLabelValues(method, status).Inc()
}

func RecordSystemError(errorType, component string) {
	systemErrorsTotal.WithLabelValues(errorType, component).Inc()
}
