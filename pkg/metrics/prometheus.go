// Package metrics provides Prometheus metrics for the goal sensor service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default latency buckets in milliseconds, sized around the sub-second fetch timeout.
var defaultLatencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the goal sensor service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Monitor metrics - what the state machine is doing
	monitorsTotal   prometheus.Gauge
	polls           *prometheus.CounterVec
	pollFailures    *prometheus.CounterVec
	fetchLatency    *prometheus.HistogramVec
	statusGauge     *prometheus.GaugeVec
	backoffSeconds  *prometheus.GaugeVec
	scoreGauge      *prometheus.GaugeVec
	goals           *prometheus.CounterVec
	scoresCleared   *prometheus.CounterVec
	skippedTicks    *prometheus.CounterVec
	controlCommands *prometheus.CounterVec

	// Score source metrics
	sourceResponses *prometheus.CounterVec
	staleFrames     prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Notification queue metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Notification worker metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter
	notifications           *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram

	// Error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "goalsensor",
		subsystem:        "monitor",
		histogramBuckets: defaultLatencyBuckets,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

func (m *Manager) name(base string) string {
	if m.metricPrefix == "" {
		return base
	}
	return m.metricPrefix + "_" + base
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	counterVec := func(name, help string, labelNames ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name(name),
			Help:        help,
			ConstLabels: labels,
		}, labelNames)
	}
	gaugeVec := func(name, help string, labelNames ...string) *prometheus.GaugeVec {
		return auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name(name),
			Help:        help,
			ConstLabels: labels,
		}, labelNames)
	}
	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name(name),
			Help:        help,
			ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name(name),
			Help:        help,
			ConstLabels: labels,
		})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name(name),
			Help:        help,
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		})
	}
	histogramVec := func(name, help string, labelNames ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name(name),
			Help:        help,
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		}, labelNames)
	}

	// Monitor metrics
	m.monitorsTotal = gauge("monitors", "Number of tracked teams")
	m.polls = counterVec("polls_total", "Completed polls by team and outcome", "team", "outcome")
	m.pollFailures = counterVec("poll_failures_total", "Failed polls by team and failure kind", "team", "kind")
	m.fetchLatency = histogramVec("fetch_latency_milliseconds", "Score source fetch latency in milliseconds", "team")
	m.statusGauge = gaugeVec("status", "Current match status per team (1 for the active status)", "team", "status")
	m.backoffSeconds = gaugeVec("backoff_seconds", "Current backoff delay per team", "team")
	m.scoreGauge = gaugeVec("score", "Last known score per team, -1 when unknown", "team")
	m.goals = counterVec("goals_total", "Goals detected per team", "team")
	m.scoresCleared = counterVec("scores_cleared_total", "Stale scores forgotten while idle", "team")
	m.skippedTicks = counterVec("skipped_ticks_total", "Ticks skipped because a fetch was still in flight", "team")
	m.controlCommands = counterVec("control_commands_total", "Enable and disable commands per team", "team", "action")

	// Score source metrics
	m.sourceResponses = counterVec("source_responses_total", "Score server responses by HTTP status code", "status_code")
	m.staleFrames = counter("source_stale_frames_total", "Score frames rejected for being too old")

	// HTTP Performance Metrics
	m.httpRequests = counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	// Notification queue metrics
	m.queueSize = gauge("notify_queue_size", "Current size of the notification queue")
	m.queueCapacity = gauge("notify_queue_capacity", "Maximum capacity of the notification queue")
	m.queueUtilization = gauge("notify_queue_utilization_ratio", "Notification queue utilization (0.0 to 1.0)")
	m.queueEnqueueRate = counter("notify_queue_enqueue_total", "Total number of notifications enqueued")
	m.queueDequeueRate = counter("notify_queue_dequeue_total", "Total number of notifications dequeued")
	m.queueEnqueueErrors = counter("notify_queue_enqueue_errors_total", "Notifications dropped at enqueue")
	m.queueProcessingLatency = histogram("notify_queue_enqueue_latency_milliseconds", "Time spent enqueuing a notification")

	// Notification worker metrics
	m.workerActiveCount = gauge("notify_workers", "Number of notification workers")
	m.workerProcessingLatency = histogram("notify_delivery_latency_milliseconds", "Notification delivery latency in milliseconds")
	m.workerErrorRate = counter("notify_worker_errors_total", "Notification delivery errors")
	m.notifications = counterVec("notifications_total", "Notifications by event kind and result", "kind", "result")

	// System metrics
	m.systemMemoryUsage = gauge("system_memory_bytes", "Heap bytes allocated by the process")
	m.systemGoroutineCount = gauge("system_goroutines", "Number of live goroutines")
	m.systemGCPauseTime = histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")

	// Error tracking
	m.errorRateByComponent = counterVec("errors_by_component_total", "Errors by component and error type", "component", "error_type")
	m.errorRateByType = counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = counterVec("errors_by_endpoint_total", "Errors by endpoint, method, and error type", "endpoint", "method", "error_type")
	m.errorLatency = histogramVec("error_latency_milliseconds", "Latency of operations that ended in an error", "component", "error_type")
}

// Monitor Metrics Functions.

// UpdateMonitorCount sets the number of tracked teams.
func UpdateMonitorCount(count int) {
	globalManager.monitorsTotal.Set(float64(count))
}

// RecordPoll records a completed poll and its fetch latency.
func RecordPoll(team, outcome string, latencyMs float64) {
	globalManager.polls.WithLabelValues(team, outcome).Inc()
	globalManager.fetchLatency.WithLabelValues(team).Observe(latencyMs)
}

// RecordPollFailure records a failed poll by failure kind.
func RecordPollFailure(team, kind string) {
	globalManager.pollFailures.WithLabelValues(team, kind).Inc()
}

// UpdateStatus marks status as the current one for team. All statuses must be
// passed so the previous one is reset.
func UpdateStatus(team, current string, all []string) {
	for _, status := range all {
		value := 0.0
		if status == current {
			value = 1
		}
		globalManager.statusGauge.WithLabelValues(team, status).Set(value)
	}
}

// UpdateBackoffSeconds sets the backoff delay for team.
func UpdateBackoffSeconds(team string, seconds int) {
	globalManager.backoffSeconds.WithLabelValues(team).Set(float64(seconds))
}

// UpdateScore sets the last known score for team; pass ok=false when unknown.
func UpdateScore(team string, score int, ok bool) {
	value := float64(score)
	if !ok {
		value = -1
	}
	globalManager.scoreGauge.WithLabelValues(team).Set(value)
}

// RecordGoal increments the goal counter for team.
func RecordGoal(team string) {
	globalManager.goals.WithLabelValues(team).Inc()
}

// RecordScoreCleared records a stale score being forgotten.
func RecordScoreCleared(team string) {
	globalManager.scoresCleared.WithLabelValues(team).Inc()
}

// RecordSkippedTick records a tick skipped while a fetch was in flight.
func RecordSkippedTick(team string) {
	globalManager.skippedTicks.WithLabelValues(team).Inc()
}

// RecordControlCommand records an enable or disable command.
func RecordControlCommand(team, action string) {
	globalManager.controlCommands.WithLabelValues(team, action).Inc()
}

// Score Source Metrics Functions.

// RecordSourceResponse records an HTTP status code returned by the score server.
func RecordSourceResponse(statusCode string) {
	globalManager.sourceResponses.WithLabelValues(statusCode).Inc()
}

// RecordStaleFrame records a score frame rejected for its age.
func RecordStaleFrame() {
	globalManager.staleFrames.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP requests counter with labels.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds with labels.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Notification Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization percentage (0.0 to 1.0).
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency in milliseconds.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Notification Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of notification workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records delivery latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordNotification records a notification outcome: delivered, failed, or dropped.
func RecordNotification(kind, result string) {
	globalManager.notifications.WithLabelValues(kind, result).Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and error type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the allocated heap size in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
