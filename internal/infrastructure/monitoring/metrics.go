package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Isolate lifecycle metrics
	IsolatesActive    prometheus.Gauge
	IsolatesCreated   prometheus.Counter
	IsolatesDestroyed prometheus.Counter

	// Script run metrics
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	ScriptFailures prometheus.Counter

	// Capsule metrics
	CapsulesCaptured prometheus.Counter
	CapsulesReleased prometheus.Counter
	ValuesRejected   prometheus.Counter

	// HTTP metrics (debug server)
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates and registers all metrics with a private registry-safe
// factory. Collectors are registered with the default registerer.
func NewMetrics() *Metrics {
	return newMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsFor creates metrics registered against the given registerer.
// Tests use this to avoid duplicate-registration panics.
func NewMetricsFor(reg prometheus.Registerer) *Metrics {
	return newMetricsWith(reg)
}

func newMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		IsolatesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "enclave_isolates_active",
			Help: "Number of currently live isolates",
		}),
		IsolatesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "enclave_isolates_created_total",
			Help: "Total number of isolates created",
		}),
		IsolatesDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Name: "enclave_isolates_destroyed_total",
			Help: "Total number of isolates destroyed",
		}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enclave_runs_total",
			Help: "Total number of cross-isolate script runs by status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "enclave_run_duration_seconds",
			Help:    "Script run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ScriptFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "enclave_script_failures_total",
			Help: "Total number of script failures bridged across isolates",
		}),
		CapsulesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "enclave_capsules_captured_total",
			Help: "Total number of value capsules captured",
		}),
		CapsulesReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "enclave_capsules_released_total",
			Help: "Total number of value capsules released",
		}),
		ValuesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "enclave_values_rejected_total",
			Help: "Total number of values rejected as not shareable",
		}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enclave_http_requests_total",
			Help: "Total HTTP requests to the debug server",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enclave_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		Uptime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "enclave_uptime_seconds",
			Help: "Process uptime in seconds",
		}),
		startTime: time.Now(),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously refreshes the uptime gauge.
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.UpdateUptime()
	}
}

// RecordRun records a completed script run.
func (m *Metrics) RecordRun(status string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records a debug server request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
