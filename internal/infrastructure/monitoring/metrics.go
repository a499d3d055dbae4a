package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Registry metrics
	Modules  prometheus.Gauge
	Versions prometheus.Gauge
	Contexts prometheus.Gauge
	Listers  prometheus.Gauge
	Stakes   prometheus.Gauge
	Events   *prometheus.CounterVec

	// Storage metrics
	SnapshotsSaved    prometheus.Counter
	SnapshotErrors    prometheus.Counter
	SnapshotSizeBytes prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	TotalEvents       int64   `json:"total_events"`
	ActiveConnections int64   `json:"active_connections"`
	TotalDuration     float64 `json:"-"`
	RequestCount      int64   `json:"-"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// RegistrySize carries the registry gauges
type RegistrySize struct {
	Modules  int
	Versions int
	Contexts int
	Listers  int
	Stakes   int
}

// NewMetrics creates a metrics collector registered on reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "registry_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "registry_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "registry_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Registry metrics
		Modules: factory.NewGauge(prometheus.GaugeOpts{
			Name: "registry_modules",
			Help: "Number of modules in the registry",
		}),
		Versions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "registry_versions",
			Help: "Number of published versions across all modules",
		}),
		Contexts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "registry_contexts",
			Help: "Number of distinct context ids",
		}),
		Listers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "registry_listers",
			Help: "Number of accounts that have ever listed a module",
		}),
		Stakes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "registry_stakes",
			Help: "Number of live reservation stakes",
		}),
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_events_total",
				Help: "Total number of committed mutations by kind",
			},
			[]string{"kind"},
		),

		// Storage metrics
		SnapshotsSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_snapshots_saved_total",
			Help: "Total number of snapshots written to storage",
		}),
		SnapshotErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_snapshot_errors_total",
			Help: "Total number of failed snapshot writes",
		}),
		SnapshotSizeBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "registry_snapshot_size_bytes",
			Help: "Encoded size of the last stored snapshot",
		}),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "registry_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "registry_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordEvent counts one committed mutation
func (m *Metrics) RecordEvent(kind string) {
	m.Events.WithLabelValues(kind).Inc()
	m.mu.Lock()
	m.snapshot.TotalEvents++
	m.mu.Unlock()
}

// SetRegistrySize updates the registry gauges
func (m *Metrics) SetRegistrySize(size RegistrySize) {
	m.Modules.Set(float64(size.Modules))
	m.Versions.Set(float64(size.Versions))
	m.Contexts.Set(float64(size.Contexts))
	m.Listers.Set(float64(size.Listers))
	m.Stakes.Set(float64(size.Stakes))
}

// RecordSnapshot records a storage write
func (m *Metrics) RecordSnapshot(size int, err error) {
	if err != nil {
		m.SnapshotErrors.Inc()
		return
	}
	m.SnapshotsSaved.Inc()
	m.SnapshotSizeBytes.Set(float64(size))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()

	if snap.RequestCount > 0 {
		snap.AverageLatencyMs = snap.TotalDuration / float64(snap.RequestCount) * 1000
	}
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
