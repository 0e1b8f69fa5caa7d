// Package monitoring provides Prometheus metrics for the session service:
// HTTP request metrics, session lifecycle counters, pty throughput, and
// attach/stream gauges. Expose them via promhttp on /metrics.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session lifecycle
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsKilled  prometheus.Counter

	// Pty throughput
	PtyBytesRead prometheus.Counter
	FeedDuration prometheus.Histogram

	// Attach / streaming
	AttachesActive    prometheus.Gauge
	StreamConnections prometheus.Gauge

	startTime time.Time
	Uptime    prometheus.Gauge
}

// NewMetrics creates and registers all collectors on a dedicated registry so
// repeated construction in tests never double-registers.
func NewMetrics() *Metrics {
	return newMetricsWith(prometheus.NewRegistry())
}

// NewMetricsDefault registers on the default Prometheus registry for use
// with the stock promhttp handler.
func NewMetricsDefault() *Metrics {
	return newMetricsWith(nil)
}

func newMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	if reg == nil {
		factory = promauto.With(prometheus.DefaultRegisterer)
	}
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termhub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termhub_sessions_active",
				Help: "Number of registered live sessions",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termhub_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsKilled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termhub_sessions_killed_total",
				Help: "Total number of sessions explicitly killed",
			},
		),
		PtyBytesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termhub_pty_bytes_read_total",
				Help: "Total bytes drained from session ptys",
			},
		),
		FeedDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "termhub_feed_duration_seconds",
				Help:    "Time spent interpreting pty output into the grid",
				Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
			},
		),
		AttachesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termhub_attaches_active",
				Help: "Number of active inline attaches",
			},
		),
		StreamConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termhub_stream_connections",
				Help: "Number of active WebSocket stream connections",
			},
		),
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termhub_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		startTime: time.Now(),
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
