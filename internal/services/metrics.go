package services

import (
	"net/http"
	"sync/atomic"
	"time"

	"fatigue-detector/internal/classifier"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	totalFrames   atomic.Int64
	noFaceFrames  atomic.Int64
	totalErrors   atomic.Int64
	totalLatency  atomic.Int64 // microseconds
	alertEvents   atomic.Int64
	activeClients atomic.Int32
	lastFrameTime atomic.Int64

	sinkDropped atomic.Int64
	sinkFailed  atomic.Int64

	wsConnections atomic.Int64
	wsMessages    atomic.Int64
	wsErrors      atomic.Int64

	startedAt time.Time

	events   *prometheus.CounterVec
	latency  prometheus.Histogram
	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	m := &Metrics{
		startedAt: time.Now(),
		registry:  prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fatigue_events_total",
			Help: "Classified frames by event type and severity",
		}, []string{"event_type", "severity"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fatigue_frame_latency_seconds",
			Help:    "Per-frame detection latency",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(m.events, m.latency)

	gauges := []struct {
		name, help string
		value      func() float64
	}{
		{"fatigue_frames_total", "Frames received", func() float64 { return float64(m.totalFrames.Load()) }},
		{"fatigue_no_face_frames_total", "Frames without a detected face", func() float64 { return float64(m.noFaceFrames.Load()) }},
		{"fatigue_errors_total", "Frame processing errors", func() float64 { return float64(m.totalErrors.Load()) }},
		{"fatigue_alert_events_total", "Non-normal events forwarded to sinks", func() float64 { return float64(m.alertEvents.Load()) }},
		{"fatigue_sink_dropped_total", "Events dropped because the sink buffer was full", func() float64 { return float64(m.sinkDropped.Load()) }},
		{"fatigue_sink_failed_total", "Events the sink failed to deliver", func() float64 { return float64(m.sinkFailed.Load()) }},
		{"fatigue_active_sessions", "Tracked classifier sessions", func() float64 { return float64(m.activeClients.Load()) }},
		{"fatigue_websocket_connections", "Open WebSocket connections", func() float64 { return float64(m.wsConnections.Load()) }},
	}
	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: g.name, Help: g.help}, g.value))
	}
}

func (m *Metrics) IncrementFrames() {
	m.totalFrames.Add(1)
	m.lastFrameTime.Store(time.Now().Unix())
}

func (m *Metrics) IncrementNoFace() {
	m.noFaceFrames.Add(1)
}

func (m *Metrics) IncrementErrors() {
	m.totalErrors.Add(1)
}

func (m *Metrics) RecordLatency(duration time.Duration) {
	m.totalLatency.Add(duration.Microseconds())
	m.latency.Observe(duration.Seconds())
}

func (m *Metrics) RecordEvent(event classifier.EventType, severity classifier.Severity) {
	m.events.WithLabelValues(string(event), string(severity)).Inc()
	if event.IsAlert() {
		m.alertEvents.Add(1)
	}
}

func (m *Metrics) IncrementSinkDropped() {
	m.sinkDropped.Add(1)
}

func (m *Metrics) IncrementSinkFailed() {
	m.sinkFailed.Add(1)
}

func (m *Metrics) SetActiveClients(count int) {
	m.activeClients.Store(int32(count))
}

func (m *Metrics) GetTotalFrames() int64 {
	return m.totalFrames.Load()
}

func (m *Metrics) GetTotalErrors() int64 {
	return m.totalErrors.Load()
}

func (m *Metrics) GetAvgLatency() float64 {
	frames := m.totalFrames.Load()
	if frames == 0 {
		return 0
	}
	return float64(m.totalLatency.Load()) / 1000 / float64(frames)
}

func (m *Metrics) GetActiveClients() int {
	return int(m.activeClients.Load())
}

func (m *Metrics) GetLastFrameTime() int64 {
	return m.lastFrameTime.Load()
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startedAt)
}

func (m *Metrics) IncrementWebSocketConnections() {
	m.wsConnections.Add(1)
}

func (m *Metrics) DecrementWebSocketConnections() {
	m.wsConnections.Add(-1)
}

func (m *Metrics) GetWebSocketConnections() int64 {
	return m.wsConnections.Load()
}

func (m *Metrics) IncrementWebSocketMessages() {
	m.wsMessages.Add(1)
}

func (m *Metrics) IncrementWebSocketErrors() {
	m.wsErrors.Add(1)
}

// Snapshot is the JSON form served on /api/metrics.
func (m *Metrics) Snapshot() map[string]interface{} {
	frames := m.GetTotalFrames()
	alerts := m.alertEvents.Load()
	rate := 0.0
	if frames > 0 {
		rate = float64(alerts) / float64(frames)
	}
	return map[string]interface{}{
		"total_frames":      frames,
		"no_face_frames":    m.noFaceFrames.Load(),
		"total_errors":      m.GetTotalErrors(),
		"avg_latency_ms":    m.GetAvgLatency(),
		"alert_events":      alerts,
		"detection_rate":    rate,
		"sink_dropped":      m.sinkDropped.Load(),
		"sink_failed":       m.sinkFailed.Load(),
		"active_sessions":   m.GetActiveClients(),
		"last_frame_time":   m.GetLastFrameTime(),
		"system_uptime_sec": int(m.Uptime().Seconds()),
		"websocket": map[string]interface{}{
			"connections": m.wsConnections.Load(),
			"messages":    m.wsMessages.Load(),
			"errors":      m.wsErrors.Load(),
		},
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
