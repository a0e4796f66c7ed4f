package services

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"fatigue-detector/internal/classifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.IncrementFrames()
	m.IncrementFrames()
	m.RecordLatency(4 * time.Millisecond)
	m.RecordLatency(2 * time.Millisecond)
	m.RecordEvent(classifier.EventNormal, classifier.SeverityLow)
	m.RecordEvent(classifier.EventYawning, classifier.SeverityMedium)
	m.IncrementSinkDropped()
	m.IncrementWebSocketConnections()
	m.IncrementWebSocketConnections()
	m.DecrementWebSocketConnections()

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap["total_frames"])
	assert.InDelta(t, 3.0, snap["avg_latency_ms"], 1e-9)
	assert.EqualValues(t, 1, snap["alert_events"])
	assert.InDelta(t, 0.5, snap["detection_rate"], 1e-9)
	assert.EqualValues(t, 1, snap["sink_dropped"])
	assert.EqualValues(t, 1, m.GetWebSocketConnections())
}

func TestAvgLatencyKeepsSubMillisecondFrames(t *testing.T) {
	m := NewMetrics()
	m.IncrementFrames()
	m.IncrementFrames()
	m.RecordLatency(300 * time.Microsecond)
	m.RecordLatency(500 * time.Microsecond)
	assert.InDelta(t, 0.4, m.GetAvgLatency(), 1e-9)
}

func TestMetricsPrometheusHandler(t *testing.T) {
	m := NewMetrics()
	m.IncrementFrames()
	m.RecordEvent(classifier.EventEyeClosed, classifier.SeverityHigh)
	m.SetActiveClients(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, "fatigue_frames_total 1")
	assert.Contains(t, out, `fatigue_events_total{event_type="eye_closed",severity="high"} 1`)
	assert.Contains(t, out, "fatigue_active_sessions 4")
	assert.Contains(t, out, "fatigue_frame_latency_seconds_bucket")
}
