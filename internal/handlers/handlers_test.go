package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fatigue-detector/internal/classifier"
	"fatigue-detector/internal/models"
	"fatigue-detector/internal/services"
	"fatigue-detector/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func face(ear, mar, angle float64) classifier.LandmarkSet {
	return classifier.SyntheticFace(classifier.MediaPipeFaceMesh, ear, mar, angle)
}

func newTestService(t *testing.T) *services.DetectionService {
	t.Helper()
	registry, err := services.NewSessionRegistry(classifier.DefaultConfig())
	require.NoError(t, err)
	return services.NewDetectionService(registry, nil, nil, services.NewMetrics(), log.Discard())
}

type fakeEvents struct {
	events   []models.Event
	counts   map[string]int64
	err      error
	gotID    string
	gotLimit int
}

func (f *fakeEvents) ListBySession(_ context.Context, sessionID string, limit int) ([]models.Event, error) {
	f.gotID, f.gotLimit = sessionID, limit
	return f.events, f.err
}

func (f *fakeEvents) CountBySeverity(_ context.Context, sessionID string) (map[string]int64, error) {
	f.gotID = sessionID
	return f.counts, f.err
}

func newTestMux(t *testing.T, events EventLister) (*http.ServeMux, *services.DetectionService) {
	t.Helper()
	svc := newTestService(t)
	mux := http.NewServeMux()
	NewAPI(svc, APIOptions{Events: events, CORSOrigins: []string{"http://localhost:3000"}}, log.Discard()).Register(mux)
	return mux, svc
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDetectEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	var resp models.DetectionResponse
	for i := 0; i < 3; i++ {
		rec := do(t, mux, http.MethodPost, "/api/detect", models.LandmarkFrame{
			SessionID: "cab-1",
			Landmarks: face(0.15, 0.2, 0),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	assert.Equal(t, classifier.EventEyeClosed, resp.EventType)
	assert.Equal(t, classifier.SeverityHigh, resp.Severity)
	assert.True(t, resp.FaceDetected)

	rec := do(t, mux, http.MethodGet, "/api/detect", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDetectEndpointErrors(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/detect", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decodeError(t, rec).Code)

	rec = do(t, mux, http.MethodPost, "/api/detect", models.LandmarkFrame{Landmarks: face(0.3, 0.2, 0)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_frame", decodeError(t, rec).Code)

	rec = do(t, mux, http.MethodPost, "/api/detect", models.LandmarkFrame{
		SessionID: "cab-1",
		Landmarks: face(0.3, 0.2, 0)[:10],
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, mux, http.MethodPost, "/api/detect", models.LandmarkFrame{SessionID: "cab-1", Frame: "aGVsbG8="})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "no_landmark_source", decodeError(t, rec).Code)
}

func TestDetectNoFaceEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	rec := do(t, mux, http.MethodPost, "/api/detect", models.LandmarkFrame{SessionID: "cab-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.DetectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.FaceDetected)
}

func TestDetectBatchEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	rec := do(t, mux, http.MethodPost, "/api/detect/batch", map[string]interface{}{
		"frames": []models.LandmarkFrame{
			{SessionID: "cab-1", Landmarks: face(0.3, 0.2, 0)},
			{Landmarks: face(0.3, 0.2, 0)},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results   []models.BatchItem `json:"results"`
		Total     int                `json:"total"`
		Succeeded int                `json:"succeeded"`
		Failed    int                `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.True(t, resp.Results[0].Success)
	assert.NotEmpty(t, resp.Results[1].Error)

	rec = do(t, mux, http.MethodPost, "/api/detect/batch", map[string]interface{}{"frames": []models.LandmarkFrame{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tooMany := make([]models.LandmarkFrame, maxBatchSize+1)
	rec = do(t, mux, http.MethodPost, "/api/detect/batch", map[string]interface{}{"frames": tooMany})
	assert.Equal(t, "batch_too_large", decodeError(t, rec).Code)
}

func TestSessionEndpoints(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rec := do(t, mux, http.MethodGet, "/api/sessions/cab-1/statistics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for i := 0; i < 2; i++ {
		do(t, mux, http.MethodPost, "/api/detect", models.LandmarkFrame{SessionID: "cab-1", Landmarks: face(0.15, 0.2, 0)})
	}

	rec = do(t, mux, http.MethodGet, "/api/sessions/cab-1/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.SessionStatistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "cab-1", stats.SessionID)
	assert.Equal(t, 2, stats.Statistics.EyeClosedFrames)
	assert.EqualValues(t, 2, stats.Frames)

	rec = do(t, mux, http.MethodPost, "/api/sessions/cab-1/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodGet, "/api/sessions/cab-1/statistics", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Statistics.EARHistoryLength)

	rec = do(t, mux, http.MethodGet, "/api/sessions/cab-1/reset", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListAndDeleteSessions(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	for _, id := range []string{"cab-2", "cab-1"} {
		do(t, mux, http.MethodPost, "/api/detect", models.LandmarkFrame{SessionID: id, Landmarks: face(0.3, 0.2, 0)})
	}

	var list struct {
		Sessions []string `json:"sessions"`
		Total    int      `json:"total"`
	}
	rec := do(t, mux, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{"cab-1", "cab-2"}, list.Sessions)
	assert.Equal(t, 2, list.Total)

	rec = do(t, mux, http.MethodDelete, "/api/sessions/cab-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, mux, http.MethodDelete, "/api/sessions/cab-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, mux, http.MethodGet, "/api/sessions/cab-1/statistics", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, mux, http.MethodPost, "/api/sessions/cab-2", nil).Code)

	rec = do(t, mux, http.MethodGet, "/api/sessions", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{"cab-2"}, list.Sessions)
}

func TestEventsEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	rec := do(t, mux, http.MethodGet, "/api/events?session_id=cab-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	store := &fakeEvents{events: []models.Event{{ID: 1, SessionID: "cab-1", EventType: "yawning", Timestamp: time.Now()}}}
	mux, _ = newTestMux(t, store)

	rec = do(t, mux, http.MethodGet, "/api/events?session_id=cab-1&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "yawning", events[0].EventType)
	assert.Equal(t, "cab-1", store.gotID)
	assert.Equal(t, 5, store.gotLimit)

	rec = do(t, mux, http.MethodGet, "/api/events?session_id=cab-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultEventLimit, store.gotLimit)

	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodGet, "/api/events", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodGet, "/api/events?session_id=x&limit=0", nil).Code)

	store.err = errors.New("connection reset")
	assert.Equal(t, http.StatusInternalServerError, do(t, mux, http.MethodGet, "/api/events?session_id=x", nil).Code)
}

func TestEventSummaryEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, mux, http.MethodGet, "/api/events/summary?session_id=cab-1", nil).Code)

	store := &fakeEvents{counts: map[string]int64{"HIGH": 2, "CRITICAL": 1}}
	mux, _ = newTestMux(t, store)

	rec := do(t, mux, http.MethodGet, "/api/events/summary?session_id=cab-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SessionID  string           `json:"session_id"`
		BySeverity map[string]int64 `json:"by_severity"`
		Total      int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cab-1", body.SessionID)
	assert.Equal(t, int64(3), body.Total)
	assert.Equal(t, int64(2), body.BySeverity["HIGH"])

	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodGet, "/api/events/summary", nil).Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	do(t, mux, http.MethodPost, "/api/detect", models.LandmarkFrame{SessionID: "cab-1", Landmarks: face(0.3, 0.2, 0)})

	rec := do(t, mux, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health models.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 1, health.ActiveSessions)

	rec = do(t, mux, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.EqualValues(t, 1, snap["total_frames"])
	assert.Contains(t, snap, "timestamp")

	rec = do(t, mux, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fatigue_events_total{event_type="normal",severity="low"} 1`)
}

func TestPreflight(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	rec := do(t, mux, http.MethodOptions, "/api/detect", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Vision-API-Key")
}
