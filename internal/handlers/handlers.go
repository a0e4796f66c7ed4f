package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fatigue-detector/internal/classifier"
	"fatigue-detector/internal/models"
	"fatigue-detector/internal/services"

	"github.com/sirupsen/logrus"
)

const (
	maxBatchSize      = 100
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventLister reads stored events; nil when storage is disabled.
type EventLister interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Event, error)
	CountBySeverity(ctx context.Context, sessionID string) (map[string]int64, error)
}

type API struct {
	service     *services.DetectionService
	events      EventLister
	hub         *Hub
	corsOrigins []string
	maxBody     int64
	logger      *logrus.Entry
}

type APIOptions struct {
	Events      EventLister
	Hub         *Hub
	CORSOrigins []string
	MaxBody     int64
}

func NewAPI(service *services.DetectionService, opts APIOptions, logger *logrus.Logger) *API {
	if opts.MaxBody <= 0 {
		opts.MaxBody = 10 << 20
	}
	return &API{
		service:     service,
		events:      opts.Events,
		hub:         opts.Hub,
		corsOrigins: opts.CORSOrigins,
		maxBody:     opts.MaxBody,
		logger:      logger.WithField("component", "http"),
	}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/detect", a.Detect)
	mux.HandleFunc("/api/detect/batch", a.DetectBatch)
	mux.HandleFunc("/api/sessions", a.ListSessions)
	mux.HandleFunc("/api/sessions/{id}", a.DeleteSession)
	mux.HandleFunc("/api/sessions/{id}/statistics", a.SessionStatistics)
	mux.HandleFunc("/api/sessions/{id}/reset", a.ResetSession)
	mux.HandleFunc("/api/events", a.Events)
	mux.HandleFunc("/api/events/summary", a.EventSummary)
	mux.HandleFunc("/api/health", a.Health)
	mux.HandleFunc("/api/metrics", a.Metrics)
	mux.Handle("/metrics", a.service.Metrics().Handler())
	if a.hub != nil {
		mux.HandleFunc("/ws", a.hub.ServeWS)
	}
}

func (a *API) enableCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	for _, allowed := range a.corsOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			break
		}
	}
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Vision-API-Key")
	w.Header().Set("Content-Type", "application/json")
}

// allow handles CORS preflight and rejects other methods.
func (a *API) allow(w http.ResponseWriter, r *http.Request, method string) bool {
	a.enableCORS(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return false
	}
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return false
	}
	return true
}

func (a *API) Detect(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, http.MethodPost) {
		return
	}

	var frame models.LandmarkFrame
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.maxBody)).Decode(&frame); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_json")
		return
	}

	result, err := a.service.Detect(r.Context(), &frame)
	if err != nil {
		a.logger.WithError(err).WithField("session_id", frame.SessionID).Warn("detect failed")
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) DetectBatch(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Frames []models.LandmarkFrame `json:"frames"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_json")
		return
	}
	if len(req.Frames) == 0 {
		writeError(w, http.StatusBadRequest, "frames must not be empty", "empty_batch")
		return
	}
	if len(req.Frames) > maxBatchSize {
		writeError(w, http.StatusBadRequest, "Maximum "+strconv.Itoa(maxBatchSize)+" frames per batch", "batch_too_large")
		return
	}

	items := a.service.DetectBatch(r.Context(), req.Frames)
	succeeded := 0
	for _, item := range items {
		if item.Success {
			succeeded++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":   items,
		"total":     len(items),
		"succeeded": succeeded,
		"failed":    len(items) - succeeded,
	})
}

func (a *API) ListSessions(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, http.MethodGet) {
		return
	}
	sessions := a.service.Sessions()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

func (a *API) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, http.MethodDelete) {
		return
	}
	id := r.PathValue("id")
	if err := a.service.Remove(id); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"removed":    true,
	})
}

func (a *API) SessionStatistics(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, http.MethodGet) {
		return
	}
	stats, err := a.service.Statistics(r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) ResetSession(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, http.MethodPost) {
		return
	}
	id := r.PathValue("id")
	if err := a.service.Reset(id); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"reset":      true,
	})
}

func (a *API) Events(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, http.MethodGet) {
		return
	}
	if a.events == nil {
		writeError(w, http.StatusServiceUnavailable, "Event storage is not configured", "storage_disabled")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required", "missing_session_id")
		return
	}
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxEventLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxEventLimit), "invalid_limit")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	events, err := a.events.ListBySession(ctx, sessionID, limit)
	if err != nil {
		a.logger.WithError(err).WithField("session_id", sessionID).Error("list events failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch events", "storage_error")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// EventSummary counts stored events of a session per severity.
func (a *API) EventSummary(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, http.MethodGet) {
		return
	}
	if a.events == nil {
		writeError(w, http.StatusServiceUnavailable, "Event storage is not configured", "storage_disabled")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required", "missing_session_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	counts, err := a.events.CountBySeverity(ctx, sessionID)
	if err != nil {
		a.logger.WithError(err).WithField("session_id", sessionID).Error("count events failed")
		writeError(w, http.StatusInternalServerError, "Failed to count events", "storage_error")
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":  sessionID,
		"by_severity": counts,
		"total":       total,
	})
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, http.MethodGet) {
		return
	}
	health := a.service.Health(r.Context())
	if a.hub != nil {
		health.ActiveClients = a.hub.Count()
	}
	writeJSON(w, http.StatusOK, health)
}

func (a *API) Metrics(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, http.MethodGet) {
		return
	}
	snap := a.service.Metrics().Snapshot()
	snap["timestamp"] = time.Now().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidFrame):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_frame")
	case errors.Is(err, classifier.ErrIncompleteLandmarks):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "incomplete_landmarks")
	case errors.Is(err, services.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found", "session_not_found")
	case errors.Is(err, services.ErrNoLandmarkSource):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "no_landmark_source")
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error", "internal")
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg, errCode string) {
	writeJSON(w, code, models.ErrorResponse{
		Error:     msg,
		Timestamp: time.Now().Unix(),
		Code:      errCode,
	})
}
