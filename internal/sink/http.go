package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fatigue-detector/internal/models"

	"github.com/sirupsen/logrus"
)

const APIKeyHeader = "X-Vision-API-Key"

// HTTPSink posts events to the fleet backend.
type HTTPSink struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logrus.Entry
}

func NewHTTPSink(baseURL, apiKey string, logger *logrus.Logger) *HTTPSink {
	return &HTTPSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.WithField("component", "http_sink"),
	}
}

type backendEvent struct {
	DriverID   int64            `json:"driverId"`
	VehicleID  *int64           `json:"vehicleId"`
	EventType  string           `json:"eventType"`
	Severity   string           `json:"severity"`
	Confidence float64          `json:"confidence"`
	Location   *models.Location `json:"location"`
	ImagePath  *string          `json:"imagePath"`
	Metadata   map[string]any   `json:"metadata"`
}

func toBackendEvent(e models.EventRecord) backendEvent {
	// measured values overwrite client supplied keys of the same name
	meta := make(map[string]any, len(e.Metadata)+5)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta["sessionId"] = e.SessionID
	meta["ear"] = e.EAR
	meta["mar"] = e.MAR
	meta["headAngle"] = e.HeadAngle
	meta["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	var imagePath *string
	if e.ImagePath != "" {
		imagePath = &e.ImagePath
	}
	return backendEvent{
		DriverID:   e.DriverID,
		VehicleID:  e.VehicleID,
		EventType:  string(e.EventType),
		Severity:   string(e.Severity),
		Confidence: e.Confidence,
		Location:   e.Location,
		ImagePath:  imagePath,
		Metadata:   meta,
	}
}

func (s *HTTPSink) Send(ctx context.Context, event models.EventRecord) error {
	body, err := json.Marshal(toBackendEvent(event))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend rejected event: %d %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": event.SessionID,
		"event_type": event.EventType,
	}).Debug("event delivered")
	return nil
}

func (s *HTTPSink) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).Debug("backend health check failed")
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
