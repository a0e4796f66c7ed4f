package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"fatigue-detector/internal/classifier"
	"fatigue-detector/internal/models"
	"fatigue-detector/internal/sink"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const Version = "1.0.0"

var (
	ErrNoLandmarkSource = errors.New("frame has no landmarks and no landmark extractor is configured")
	ErrInvalidFrame     = errors.New("invalid frame")
)

// DetectionService classifies frames on their session and forwards alert
// events to the sink.
type DetectionService struct {
	registry *SessionRegistry
	source   LandmarkSource
	sink     sink.Sink
	metrics  *Metrics
	validate *validator.Validate
	logger   *logrus.Entry
}

// NewDetectionService wires the service. source and eventSink may be nil.
func NewDetectionService(registry *SessionRegistry, source LandmarkSource, eventSink sink.Sink, metrics *Metrics, logger *logrus.Logger) *DetectionService {
	if eventSink == nil {
		eventSink = sink.Discard{}
	}
	return &DetectionService{
		registry: registry,
		source:   source,
		sink:     eventSink,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger.WithField("component", "detection"),
	}
}

func (s *DetectionService) Detect(ctx context.Context, frame *models.LandmarkFrame) (*models.DetectionResponse, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidFrame)
	}
	if err := s.validate.Struct(frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	start := time.Now()
	s.metrics.IncrementFrames()

	landmarks, err := s.resolveLandmarks(ctx, frame)
	if err != nil {
		s.metrics.IncrementErrors()
		return nil, err
	}

	outcome, err := s.registry.Process(frame.SessionID, landmarks)
	s.metrics.SetActiveClients(s.registry.Len())
	if err != nil {
		s.metrics.IncrementErrors()
		return nil, fmt.Errorf("session %s: %w", frame.SessionID, err)
	}

	elapsed := time.Since(start)
	s.metrics.RecordLatency(elapsed)

	resp := &models.DetectionResponse{
		SessionID:       frame.SessionID,
		InferenceTimeMs: float32(elapsed.Microseconds()) / 1000,
		Timestamp:       time.Now().UnixMilli(),
		ClientTimestamp: frame.Timestamp,
		SequenceNumber:  frame.SequenceNumber,
	}

	if outcome == nil {
		s.metrics.IncrementNoFace()
		return resp, nil
	}

	s.metrics.RecordEvent(outcome.EventType, outcome.Severity)
	fillResponse(resp, outcome)

	if outcome.EventType.IsAlert() {
		s.forward(ctx, frame, outcome)
	}
	return resp, nil
}

func (s *DetectionService) resolveLandmarks(ctx context.Context, frame *models.LandmarkFrame) (classifier.LandmarkSet, error) {
	if len(frame.Landmarks) > 0 || frame.Frame == "" {
		return frame.Landmarks, nil
	}
	if s.source == nil {
		return nil, ErrNoLandmarkSource
	}

	data, err := base64.StdEncoding.DecodeString(frame.Frame)
	if err != nil {
		return nil, fmt.Errorf("%w: frame is not base64: %v", ErrInvalidFrame, err)
	}
	landmarks, err := s.source.Extract(ctx, data, frame.Timestamp, frame.SequenceNumber)
	if err != nil {
		return nil, fmt.Errorf("landmark extraction: %w", err)
	}
	return landmarks, nil
}

func (s *DetectionService) forward(ctx context.Context, frame *models.LandmarkFrame, outcome *classifier.DetectionOutcome) {
	record := models.NewEventRecord(frame, outcome, time.Now().UTC())
	fields := logrus.Fields{
		"session_id": frame.SessionID,
		"event_type": outcome.EventType,
		"severity":   outcome.Severity,
		"confidence": fmt.Sprintf("%.2f", outcome.Confidence),
	}

	if err := s.sink.Send(ctx, record); err != nil {
		if !errors.Is(err, sink.ErrBufferFull) {
			s.metrics.IncrementSinkFailed()
		}
		s.logger.WithFields(fields).WithError(err).Warn("event not forwarded")
		return
	}
	s.logger.WithFields(fields).Info("fatigue event detected")
}

func fillResponse(resp *models.DetectionResponse, outcome *classifier.DetectionOutcome) {
	box := outcome.BoundingBox
	resp.FaceDetected = true
	resp.EventType = outcome.EventType
	resp.Severity = outcome.Severity
	resp.Confidence = outcome.Confidence
	resp.EAR = outcome.EAR
	resp.MAR = outcome.MAR
	resp.HeadAngle = outcome.HeadAngle
	resp.BoundingBox = &box
	resp.Color = outcome.Severity.Color()
}

// DetectBatch classifies frames in order. A failing frame is reported in
// its item and does not stop the batch.
func (s *DetectionService) DetectBatch(ctx context.Context, frames []models.LandmarkFrame) []models.BatchItem {
	items := make([]models.BatchItem, len(frames))
	for i := range frames {
		if err := ctx.Err(); err != nil {
			items[i] = models.BatchItem{Error: err.Error()}
			continue
		}
		resp, err := s.Detect(ctx, &frames[i])
		if err != nil {
			items[i] = models.BatchItem{Error: err.Error()}
			continue
		}
		items[i] = models.BatchItem{Success: true, Result: resp}
	}
	return items
}

func (s *DetectionService) Statistics(sessionID string) (models.SessionStatistics, error) {
	return s.registry.Statistics(sessionID)
}

func (s *DetectionService) Reset(sessionID string) error {
	if err := s.registry.Reset(sessionID); err != nil {
		return err
	}
	s.logger.WithField("session_id", sessionID).Info("session reset")
	return nil
}

// Sessions lists the tracked session keys in order.
func (s *DetectionService) Sessions() []string {
	return s.registry.Keys()
}

// Remove drops a session and its classifier state.
func (s *DetectionService) Remove(sessionID string) error {
	if err := s.registry.Remove(sessionID); err != nil {
		return err
	}
	s.metrics.SetActiveClients(s.registry.Len())
	s.logger.WithField("session_id", sessionID).Info("session removed")
	return nil
}

// EvictIdle removes idle sessions and refreshes the session gauge.
func (s *DetectionService) EvictIdle(maxIdle time.Duration) int {
	n := s.registry.EvictIdle(maxIdle)
	s.metrics.SetActiveClients(s.registry.Len())
	if n > 0 {
		s.logger.WithField("evicted", n).Info("idle sessions evicted")
	}
	return n
}

func (s *DetectionService) Health(ctx context.Context) models.HealthStatus {
	h := models.HealthStatus{
		Status:         "healthy",
		GoBackend:      "ok",
		EventBackend:   true,
		ActiveSessions: s.registry.Len(),
		UptimeSec:      int64(s.metrics.Uptime().Seconds()),
		Version:        Version,
	}
	if checker, ok := s.source.(interface{ HealthCheck(context.Context) bool }); ok {
		h.LandmarkSource = checker.HealthCheck(ctx)
	}
	if checker, ok := s.sink.(sink.HealthChecker); ok {
		h.EventBackend = checker.HealthCheck(ctx)
	}
	if !h.EventBackend {
		h.Status = "degraded"
	}
	return h
}

func (s *DetectionService) Metrics() *Metrics {
	return s.metrics
}
