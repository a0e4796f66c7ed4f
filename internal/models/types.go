package models

import (
	"time"

	"fatigue-detector/internal/classifier"
)

// LandmarkFrame is one frame of a session. Either Landmarks or Frame (an
// encoded image for the landmark extractor) is set.
type LandmarkFrame struct {
	SessionID      string                 `json:"session_id" validate:"required,max=128"`
	DriverID       int64                  `json:"driver_id" validate:"gte=0"`
	VehicleID      *int64                 `json:"vehicle_id,omitempty"`
	Landmarks      classifier.LandmarkSet `json:"landmarks,omitempty"`
	Frame          string                 `json:"frame,omitempty" validate:"omitempty,base64"`
	Timestamp      int64                  `json:"timestamp,omitempty"`
	SequenceNumber int32                  `json:"sequence_number,omitempty"`
	Location       *Location              `json:"location,omitempty"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
}

type DetectionResponse struct {
	SessionID       string                  `json:"session_id"`
	FaceDetected    bool                    `json:"face_detected"`
	EventType       classifier.EventType    `json:"event_type,omitempty"`
	Severity        classifier.Severity     `json:"severity,omitempty"`
	Confidence      float64                 `json:"confidence"`
	EAR             float64                 `json:"ear"`
	MAR             float64                 `json:"mar"`
	HeadAngle       float64                 `json:"head_angle"`
	BoundingBox     *classifier.BoundingBox `json:"bounding_box,omitempty"`
	Color           string                  `json:"color,omitempty"`
	InferenceTimeMs float32                 `json:"inference_time_ms"`
	Timestamp       int64                   `json:"timestamp"`
	ClientTimestamp int64                   `json:"client_timestamp,omitempty"`
	SequenceNumber  int32                   `json:"sequence_number,omitempty"`
}

type BatchItem struct {
	Success bool               `json:"success"`
	Result  *DetectionResponse `json:"result,omitempty"`
	Error   string             `json:"error,omitempty"`
}

type SessionStatistics struct {
	SessionID  string                `json:"session_id"`
	Statistics classifier.Statistics `json:"statistics"`
	LastSeen   time.Time             `json:"last_seen"`
	Frames     int64                 `json:"frames"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
	Code      string `json:"code,omitempty"`
}

type HealthStatus struct {
	Status         string `json:"status"`
	GoBackend      string `json:"go_backend"`
	LandmarkSource bool   `json:"landmark_source"`
	EventBackend   bool   `json:"event_backend"`
	ActiveSessions int    `json:"active_sessions"`
	ActiveClients  int    `json:"active_clients"`
	UptimeSec      int64  `json:"uptime_sec"`
	Version        string `json:"version,omitempty"`
}
