package pb

import (
	"fatigue-detector/internal/classifier"
	"fatigue-detector/internal/models"
)

type (
	LandmarkFrame     = models.LandmarkFrame
	DetectionResult   = models.DetectionResponse
	SessionStatistics = models.SessionStatistics
	HealthStatus      = models.HealthStatus
)

type Empty struct{}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// ImageFrame is an encoded camera frame sent to the landmark extractor.
type ImageFrame struct {
	FrameData      []byte `json:"frame_data"`
	Timestamp      int64  `json:"timestamp"`
	SequenceNumber int32  `json:"sequence_number,omitempty"`
}

// LandmarkResponse carries the landmarks of the first detected face.
type LandmarkResponse struct {
	FaceDetected bool                   `json:"face_detected"`
	Landmarks    classifier.LandmarkSet `json:"landmarks,omitempty"`
	Width        int32                  `json:"width,omitempty"`
	Height       int32                  `json:"height,omitempty"`
}
