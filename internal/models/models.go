package models

import (
	"time"

	"fatigue-detector/internal/classifier"
)

type Location struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Speed     float64 `json:"speed,omitempty"`
}

// Event is a stored fatigue event.
type Event struct {
	ID         int64          `json:"id"`
	SessionID  string         `json:"session_id"`
	DriverID   int64          `json:"driver_id"`
	VehicleID  *int64         `json:"vehicle_id,omitempty"`
	EventType  string         `json:"event_type"`
	Severity   string         `json:"severity"`
	Confidence float64        `json:"confidence"`
	EAR        float64        `json:"ear"`
	MAR        float64        `json:"mar"`
	HeadAngle  float64        `json:"head_angle"`
	Location   *Location      `json:"location,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// EventRecord is the flattened record handed to event sinks.
type EventRecord struct {
	SessionID  string               `json:"sessionId"`
	DriverID   int64                `json:"driverId"`
	VehicleID  *int64               `json:"vehicleId,omitempty"`
	EventType  classifier.EventType `json:"eventType"`
	Severity   classifier.Severity  `json:"severity"`
	Confidence float64              `json:"confidence"`
	EAR        float64              `json:"ear"`
	MAR        float64              `json:"mar"`
	HeadAngle  float64              `json:"headAngle"`
	Location   *Location            `json:"location,omitempty"`
	ImagePath  string               `json:"imagePath,omitempty"`
	Metadata   map[string]any       `json:"metadata,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

func NewEventRecord(frame *LandmarkFrame, out *classifier.DetectionOutcome, at time.Time) EventRecord {
	return EventRecord{
		SessionID:  frame.SessionID,
		DriverID:   frame.DriverID,
		VehicleID:  frame.VehicleID,
		EventType:  out.EventType,
		Severity:   out.Severity,
		Confidence: out.Confidence,
		EAR:        out.EAR,
		MAR:        out.MAR,
		HeadAngle:  out.HeadAngle,
		Location:   frame.Location,
		Metadata:   frame.Metadata,
		Timestamp:  at,
	}
}

func (r EventRecord) ToEvent() Event {
	return Event{
		SessionID:  r.SessionID,
		DriverID:   r.DriverID,
		VehicleID:  r.VehicleID,
		EventType:  string(r.EventType),
		Severity:   string(r.Severity),
		Confidence: r.Confidence,
		EAR:        r.EAR,
		MAR:        r.MAR,
		HeadAngle:  r.HeadAngle,
		Location:   r.Location,
		Metadata:   r.Metadata,
		Timestamp:  r.Timestamp,
	}
}
