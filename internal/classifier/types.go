package classifier

// Point is a landmark position in frame pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkSet is the per-frame output of the landmark extractor. Index i
// must refer to the same anatomical point in every frame.
type LandmarkSet []Point

type EventType string

const (
	EventNormal       EventType = "normal"
	EventEyeClosed    EventType = "eye_closed"
	EventHeadNodding  EventType = "head_nodding"
	EventYawning      EventType = "yawning"
	EventBlinkingSlow EventType = "blinking_slow"
	EventDistraction  EventType = "distraction"
)

// IsAlert reports whether the event should be forwarded downstream.
func (e EventType) IsAlert() bool {
	return e != EventNormal
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Color is the overlay color used by renderers for this severity.
func (s Severity) Color() string {
	switch s {
	case SeverityMedium:
		return "yellow"
	case SeverityHigh:
		return "orange"
	case SeverityCritical:
		return "red"
	default:
		return "green"
	}
}

// MetricSample holds the metrics derived from a single frame.
type MetricSample struct {
	EAR       float64 `json:"ear"`
	MAR       float64 `json:"mar"`
	HeadAngle float64 `json:"head_angle"`
}

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DetectionOutcome is the classification result for one frame. The
// classifier does not retain it.
type DetectionOutcome struct {
	EventType   EventType   `json:"event_type"`
	Severity    Severity    `json:"severity"`
	Confidence  float64     `json:"confidence"`
	EAR         float64     `json:"ear"`
	MAR         float64     `json:"mar"`
	HeadAngle   float64     `json:"head_angle"`
	Landmarks   LandmarkSet `json:"landmarks,omitempty"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// Statistics is a read-only snapshot of classifier state.
type Statistics struct {
	EARHistoryLength       int     `json:"ear_history_length"`
	MARHistoryLength       int     `json:"mar_history_length"`
	HeadAngleHistoryLength int     `json:"head_angle_history_length"`
	EyeClosedFrames        int     `json:"eye_closed_frames"`
	YawningFrames          int     `json:"yawning_frames"`
	DistractionFrames      int     `json:"distraction_frames"`
	AvgEAR                 float64 `json:"avg_ear"`
	AvgMAR                 float64 `json:"avg_mar"`
	AvgHeadAngle           float64 `json:"avg_head_angle"`
}
