// Package classifier turns per-frame facial landmarks into fatigue events.
//
// A Classifier keeps rolling metric histories and consecutive-frame
// counters for a single frame stream. It is not safe for concurrent use:
// callers serialize ProcessFrame per instance and use one instance per
// camera or driver session.
package classifier

import (
	"errors"
	"fmt"
	"math"
)

var ErrIncompleteLandmarks = errors.New("landmark set does not cover the configured layout")

type Classifier struct {
	cfg Config

	earHistory       *history
	marHistory       *history
	headAngleHistory *history

	eyeClosedFrames   int
	yawningFrames     int
	distractionFrames int
}

func New(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{
		cfg:              cfg,
		earHistory:       newHistory(cfg.HistoryWindow),
		marHistory:       newHistory(cfg.HistoryWindow),
		headAngleHistory: newHistory(cfg.HistoryWindow),
	}, nil
}

func (c *Classifier) Config() Config {
	return c.cfg
}

// ProcessFrame classifies one frame. An empty landmark set means no face
// was found: it returns nil and leaves histories and counters untouched.
func (c *Classifier) ProcessFrame(landmarks LandmarkSet) (*DetectionOutcome, error) {
	if len(landmarks) == 0 {
		return nil, nil
	}
	if need := c.cfg.Layout.MinPoints(); len(landmarks) < need {
		return nil, fmt.Errorf("%w: got %d points, need %d", ErrIncompleteLandmarks, len(landmarks), need)
	}

	sample := c.Measure(landmarks)

	c.earHistory.push(sample.EAR)
	c.marHistory.push(sample.MAR)
	c.headAngleHistory.push(sample.HeadAngle)

	event, severity, confidence := c.analyze(sample)

	return &DetectionOutcome{
		EventType:   event,
		Severity:    severity,
		Confidence:  confidence,
		EAR:         sample.EAR,
		MAR:         sample.MAR,
		HeadAngle:   sample.HeadAngle,
		Landmarks:   landmarks,
		BoundingBox: boundingBox(landmarks),
	}, nil
}

// Measure derives the frame metrics without touching classifier state.
// The caller guarantees the set covers the layout.
func (c *Classifier) Measure(landmarks LandmarkSet) MetricSample {
	return MetricSample{
		EAR:       eyeAspectRatio(landmarks, c.cfg.Layout),
		MAR:       mouthAspectRatio(landmarks, c.cfg.Layout),
		HeadAngle: headAngle(landmarks, c.cfg.Layout),
	}
}

// analyze applies the rules in priority order; the first rule that fires
// wins. Eye and mouth counters advance or reset on every frame that reaches
// their rule.
func (c *Classifier) analyze(s MetricSample) (EventType, Severity, float64) {
	cfg := c.cfg

	if s.EAR < cfg.EyeARThreshold {
		c.eyeClosedFrames++
		if c.eyeClosedFrames >= cfg.EARConsecutiveFrames {
			confidence := clamp01((cfg.EyeARThreshold-s.EAR)/cfg.EyeARThreshold + 0.5)
			return EventEyeClosed, c.severityFor(confidence), confidence
		}
	} else {
		c.eyeClosedFrames = 0
	}

	if s.MAR > cfg.MARThreshold {
		c.yawningFrames++
		if c.yawningFrames >= cfg.MARConsecutiveFrames {
			confidence := clamp01((s.MAR-cfg.MARThreshold)/cfg.MARThreshold + 0.5)
			return EventYawning, SeverityMedium, confidence
		}
	} else {
		c.yawningFrames = 0
	}

	if tilt := math.Abs(s.HeadAngle); tilt > cfg.HeadAngleThresholdDegrees {
		confidence := clamp01(tilt / 90)
		return EventHeadNodding, c.severityFor(confidence), confidence
	}

	if c.earHistory.len() >= cfg.BlinkVarianceWindow {
		variance := popVariance(c.earHistory.last(cfg.BlinkVarianceWindow))
		if variance > cfg.BlinkVarianceThreshold {
			return EventBlinkingSlow, SeverityLow, clamp01(variance * 10)
		}
	}

	return EventNormal, SeverityLow, 0.5
}

func (c *Classifier) severityFor(confidence float64) Severity {
	switch {
	case confidence > c.cfg.CriticalThreshold:
		return SeverityCritical
	case confidence > c.cfg.DrowsinessThreshold:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

func (c *Classifier) Statistics() Statistics {
	return Statistics{
		EARHistoryLength:       c.earHistory.len(),
		MARHistoryLength:       c.marHistory.len(),
		HeadAngleHistoryLength: c.headAngleHistory.len(),
		EyeClosedFrames:        c.eyeClosedFrames,
		YawningFrames:          c.yawningFrames,
		DistractionFrames:      c.distractionFrames,
		AvgEAR:                 c.earHistory.mean(),
		AvgMAR:                 c.marHistory.mean(),
		AvgHeadAngle:           c.headAngleHistory.mean(),
	}
}

// Reset starts a fresh session without reallocating the classifier.
func (c *Classifier) Reset() {
	c.earHistory.clear()
	c.marHistory.clear()
	c.headAngleHistory.clear()
	c.eyeClosedFrames = 0
	c.yawningFrames = 0
	c.distractionFrames = 0
}
