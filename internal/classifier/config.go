package classifier

import (
	"errors"
	"fmt"
)

// RatioPoints addresses the landmarks of one aspect ratio: a horizontal
// pair at the corners and two vertical pairs straddling the opening.
type RatioPoints struct {
	Horizontal [2]int
	Vertical   [2][2]int
}

func (r RatioPoints) maxIndex() int {
	m := max(r.Horizontal[0], r.Horizontal[1])
	for _, pair := range r.Vertical {
		m = max(m, pair[0], pair[1])
	}
	return m
}

// Layout maps anatomical points to landmark indices of a landmark model.
type Layout struct {
	PointCount int
	LeftEye    RatioPoints
	RightEye   RatioPoints
	Mouth      RatioPoints
	NoseTip    int
	// LeftEyeCorner and RightEyeCorner anchor the head angle vector.
	LeftEyeCorner  int
	RightEyeCorner int
}

// MediaPipeFaceMesh is the 468 point MediaPipe Face Mesh layout.
var MediaPipeFaceMesh = Layout{
	PointCount: 468,
	LeftEye: RatioPoints{
		Horizontal: [2]int{33, 144},
		Vertical:   [2][2]int{{7, 153}, {163, 145}},
	},
	RightEye: RatioPoints{
		Horizontal: [2]int{362, 380},
		Vertical:   [2][2]int{{382, 373}, {381, 374}},
	},
	Mouth: RatioPoints{
		Horizontal: [2]int{61, 307},
		Vertical:   [2][2]int{{17, 324}, {405, 321}},
	},
	NoseTip:        1,
	LeftEyeCorner:  33,
	RightEyeCorner: 362,
}

// MinPoints is the shortest landmark set that addresses every index.
func (l Layout) MinPoints() int {
	m := max(l.LeftEye.maxIndex(), l.RightEye.maxIndex(), l.Mouth.maxIndex(),
		l.NoseTip, l.LeftEyeCorner, l.RightEyeCorner)
	return m + 1
}

type Config struct {
	EyeARThreshold            float64
	MARThreshold              float64
	EARConsecutiveFrames      int
	MARConsecutiveFrames      int
	DrowsinessThreshold       float64
	CriticalThreshold         float64
	HeadAngleThresholdDegrees float64
	HistoryWindow             int
	BlinkVarianceWindow       int
	BlinkVarianceThreshold    float64
	Layout                    Layout
}

func DefaultConfig() Config {
	return Config{
		EyeARThreshold:            0.25,
		MARThreshold:              0.5,
		EARConsecutiveFrames:      3,
		MARConsecutiveFrames:      3,
		DrowsinessThreshold:       0.7,
		CriticalThreshold:         0.9,
		HeadAngleThresholdDegrees: 30,
		HistoryWindow:             30,
		BlinkVarianceWindow:       5,
		BlinkVarianceThreshold:    0.01,
		Layout:                    MediaPipeFaceMesh,
	}
}

var ErrInvalidConfig = errors.New("invalid classifier config")

func (c Config) Validate() error {
	switch {
	case c.EyeARThreshold <= 0:
		return fmt.Errorf("%w: eye aspect ratio threshold must be positive", ErrInvalidConfig)
	case c.MARThreshold <= 0:
		return fmt.Errorf("%w: mouth aspect ratio threshold must be positive", ErrInvalidConfig)
	case c.EARConsecutiveFrames < 1 || c.MARConsecutiveFrames < 1:
		return fmt.Errorf("%w: consecutive frame gates must be at least 1", ErrInvalidConfig)
	case c.DrowsinessThreshold < 0 || c.CriticalThreshold > 1:
		return fmt.Errorf("%w: confidence bands must lie in [0,1]", ErrInvalidConfig)
	case c.CriticalThreshold < c.DrowsinessThreshold:
		return fmt.Errorf("%w: critical threshold %.2f below drowsiness threshold %.2f",
			ErrInvalidConfig, c.CriticalThreshold, c.DrowsinessThreshold)
	case c.HeadAngleThresholdDegrees <= 0 || c.HeadAngleThresholdDegrees >= 90:
		return fmt.Errorf("%w: head angle threshold must be in (0,90)", ErrInvalidConfig)
	case c.HistoryWindow < 1:
		return fmt.Errorf("%w: history window must be at least 1", ErrInvalidConfig)
	case c.BlinkVarianceWindow < 2 || c.BlinkVarianceWindow > c.HistoryWindow:
		return fmt.Errorf("%w: blink variance window must be in [2, history window]", ErrInvalidConfig)
	case c.BlinkVarianceThreshold < 0:
		return fmt.Errorf("%w: blink variance threshold must not be negative", ErrInvalidConfig)
	case c.Layout.PointCount < c.Layout.MinPoints():
		return fmt.Errorf("%w: layout declares %d points but addresses index %d",
			ErrInvalidConfig, c.Layout.PointCount, c.Layout.MinPoints()-1)
	}
	return nil
}
