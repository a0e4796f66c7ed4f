package classifier

import "math"

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// aspectRatio is (v1 + v2) / (2h), or 0 when the horizontal span is 0.
func aspectRatio(landmarks LandmarkSet, r RatioPoints) float64 {
	horizontal := distance(landmarks[r.Horizontal[0]], landmarks[r.Horizontal[1]])
	if horizontal == 0 {
		return 0
	}
	v1 := distance(landmarks[r.Vertical[0][0]], landmarks[r.Vertical[0][1]])
	v2 := distance(landmarks[r.Vertical[1][0]], landmarks[r.Vertical[1][1]])
	return (v1 + v2) / (2 * horizontal)
}

func eyeAspectRatio(landmarks LandmarkSet, l Layout) float64 {
	return (aspectRatio(landmarks, l.LeftEye) + aspectRatio(landmarks, l.RightEye)) / 2
}

func mouthAspectRatio(landmarks LandmarkSet, l Layout) float64 {
	return aspectRatio(landmarks, l.Mouth)
}

// headAngle is the direction in degrees from the eye-corner midpoint to the
// nose tip, folded into (-90, 90].
func headAngle(landmarks LandmarkSet, l Layout) float64 {
	left, right := landmarks[l.LeftEyeCorner], landmarks[l.RightEyeCorner]
	nose := landmarks[l.NoseTip]
	cx, cy := (left.X+right.X)/2, (left.Y+right.Y)/2
	deg := math.Atan2(nose.Y-cy, nose.X-cx) * 180 / math.Pi
	return normalizeHeadAngle(deg)
}

// normalizeHeadAngle folds an atan2 angle by half turns: 100 becomes -80,
// -100 becomes 80.
func normalizeHeadAngle(deg float64) float64 {
	if deg > 90 {
		return deg - 180
	}
	if deg <= -90 {
		return deg + 180
	}
	return deg
}

func boundingBox(landmarks LandmarkSet) BoundingBox {
	if len(landmarks) == 0 {
		return BoundingBox{}
	}
	minX, minY := landmarks[0].X, landmarks[0].Y
	maxX, maxY := minX, minY
	for _, p := range landmarks[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
