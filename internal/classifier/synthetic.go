package classifier

import "math"

// SyntheticFace builds a landmark set for layout whose eyes and mouth have
// the given aspect ratios and whose nose tip sits at angleDeg from the eye
// corner midpoint. Unused points collapse onto the face center. The eye
// corners must be the horizontal end points of the eyes, as in
// MediaPipeFaceMesh.
func SyntheticFace(l Layout, ear, mar, angleDeg float64) LandmarkSet {
	pts := make(LandmarkSet, l.PointCount)
	for i := range pts {
		pts[i] = Point{X: 250, Y: 150}
	}

	place := func(r RatioPoints, x0, y, width, ratio float64) {
		half := ratio * width / 2
		pts[r.Horizontal[0]] = Point{X: x0, Y: y}
		pts[r.Horizontal[1]] = Point{X: x0 + width, Y: y}
		pts[r.Vertical[0][0]] = Point{X: x0 + width*0.3, Y: y - half}
		pts[r.Vertical[0][1]] = Point{X: x0 + width*0.3, Y: y + half}
		pts[r.Vertical[1][0]] = Point{X: x0 + width*0.7, Y: y - half}
		pts[r.Vertical[1][1]] = Point{X: x0 + width*0.7, Y: y + half}
	}
	place(l.LeftEye, 100, 100, 100, ear)
	place(l.RightEye, 300, 100, 100, ear)
	place(l.Mouth, 150, 300, 200, mar)

	left, right := pts[l.LeftEyeCorner], pts[l.RightEyeCorner]
	cx, cy := (left.X+right.X)/2, (left.Y+right.Y)/2
	rad := angleDeg * math.Pi / 180
	pts[l.NoseTip] = Point{X: cx + 50*math.Cos(rad), Y: cy + 50*math.Sin(rad)}
	return pts
}
