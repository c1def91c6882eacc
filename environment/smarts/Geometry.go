package smarts

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Distance returns the Euclidean distance between two points
func Distance(p, q r2.Vec) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Direction returns the unit vector pointing along heading h. A heading
// of zero points along +y and headings increase counter-clockwise.
func Direction(h float64) r2.Vec {
	return r2.Vec{X: -math.Sin(h), Y: math.Cos(h)}
}

// WrapHeading wraps a heading to [-pi, pi)
func WrapHeading(h float64) float64 {
	wrapped := math.Mod(h+math.Pi, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

// DistTo returns the Euclidean distance from the waypoint to p
func (w Waypoint) DistTo(p r2.Vec) float64 {
	return Distance(w.Pos, p)
}

// SignedLateralError returns the distance from p to the line running
// through the waypoint along its heading. Points to the left of the
// waypoint's direction of travel are positive.
func (w Waypoint) SignedLateralError(p r2.Vec) float64 {
	dir := Direction(w.Heading)
	normal := r2.Vec{X: -dir.Y, Y: dir.X}

	dx, dy := p.X-w.Pos.X, p.Y-w.Pos.Y
	return dx*normal.X + dy*normal.Y
}

// RelativeHeading returns the waypoint's heading relative to h, wrapped
// to [-pi, pi)
func (w Waypoint) RelativeHeading(h float64) float64 {
	return WrapHeading(w.Heading - h)
}

// Closest returns the index of the waypoint closest to p. Ties resolve
// to the earliest waypoint. Closest returns -1 if wps is empty.
func Closest(wps []Waypoint, p r2.Vec) int {
	idx := -1
	best := math.Inf(1)
	for i, wp := range wps {
		if d := wp.DistTo(p); d < best {
			best = d
			idx = i
		}
	}
	return idx
}
