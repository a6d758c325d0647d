package geom

import "math"

// Distance returns the euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// PointToSegmentDistance returns the distance from p to the segment a-b.
func PointToSegmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return Distance(p, Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

// RoundTo rounds v to the nearest multiple of step. A non-positive step
// returns v unchanged.
func RoundTo(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// FlatPoints converts a flat [x0, y0, x1, y1, ...] slice to points. A trailing
// odd coordinate is ignored.
func FlatPoints(flat []float64) []Point {
	points := make([]Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		points = append(points, Point{X: flat[i], Y: flat[i+1]})
	}
	return points
}
