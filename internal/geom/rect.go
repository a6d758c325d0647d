package geom

import "math"

// Point is a position in document space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromEdges builds a rect from its min and max corners.
func RectFromEdges(minX, minY, maxX, maxY float64) Rect {
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (r Rect) Left() float64    { return r.X }
func (r Rect) Right() float64   { return r.X + r.Width }
func (r Rect) Top() float64     { return r.Y }
func (r Rect) Bottom() float64  { return r.Y + r.Height }
func (r Rect) CenterX() float64 { return r.X + r.Width/2 }
func (r Rect) CenterY() float64 { return r.Y + r.Height/2 }

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.CenterX(), Y: r.CenterY()}
}

// Contains checks if a point is inside the rect (edges included).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// ContainsRect reports whether other lies entirely inside r.
func (r Rect) ContainsRect(other Rect) bool {
	return other.X >= r.X && other.Right() <= r.Right() &&
		other.Y >= r.Y && other.Bottom() <= r.Bottom()
}

// Intersects reports whether the two rects overlap (touching counts).
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.Right() && other.X <= r.Right() &&
		r.Y <= other.Bottom() && other.Y <= r.Bottom()
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Inset shrinks r by d on every side; a negative d grows it.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, Width: r.Width - 2*d, Height: r.Height - 2*d}
}

// Union returns the smallest rect containing both rects. Degenerate rects
// (a horizontal or vertical line has zero area) still contribute their extent
// unless both dimensions are zero and the rect is the zero value.
func (r Rect) Union(other Rect) Rect {
	if r == (Rect{}) {
		return other
	}
	if other == (Rect{}) {
		return r
	}

	return RectFromEdges(
		min(r.X, other.X),
		min(r.Y, other.Y),
		max(r.Right(), other.Right()),
		max(r.Bottom(), other.Bottom()),
	)
}

// Normalize flips negative widths or heights so the rect is well formed.
func (r Rect) Normalize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// PointsBounds returns the axis-aligned bounds of a point set.
func PointsBounds(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return RectFromEdges(minX, minY, maxX, maxY)
}

// RotatedRectBounds returns the bounds of a width x height box anchored at
// (x, y), scaled by (sx, sy) and rotated by degrees around the anchor.
func RotatedRectBounds(x, y, width, height, sx, sy, degrees float64) Rect {
	m := FromTransform(x, y, sx, sy, degrees)
	return m.TransformRect(Rect{Width: width, Height: height})
}

// EllipseBounds returns the exact bounds of an ellipse centered at (cx, cy)
// with radii (rx, ry) rotated by degrees.
func EllipseBounds(cx, cy, rx, ry, degrees float64) Rect {
	rx, ry = math.Abs(rx), math.Abs(ry)
	rad := Radians(degrees)
	cos, sin := math.Cos(rad), math.Sin(rad)
	hx := math.Hypot(rx*cos, ry*sin)
	hy := math.Hypot(rx*sin, ry*cos)
	return RectFromEdges(cx-hx, cy-hy, cx+hx, cy+hy)
}
