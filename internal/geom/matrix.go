package geom

import "math"

// Matrix2D is a 2D affine transformation matrix stored as [a, b, c, d, e, f]:
//
//	| a  c  e |
//	| b  d  f |
//	| 0  0  1 |
type Matrix2D [6]float64

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

// Scale returns a scale matrix.
func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Rotate returns a rotation matrix for an angle in degrees.
func Rotate(degrees float64) Matrix2D {
	rad := Radians(degrees)
	cos, sin := math.Cos(rad), math.Sin(rad)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// Multiply returns m * other, i.e. other is applied first.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

// TransformPoint applies the matrix to a point.
func (m Matrix2D) TransformPoint(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// TransformRect transforms the four corners of r and returns their axis-aligned bounds.
func (m Matrix2D) TransformRect(r Rect) Rect {
	return PointsBounds([]Point{
		m.TransformPoint(Point{r.X, r.Y}),
		m.TransformPoint(Point{r.X + r.Width, r.Y}),
		m.TransformPoint(Point{r.X + r.Width, r.Y + r.Height}),
		m.TransformPoint(Point{r.X, r.Y + r.Height}),
	})
}

// Determinant returns the determinant of the linear part.
func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse matrix, or Identity if m is singular.
func (m Matrix2D) Invert() Matrix2D {
	det := m.Determinant()
	if det == 0 {
		return Identity()
	}

	inv := 1.0 / det
	return Matrix2D{
		m[3] * inv,
		-m[1] * inv,
		-m[2] * inv,
		m[0] * inv,
		(m[2]*m[5] - m[3]*m[4]) * inv,
		(m[1]*m[4] - m[0]*m[5]) * inv,
	}
}

// FromTransform composes Translate(x, y) * Rotate(r) * Scale(sx, sy).
// Rotation and scale pivot around the element's own origin, which is the
// top-left corner for boxes and the center for circles.
func FromTransform(x, y, sx, sy, rDegrees float64) Matrix2D {
	rad := Radians(rDegrees)
	cos, sin := math.Cos(rad), math.Sin(rad)
	return Matrix2D{
		cos * sx,
		sin * sx,
		-sin * sy,
		cos * sy,
		x,
		y,
	}
}

// ToSlice returns the matrix as a slice for JSON serialization.
func (m Matrix2D) ToSlice() []float64 {
	return []float64{m[0], m[1], m[2], m[3], m[4], m[5]}
}

// IsIdentity reports whether m is the identity within a small epsilon.
func (m Matrix2D) IsIdentity() bool {
	const eps = 1e-10
	return math.Abs(m[0]-1) < eps &&
		math.Abs(m[1]) < eps &&
		math.Abs(m[2]) < eps &&
		math.Abs(m[3]-1) < eps &&
		math.Abs(m[4]) < eps &&
		math.Abs(m[5]) < eps
}
