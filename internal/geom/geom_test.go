package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func assertRect(t *testing.T, want, got Rect) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, eps, "x")
	assert.InDelta(t, want.Y, got.Y, eps, "y")
	assert.InDelta(t, want.Width, got.Width, eps, "width")
	assert.InDelta(t, want.Height, got.Height, eps, "height")
}

func TestMatrixInvertRoundTrip(t *testing.T) {
	m := FromTransform(10, 20, 2, 3, 30)
	p := Point{X: 5, Y: -7}

	back := m.Invert().TransformPoint(m.TransformPoint(p))
	assert.InDelta(t, p.X, back.X, eps)
	assert.InDelta(t, p.Y, back.Y, eps)
	assert.True(t, m.Multiply(m.Invert()).IsIdentity())
}

func TestMatrixSingularInvertIsIdentity(t *testing.T) {
	assert.True(t, Scale(0, 1).Invert().IsIdentity())
}

func TestRotatedRectBounds(t *testing.T) {
	assertRect(t, Rect{X: 10, Y: 10, Width: 100, Height: 50}, RotatedRectBounds(10, 10, 100, 50, 1, 1, 0))
	assertRect(t, Rect{X: 10, Y: 10, Width: 200, Height: 25}, RotatedRectBounds(10, 10, 100, 50, 2, 0.5, 0))

	// A quarter turn around the top-left anchor swings the box to the left.
	assertRect(t, Rect{X: -40, Y: 10, Width: 50, Height: 100}, RotatedRectBounds(10, 10, 100, 50, 1, 1, 90))
}

func TestEllipseBounds(t *testing.T) {
	assertRect(t, Rect{X: 150, Y: 50, Width: 100, Height: 100}, EllipseBounds(200, 100, 50, 50, 0))
	assertRect(t, Rect{X: -20, Y: -10, Width: 40, Height: 20}, EllipseBounds(0, 0, 20, 10, 0))
	assertRect(t, Rect{X: -10, Y: -20, Width: 20, Height: 40}, EllipseBounds(0, 0, 20, 10, 90))
}

func TestRectUnionAndContains(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 20, Y: -5, Width: 5, Height: 5}

	u := a.Union(b)
	assertRect(t, Rect{X: 0, Y: -5, Width: 25, Height: 15}, u)
	assert.True(t, u.ContainsRect(a))
	assert.True(t, u.ContainsRect(b))
	assert.Equal(t, a, Rect{}.Union(a))
	assert.False(t, a.Intersects(b))
	assert.True(t, a.Contains(Point{X: 10, Y: 10}))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Rect{X: 5, Y: 5, Width: 10, Height: 10}, Rect{X: 15, Y: 15, Width: -10, Height: -10}.Normalize())
}

func TestPointToSegmentDistance(t *testing.T) {
	a, b := Point{0, 0}, Point{10, 0}
	assert.InDelta(t, 5, PointToSegmentDistance(Point{5, 5}, a, b), eps)
	assert.InDelta(t, 5, PointToSegmentDistance(Point{-3, 4}, a, b), eps)
	assert.InDelta(t, math.Sqrt2, PointToSegmentDistance(Point{1, 1}, a, a), eps)
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 40.0, RoundTo(33, 20))
	assert.Equal(t, 20.0, RoundTo(29.9, 20))
	assert.Equal(t, 7.3, RoundTo(7.3, 0))
}

func TestFlatPoints(t *testing.T) {
	assert.Equal(t, []Point{{1, 2}, {3, 4}}, FlatPoints([]float64{1, 2, 3, 4, 5}))
}
