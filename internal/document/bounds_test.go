package document

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inamate/freecanvas/internal/geom"
)

func pt(x, y float64) geom.Point {
	return geom.Point{X: x, Y: y}
}

func TestBoundsPerKind(t *testing.T) {
	cases := []struct {
		name string
		el   Element
		want geom.Rect
	}{
		{"rectangle", rect(10, 20, 100, 50), geom.Rect{X: 10, Y: 20, Width: 100, Height: 50}},
		{"circle", NewCircle(200, 100, CircleData{Radius: 50}), geom.Rect{X: 150, Y: 50, Width: 100, Height: 100}},
		{"line", NewLine(10, 10, LineData{Points: []float64{0, 0, 30, -20, 50, 40}}), geom.Rect{X: 10, Y: -10, Width: 50, Height: 60}},
		{"image", NewImage(1, 2, 30, 40, ImageData{}), geom.Rect{X: 1, Y: 2, Width: 30, Height: 40}},
		{"text", NewText(0, 0, 100, 0, TextData{Text: "a\nb", FontSize: 10, LineHeight: 1.5}), geom.Rect{Width: 100, Height: 30}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.el.Bounds()
			assert.InDelta(t, tc.want.X, got.X, 1e-9)
			assert.InDelta(t, tc.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tc.want.Width, got.Width, 1e-9)
			assert.InDelta(t, tc.want.Height, got.Height, 1e-9)
		})
	}
}

func TestBoundsAppliesScale(t *testing.T) {
	r := rect(0, 0, 10, 10)
	r.ScaleX, r.ScaleY = 3, 2
	assert.Equal(t, geom.Rect{Width: 30, Height: 20}, r.Bounds())

	c := NewCircle(0, 0, CircleData{Radius: 10})
	c.ScaleX = 2
	assert.Equal(t, geom.Rect{X: -20, Y: -10, Width: 40, Height: 20}, c.Bounds())
}

func TestBoundsAt(t *testing.T) {
	r := rect(0, 0, 100, 100)
	assert.Equal(t, geom.Rect{X: 50, Y: 5, Width: 100, Height: 100}, r.BoundsAt(50, 5))
}

func TestHitTest(t *testing.T) {
	r := rect(0, 0, 100, 50)
	assert.True(t, r.HitTest(pt(50, 25), 0))
	assert.False(t, r.HitTest(pt(150, 25), 0))
	assert.True(t, r.HitTest(pt(102, 25), 3))

	r.Rotation = 90
	assert.True(t, r.HitTest(pt(-25, 50), 0))
	assert.False(t, r.HitTest(pt(50, 25), 0))

	c := NewCircle(200, 100, CircleData{Radius: 50})
	assert.True(t, c.HitTest(pt(240, 100), 0))
	assert.False(t, c.HitTest(pt(245, 145), 0))

	l := NewLine(0, 0, LineData{Points: []float64{0, 0, 100, 0}, StrokeWidth: 4})
	assert.True(t, l.HitTest(pt(50, 1.5), 0))
	assert.False(t, l.HitTest(pt(50, 10), 0))
	assert.True(t, l.HitTest(pt(50, 10), 9))
}

func TestNormalizeScaleText(t *testing.T) {
	txt := NewText(0, 0, 100, 40, TextData{Text: "hi", FontSize: 20})
	txt.ScaleX, txt.ScaleY = 2, 0.5

	got := txt.NormalizeScale()
	assert.Equal(t, 1.0, got.ScaleX)
	assert.Equal(t, 1.0, got.ScaleY)
	assert.Equal(t, 200.0, got.Width)
	assert.Equal(t, 20.0, got.Height)
	assert.Equal(t, 20.0, got.Data.(TextData).FontSize, "glyphs are not resized")

	r := rect(0, 0, 10, 10)
	r.ScaleX = 2
	assert.Equal(t, r, r.NormalizeScale(), "only text is normalized")
}
