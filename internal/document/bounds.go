package document

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/inamate/freecanvas/internal/geom"
)

const (
	defaultFontSize   = 16
	defaultLineHeight = 1.2
	// Average advance of a glyph relative to the font size, used when a text
	// element has no explicit width.
	avgGlyphAdvance = 0.6
)

// Size returns the unscaled local size of the element's box. Circles report
// their diameter and lines the extent of their points.
func (e Element) Size() (float64, float64) {
	switch d := e.Data.(type) {
	case CircleData:
		return 2 * d.Radius, 2 * d.Radius
	case LineData:
		b := geom.PointsBounds(geom.FlatPoints(d.Points))
		return b.Width, b.Height
	case TextData:
		w, h := e.Width, e.Height
		if w <= 0 || h <= 0 {
			mw, mh := measureText(d)
			if w <= 0 {
				w = mw
			}
			if h <= 0 {
				h = mh
			}
		}
		return w, h
	default:
		return e.Width, e.Height
	}
}

// Transform returns the element's local-to-document matrix.
func (e Element) Transform() geom.Matrix2D {
	return geom.FromTransform(e.X, e.Y, scaleOr1(e.ScaleX), scaleOr1(e.ScaleY), e.Rotation)
}

// Bounds returns the axis-aligned bounding box of the element in document
// space, with rotation and scale applied.
func (e Element) Bounds() geom.Rect {
	return e.BoundsAt(e.X, e.Y)
}

// BoundsAt returns the bounds the element would have at position (x, y).
func (e Element) BoundsAt(x, y float64) geom.Rect {
	sx, sy := scaleOr1(e.ScaleX), scaleOr1(e.ScaleY)

	switch d := e.Data.(type) {
	case CircleData:
		return geom.EllipseBounds(x, y, d.Radius*sx, d.Radius*sy, e.Rotation)
	case LineData:
		m := geom.FromTransform(x, y, sx, sy, e.Rotation)
		pts := geom.FlatPoints(d.Points)
		for i, p := range pts {
			pts[i] = m.TransformPoint(p)
		}
		if len(pts) == 0 {
			return geom.Rect{X: x, Y: y}
		}
		return geom.PointsBounds(pts)
	default:
		w, h := e.Size()
		return geom.RotatedRectBounds(x, y, w, h, sx, sy, e.Rotation)
	}
}

// HitTest reports whether the document point p lies on the element. The
// tolerance widens thin targets such as lines.
func (e Element) HitTest(p geom.Point, tolerance float64) bool {
	local := e.Transform().Invert().TransformPoint(p)

	switch d := e.Data.(type) {
	case CircleData:
		if d.Radius <= 0 {
			return false
		}
		r := d.Radius + tolerance
		return local.X*local.X+local.Y*local.Y <= r*r
	case LineData:
		pts := geom.FlatPoints(d.Points)
		reach := tolerance + d.StrokeWidth/2
		if len(pts) == 1 {
			return geom.Distance(local, pts[0]) <= reach
		}
		for i := 1; i < len(pts); i++ {
			if geom.PointToSegmentDistance(local, pts[i-1], pts[i]) <= reach {
				return true
			}
		}
		if d.Closed && len(pts) > 2 {
			return geom.PointToSegmentDistance(local, pts[len(pts)-1], pts[0]) <= reach
		}
		return false
	default:
		w, h := e.Size()
		return geom.Rect{Width: w, Height: h}.Inset(-tolerance).Contains(local)
	}
}

// NormalizeScale folds a text element's scale into its width and height so
// that text re-wraps instead of stretching glyphs. Other kinds are returned
// unchanged.
func (e Element) NormalizeScale() Element {
	if e.Kind() != KindText {
		return e
	}
	sx, sy := scaleOr1(e.ScaleX), scaleOr1(e.ScaleY)
	if sx == 1 && sy == 1 {
		e.ScaleX, e.ScaleY = 1, 1
		return e
	}
	w, h := e.Size()
	e.Width = math.Max(1, w*math.Abs(sx))
	e.Height = math.Max(1, h*math.Abs(sy))
	e.ScaleX, e.ScaleY = 1, 1
	return e
}

func measureText(d TextData) (float64, float64) {
	size := d.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	lh := d.LineHeight
	if lh <= 0 {
		lh = defaultLineHeight
	}

	lines := strings.Split(d.Text, "\n")
	longest := 0
	for _, l := range lines {
		longest = max(longest, utf8.RuneCountInString(l))
	}
	return float64(max(longest, 1)) * size * avgGlyphAdvance, float64(len(lines)) * size * lh
}

func scaleOr1(s float64) float64 {
	if s == 0 {
		return 1
	}
	return s
}
