// Package interact turns pointer, transform and keyboard events from a
// renderer into editor session operations: dragging with snapping, rubber
// band selection, shape drawing and shortcuts.
package interact

import (
	"math"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/geom"
)

// Tool is the active pointer tool.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolPan       Tool = "pan"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolText      Tool = "text"
	ToolLine      Tool = "line"
	ToolPen       Tool = "pen"
)

// Valid reports whether t names a known tool.
func (t Tool) Valid() bool {
	switch t {
	case ToolSelect, ToolPan, ToolRectangle, ToolCircle, ToolText, ToolLine, ToolPen:
		return true
	}
	return false
}

func (t Tool) draws() bool {
	switch t {
	case ToolRectangle, ToolCircle, ToolLine, ToolPen:
		return true
	}
	return false
}

// MinShapeSize is the smallest extent, in document units, a drawn shape
// needs to be kept.
const MinShapeSize = 2.0

// Style holds the attributes given to newly drawn shapes.
type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	FontFamily  string  `json:"fontFamily"`
	FontSize    float64 `json:"fontSize"`
}

// DefaultStyle returns the style used until the client changes it.
func DefaultStyle() Style {
	return Style{
		Fill:        "#4f46e5",
		Stroke:      "#1e1b4b",
		StrokeWidth: 2,
		FontFamily:  "Inter",
		FontSize:    24,
	}
}

// newDraft starts a shape for tool t at p.
func (s Style) newDraft(t Tool, p geom.Point) (document.Element, bool) {
	switch t {
	case ToolRectangle:
		return document.NewRect(p.X, p.Y, 0, 0, document.RectData{
			Fill:        s.Fill,
			Stroke:      s.Stroke,
			StrokeWidth: s.StrokeWidth,
		}), true
	case ToolCircle:
		return document.NewCircle(p.X, p.Y, document.CircleData{
			Fill:        s.Fill,
			Stroke:      s.Stroke,
			StrokeWidth: s.StrokeWidth,
		}), true
	case ToolLine:
		return document.NewLine(p.X, p.Y, document.LineData{
			Points:      []float64{0, 0, 0, 0},
			Stroke:      s.Stroke,
			StrokeWidth: s.StrokeWidth,
		}), true
	case ToolPen:
		return document.NewLine(p.X, p.Y, document.LineData{
			Points:      []float64{0, 0},
			Stroke:      s.Stroke,
			StrokeWidth: s.StrokeWidth,
			Tension:     0.5,
			Freehand:    true,
		}), true
	}
	return document.Element{}, false
}

func (s Style) newText(p geom.Point) document.Element {
	return document.NewText(p.X, p.Y, 0, 0, document.TextData{
		Text:       "Text",
		FontFamily: s.FontFamily,
		FontSize:   s.FontSize,
		Fill:       s.Stroke,
		Align:      "left",
		LineHeight: 1.2,
	})
}

// extendDraft reshapes the draft for a pointer at p, given the press point.
// square constrains rectangles to equal sides.
func extendDraft(el document.Element, start, p geom.Point, square bool) document.Element {
	switch d := el.Data.(type) {
	case document.RectData:
		w, h := p.X-start.X, p.Y-start.Y
		if square {
			side := math.Max(math.Abs(w), math.Abs(h))
			w, h = math.Copysign(side, w), math.Copysign(side, h)
		}
		r := geom.Rect{X: start.X, Y: start.Y, Width: w, Height: h}.Normalize()
		el.X, el.Y, el.Width, el.Height = r.X, r.Y, r.Width, r.Height
	case document.CircleData:
		d.Radius = geom.Distance(start, p)
		el.Data = d
	case document.LineData:
		dx, dy := p.X-start.X, p.Y-start.Y
		if d.Freehand {
			n := len(d.Points)
			if n >= 2 && d.Points[n-2] == dx && d.Points[n-1] == dy {
				break
			}
			d.Points = append(d.Points, dx, dy)
		} else {
			d.Points = []float64{0, 0, dx, dy}
		}
		el.Data = d
	}
	return el
}

// degenerate reports whether a finished draft is too small to keep.
func degenerate(el document.Element) bool {
	switch d := el.Data.(type) {
	case document.RectData:
		return el.Width < MinShapeSize || el.Height < MinShapeSize
	case document.CircleData:
		return d.Radius < MinShapeSize
	case document.LineData:
		b := geom.PointsBounds(geom.FlatPoints(d.Points))
		return len(d.Points) < 4 || (b.Width < MinShapeSize && b.Height < MinShapeSize)
	}
	return false
}
