// Package snap computes alignment guides and snap corrections for an element
// being dragged or resized against its siblings. Everything here is a pure
// function of its inputs; callers apply the returned correction themselves.
package snap

import (
	"math"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/geom"
)

const (
	// DefaultThreshold is the snap distance in screen pixels.
	DefaultThreshold = 5.0
	// DefaultGuideMargin extends guide lines past the aligned elements.
	DefaultGuideMargin = 10.0
)

// Orientation of a guide line.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// Anchor names a reference line of a bounding box.
type Anchor string

const (
	AnchorStart  Anchor = "start" // left or top
	AnchorCenter Anchor = "center"
	AnchorEnd    Anchor = "end" // right or bottom
)

// Dimension is the size compared by a size guide.
type Dimension string

const (
	Width  Dimension = "width"
	Height Dimension = "height"
)

// Options tunes snapping.
type Options struct {
	// Threshold is measured in screen pixels and divided by Scale.
	Threshold   float64
	Scale       float64
	GridSize    float64
	SnapToGrid  bool
	GuideMargin float64
}

// OptionsFor builds options from a view using the default threshold.
func OptionsFor(v document.View) Options {
	return Options{
		Threshold:  DefaultThreshold,
		Scale:      v.Scale,
		GridSize:   v.GridSize,
		SnapToGrid: v.SnapToGrid,
	}
}

func (o Options) threshold() float64 {
	th := o.Threshold
	if th <= 0 {
		th = DefaultThreshold
	}
	if o.Scale > 0 {
		th /= o.Scale
	}
	return th
}

func (o Options) margin() float64 {
	if o.GuideMargin > 0 {
		return o.GuideMargin
	}
	return DefaultGuideMargin
}

// Guide is an alignment line. A vertical guide sits at X = Position and spans
// Start..End along Y; a horizontal guide is the transpose.
type Guide struct {
	Orientation Orientation `json:"orientation"`
	Position    float64     `json:"position"`
	Start       float64     `json:"start"`
	End         float64     `json:"end"`
	Moving      Anchor      `json:"moving"`
	Target      Anchor      `json:"target"`
	TargetID    string      `json:"targetId"`
}

// SizeGuide marks an equal width or height with a sibling. It is advisory and
// never moves the element.
type SizeGuide struct {
	Dimension Dimension  `json:"dimension"`
	Value     float64    `json:"value"`
	Label     geom.Point `json:"label"`
	TargetID  string     `json:"targetId"`
}

// DragResult is the outcome of a drag snap query.
type DragResult struct {
	// Position is the corrected element position (top-left anchor for boxes,
	// center for circles).
	Position   geom.Point  `json:"position"`
	Correction geom.Point  `json:"correction"`
	SnappedX   bool        `json:"snappedX"`
	SnappedY   bool        `json:"snappedY"`
	GridX      bool        `json:"gridX"`
	GridY      bool        `json:"gridY"`
	Guides     []Guide     `json:"guides"`
	SizeGuides []SizeGuide `json:"sizeGuides"`
}

type pair struct {
	moving, target Anchor
}

// The five comparisons made on each axis, in priority order.
var pairs = [5]pair{
	{AnchorStart, AnchorStart},
	{AnchorStart, AnchorEnd},
	{AnchorCenter, AnchorCenter},
	{AnchorEnd, AnchorStart},
	{AnchorEnd, AnchorEnd},
}

func xAt(r geom.Rect, a Anchor) float64 {
	switch a {
	case AnchorStart:
		return r.Left()
	case AnchorCenter:
		return r.CenterX()
	default:
		return r.Right()
	}
}

func yAt(r geom.Rect, a Anchor) float64 {
	switch a {
	case AnchorStart:
		return r.Top()
	case AnchorCenter:
		return r.CenterY()
	default:
		return r.Bottom()
	}
}

// Drag proposes a snapped drop position for moving displaced by (dx, dy).
// The first alignment found on each axis wins. Axes without an alignment
// fall back to the grid when grid snapping is enabled.
func Drag(moving document.Element, siblings []document.Element, dx, dy float64, opt Options) DragResult {
	drop := geom.Point{X: moving.X + dx, Y: moving.Y + dy}
	box := moving.BoundsAt(drop.X, drop.Y)
	th := opt.threshold()
	margin := opt.margin()

	res := DragResult{Position: drop}
	for _, sib := range targets(moving, siblings) {
		sb := sib.Bounds()

		for _, p := range pairs {
			mx, sx := xAt(box, p.moving), xAt(sb, p.target)
			if math.Abs(mx-sx) < th {
				res.Guides = append(res.Guides, Guide{
					Orientation: Vertical,
					Position:    sx,
					Start:       math.Min(box.Top(), sb.Top()) - margin,
					End:         math.Max(box.Bottom(), sb.Bottom()) + margin,
					Moving:      p.moving,
					Target:      p.target,
					TargetID:    sib.ID,
				})
				if !res.SnappedX {
					res.Correction.X = sx - mx
					res.SnappedX = true
				}
			}

			my, sy := yAt(box, p.moving), yAt(sb, p.target)
			if math.Abs(my-sy) < th {
				res.Guides = append(res.Guides, Guide{
					Orientation: Horizontal,
					Position:    sy,
					Start:       math.Min(box.Left(), sb.Left()) - margin,
					End:         math.Max(box.Right(), sb.Right()) + margin,
					Moving:      p.moving,
					Target:      p.target,
					TargetID:    sib.ID,
				})
				if !res.SnappedY {
					res.Correction.Y = sy - my
					res.SnappedY = true
				}
			}
		}

		res.SizeGuides = append(res.SizeGuides, sizeMatches(box, sb, sib.ID, th)...)
	}

	res.Position = drop.Add(res.Correction.X, res.Correction.Y)
	if opt.SnapToGrid && opt.GridSize > 0 {
		if !res.SnappedX {
			res.Position.X = geom.RoundTo(res.Position.X, opt.GridSize)
			res.Correction.X = res.Position.X - drop.X
			res.GridX = true
		}
		if !res.SnappedY {
			res.Position.Y = geom.RoundTo(res.Position.Y, opt.GridSize)
			res.Correction.Y = res.Position.Y - drop.Y
			res.GridY = true
		}
	}
	return res
}

// ResizeResult is the outcome of a resize snap query. Position is anchored
// during a resize, so only sizes are compared.
type ResizeResult struct {
	SizeGuides []SizeGuide `json:"sizeGuides"`
	// MatchedWidth and MatchedHeight hold the first sibling size within
	// threshold, for callers that want to lock onto it.
	MatchedWidth  *float64 `json:"matchedWidth,omitempty"`
	MatchedHeight *float64 `json:"matchedHeight,omitempty"`
}

// Resize compares the bounds of moving, with its proposed transform already
// applied, against every sibling's width and height.
func Resize(moving document.Element, siblings []document.Element, opt Options) ResizeResult {
	box := moving.Bounds()
	th := opt.threshold()

	var res ResizeResult
	for _, sib := range targets(moving, siblings) {
		for _, g := range sizeMatches(box, sib.Bounds(), sib.ID, th) {
			res.SizeGuides = append(res.SizeGuides, g)
			v := g.Value
			switch {
			case g.Dimension == Width && res.MatchedWidth == nil:
				res.MatchedWidth = &v
			case g.Dimension == Height && res.MatchedHeight == nil:
				res.MatchedHeight = &v
			}
		}
	}
	return res
}

func sizeMatches(box, sb geom.Rect, id string, th float64) []SizeGuide {
	var out []SizeGuide
	label := geom.Point{
		X: (box.CenterX() + sb.CenterX()) / 2,
		Y: (box.CenterY() + sb.CenterY()) / 2,
	}
	if math.Abs(box.Width-sb.Width) < th {
		out = append(out, SizeGuide{Dimension: Width, Value: sb.Width, Label: label, TargetID: id})
	}
	if math.Abs(box.Height-sb.Height) < th {
		out = append(out, SizeGuide{Dimension: Height, Value: sb.Height, Label: label, TargetID: id})
	}
	return out
}

func targets(moving document.Element, siblings []document.Element) []document.Element {
	out := make([]document.Element, 0, len(siblings))
	for _, s := range siblings {
		if s.ID == moving.ID || !s.Visible || s.Data == nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
