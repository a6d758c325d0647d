package interact

import (
	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/snap"
)

// TransformEvent carries the attributes a transform handle produced for one
// element, already in the element's own coordinate space. Nil fields are
// unchanged.
type TransformEvent struct {
	ID       string   `json:"id"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	ScaleX   *float64 `json:"scaleX,omitempty"`
	ScaleY   *float64 `json:"scaleY,omitempty"`
}

func (e TransformEvent) patch() document.Patch {
	return document.Patch{
		X:        e.X,
		Y:        e.Y,
		Width:    e.Width,
		Height:   e.Height,
		Rotation: e.Rotation,
		ScaleX:   e.ScaleX,
		ScaleY:   e.ScaleY,
	}
}

// TransformMove applies a live transform and collects size guides against
// the other elements. Locked elements are left alone.
func (c *Controller) TransformMove(ev TransformEvent) Result {
	el, ok := c.session.Element(ev.ID)
	if !ok || el.Locked {
		return Result{}
	}
	c.session.UpdateElement(ev.ID, ev.patch())
	el, _ = c.session.Element(ev.ID)

	res := snap.Resize(el, c.session.Elements(), c.snapOptions())
	c.sizeGuides = res.SizeGuides
	c.guides = nil
	return Result{Changed: true}
}

// TransformEnd commits the transform, folding text scale into its size.
func (c *Controller) TransformEnd(ev TransformEvent) Result {
	el, ok := c.session.Element(ev.ID)
	c.sizeGuides = nil
	if !ok || el.Locked {
		return Result{Changed: ok}
	}
	c.session.CommitElement(ev.ID, ev.patch())
	return Result{Changed: true}
}
