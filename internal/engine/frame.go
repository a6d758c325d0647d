package engine

import (
	"encoding/json"
	"slices"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/geom"
	"github.com/inamate/freecanvas/internal/snap"
)

// DrawItem is one element ready for the renderer, in painter's order.
type DrawItem struct {
	ID        string           `json:"id"`
	Kind      document.Kind    `json:"kind"`
	Transform []float64        `json:"transform"` // [a, b, c, d, e, f] local-to-document matrix
	Bounds    geom.Rect        `json:"bounds"`
	Selected  bool             `json:"selected,omitempty"`
	Element   document.Element `json:"element"`
}

// Frame is everything the renderer needs to draw one frame. The renderer
// reads it and never writes back; changes flow through the editor API.
type Frame struct {
	Items           []DrawItem       `json:"items"`
	View            document.View    `json:"view"`
	ViewTransform   []float64        `json:"viewTransform"` // document-to-screen matrix
	Selection       []string         `json:"selection"`
	SelectionBounds *geom.Rect       `json:"selectionBounds,omitempty"`
	Guides          []snap.Guide     `json:"guides,omitempty"`
	SizeGuides      []snap.SizeGuide `json:"sizeGuides,omitempty"`
	Draft           *DrawItem        `json:"draft,omitempty"`
	Marquee         *geom.Rect       `json:"marquee,omitempty"`
	CanUndo         bool             `json:"canUndo"`
	CanRedo         bool             `json:"canRedo"`
}

// Compile builds a frame from the scene state. Hidden elements are skipped
// and the rest are sorted back to front by zIndex.
func Compile(elements []document.Element, view document.View, selection []string) Frame {
	ordered := document.CloneElements(elements)
	document.SortPaintOrder(ordered)

	items := make([]DrawItem, 0, len(ordered))
	for _, el := range ordered {
		if !el.Visible {
			continue
		}
		item := NewDrawItem(el)
		item.Selected = slices.Contains(selection, el.ID)
		items = append(items, item)
	}

	sel := slices.Clone(selection)
	if sel == nil {
		sel = []string{}
	}

	f := Frame{
		Items:         items,
		View:          view,
		ViewTransform: view.Matrix().ToSlice(),
		Selection:     sel,
	}
	if b, ok := SelectionBounds(elements, selection); ok {
		f.SelectionBounds = &b
	}
	return f
}

// NewDrawItem wraps a single element.
func NewDrawItem(el document.Element) DrawItem {
	return DrawItem{
		ID:        el.ID,
		Kind:      el.Kind(),
		Transform: el.Transform().ToSlice(),
		Bounds:    el.Bounds(),
		Element:   el,
	}
}

// SelectionBounds returns the union of the bounds of the given ids.
func SelectionBounds(elements []document.Element, ids []string) (geom.Rect, bool) {
	var result geom.Rect
	found := false
	for _, el := range elements {
		if !slices.Contains(ids, el.ID) {
			continue
		}
		if !found {
			result = el.Bounds()
			found = true
			continue
		}
		result = result.Union(el.Bounds())
	}
	return result, found
}

// HitTest returns the id of the topmost visible element under p, or "".
func HitTest(elements []document.Element, p geom.Point, tolerance float64) string {
	ordered := document.CloneElements(elements)
	document.SortPaintOrder(ordered)

	for i := len(ordered) - 1; i >= 0; i-- {
		el := ordered[i]
		if el.Visible && el.HitTest(p, tolerance) {
			return el.ID
		}
	}
	return ""
}

// ElementsInRect returns the visible elements whose bounds intersect r, in
// paint order.
func ElementsInRect(elements []document.Element, r geom.Rect) []string {
	ordered := document.CloneElements(elements)
	document.SortPaintOrder(ordered)

	r = r.Normalize()
	var ids []string
	for _, el := range ordered {
		if el.Visible && r.Intersects(el.Bounds()) {
			ids = append(ids, el.ID)
		}
	}
	return ids
}

// FrameToJSON serializes a frame.
func FrameToJSON(f Frame) (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "{}", err
	}
	return string(data), nil
}
