package document

import (
	"fmt"
	"slices"
)

// Kind identifies the shape of an element. It is fixed at creation.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindText      Kind = "text"
	KindLine      Kind = "line"
	KindImage     Kind = "image"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRectangle, KindCircle, KindText, KindLine, KindImage:
		return true
	}
	return false
}

// Payload is the kind-specific part of an element. Exactly one payload type
// exists per Kind; the interface is sealed to this package.
type Payload interface {
	Kind() Kind
	clonePayload() Payload
}

// RectData styles a rectangle.
type RectData struct {
	Fill         string  `json:"fill"`
	Stroke       string  `json:"stroke"`
	StrokeWidth  float64 `json:"strokeWidth"`
	CornerRadius float64 `json:"cornerRadius"`
}

// CircleData describes a circle. The element position is its center.
type CircleData struct {
	Radius      float64 `json:"radius"`
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// TextData holds the content and typography of a text element.
type TextData struct {
	Text           string  `json:"text"`
	FontFamily     string  `json:"fontFamily"`
	FontSize       float64 `json:"fontSize"`
	FontWeight     string  `json:"fontWeight"`
	FontStyle      string  `json:"fontStyle"`
	TextDecoration string  `json:"textDecoration"`
	Align          string  `json:"align"`
	LineHeight     float64 `json:"lineHeight"`
	Fill           string  `json:"fill"`
	Stroke         string  `json:"stroke"`
	StrokeWidth    float64 `json:"strokeWidth"`
	Background     string  `json:"background"`
}

// LineData is a straight line or a freehand path. Points are flat
// [x0, y0, x1, y1, ...] pairs relative to the element position.
type LineData struct {
	Points      []float64 `json:"points"`
	Stroke      string    `json:"stroke"`
	StrokeWidth float64   `json:"strokeWidth"`
	Tension     float64   `json:"tension"`
	Freehand    bool      `json:"freehand"`
	Closed      bool      `json:"closed"`
}

// ImageData references a bitmap. Src is a URL or an embedded data URL.
type ImageData struct {
	Src           string  `json:"src"`
	NaturalWidth  float64 `json:"naturalWidth"`
	NaturalHeight float64 `json:"naturalHeight"`
}

func (RectData) Kind() Kind   { return KindRectangle }
func (CircleData) Kind() Kind { return KindCircle }
func (TextData) Kind() Kind   { return KindText }
func (LineData) Kind() Kind   { return KindLine }
func (ImageData) Kind() Kind  { return KindImage }

func (d RectData) clonePayload() Payload   { return d }
func (d CircleData) clonePayload() Payload { return d }
func (d TextData) clonePayload() Payload   { return d }
func (d ImageData) clonePayload() Payload  { return d }

func (d LineData) clonePayload() Payload {
	d.Points = slices.Clone(d.Points)
	return d
}

// Element is a single drawable scene object.
type Element struct {
	ID       string
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Rotation float64
	ScaleX   float64
	ScaleY   float64
	Opacity  float64
	Visible  bool
	Locked   bool
	ZIndex   int
	Data     Payload
}

// Kind returns the element kind, derived from its payload.
func (e Element) Kind() Kind {
	if e.Data == nil {
		return ""
	}
	return e.Data.Kind()
}

// Clone returns a deep copy of the element.
func (e Element) Clone() Element {
	if e.Data != nil {
		e.Data = e.Data.clonePayload()
	}
	return e
}

// UsesSize reports whether Width and Height are meaningful for the kind.
func (e Element) UsesSize() bool {
	switch e.Kind() {
	case KindRectangle, KindText, KindImage:
		return true
	}
	return false
}

// CloneElements deep-copies a slice of elements.
func CloneElements(elements []Element) []Element {
	if elements == nil {
		return nil
	}
	out := make([]Element, len(elements))
	for i, el := range elements {
		out[i] = el.Clone()
	}
	return out
}

// MustValidate panics when the element carries no payload. A missing payload
// is a caller bug, not a runtime condition.
func (e Element) MustValidate() {
	if e.Data == nil {
		panic(fmt.Sprintf("document: element %q has no payload", e.ID))
	}
}

func newElement(x, y float64, data Payload) Element {
	return Element{
		X:       x,
		Y:       y,
		ScaleX:  1,
		ScaleY:  1,
		Opacity: 1,
		Visible: true,
		Data:    data,
	}
}

// NewRect returns a rectangle element with default transform and visibility.
func NewRect(x, y, width, height float64, data RectData) Element {
	el := newElement(x, y, data)
	el.Width, el.Height = width, height
	return el
}

// NewCircle returns a circle centered at (cx, cy).
func NewCircle(cx, cy float64, data CircleData) Element {
	return newElement(cx, cy, data)
}

// NewText returns a text element. A zero height is derived from the font.
func NewText(x, y, width, height float64, data TextData) Element {
	el := newElement(x, y, data)
	el.Width, el.Height = width, height
	return el
}

// NewLine returns a line or freehand path positioned at (x, y).
func NewLine(x, y float64, data LineData) Element {
	return newElement(x, y, data)
}

// NewImage returns an image element sized to width x height.
func NewImage(x, y, width, height float64, data ImageData) Element {
	el := newElement(x, y, data)
	el.Width, el.Height = width, height
	return el
}
