package interact

import (
	"slices"
	"time"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/editor"
	"github.com/inamate/freecanvas/internal/engine"
	"github.com/inamate/freecanvas/internal/geom"
	"github.com/inamate/freecanvas/internal/snap"
)

const (
	// DefaultFrameInterval is the minimum spacing between processed pointer
	// moves.
	DefaultFrameInterval = 16 * time.Millisecond
	// HitTolerance is the pick distance in screen pixels.
	HitTolerance = 4.0
)

// Modifiers are the keys held during an event.
type Modifiers struct {
	Shift bool `json:"shift,omitempty"`
	Ctrl  bool `json:"ctrl,omitempty"`
	Meta  bool `json:"meta,omitempty"`
	Alt   bool `json:"alt,omitempty"`
}

// PointerEvent is a pointer sample. X and Y are document coordinates;
// ScreenX and ScreenY are only used for panning. TargetID is the element the
// renderer picked, if any; otherwise the controller hit tests. Time is the
// event timestamp in milliseconds and drives throttling.
type PointerEvent struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	ScreenX  float64 `json:"screenX"`
	ScreenY  float64 `json:"screenY"`
	TargetID string  `json:"targetId,omitempty"`
	Time     float64 `json:"time"`
	Modifiers
}

func (e PointerEvent) point() geom.Point {
	return geom.Point{X: e.X, Y: e.Y}
}

// Result reports what an event did.
type Result struct {
	// Changed is set when the frame needs redrawing.
	Changed bool `json:"changed"`
	// Created is the id of an element added by the event.
	Created string `json:"created,omitempty"`
}

type gesture int

const (
	idle gesture = iota
	dragging
	selecting
	drawing
	panning
)

// Controller holds the transient interaction state for one session. It is
// not safe for concurrent use.
type Controller struct {
	session   *editor.Session
	tool      Tool
	style     Style
	threshold float64
	interval  time.Duration

	gesture  gesture
	start    geom.Point
	screen   geom.Point
	lastMove float64
	moved    bool

	// drag state
	primary string
	origins map[string]document.Element

	draft         *document.Element
	marquee       *geom.Rect
	baseSelection []string // kept by a shift marquee
	guides        []snap.Guide
	sizeGuides    []snap.SizeGuide
}

// Option configures a Controller.
type Option func(*Controller)

// WithSnapThreshold sets the snap distance in screen pixels.
func WithSnapThreshold(px float64) Option {
	return func(c *Controller) { c.threshold = px }
}

// WithFrameInterval sets the pointer move throttle. Zero disables it.
func WithFrameInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

func WithStyle(s Style) Option {
	return func(c *Controller) { c.style = s }
}

// New creates a controller over session with the select tool active.
func New(session *editor.Session, opts ...Option) *Controller {
	c := &Controller{
		session:   session,
		tool:      ToolSelect,
		style:     DefaultStyle(),
		threshold: snap.DefaultThreshold,
		interval:  DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Session() *editor.Session { return c.session }
func (c *Controller) Tool() Tool               { return c.tool }
func (c *Controller) Style() Style             { return c.style }

// SetTool switches tools, cancelling any gesture in progress.
func (c *Controller) SetTool(t Tool) bool {
	if !t.Valid() {
		return false
	}
	c.Cancel()
	c.tool = t
	return true
}

func (c *Controller) SetStyle(s Style) {
	c.style = s
}

// Busy reports whether a gesture is in progress.
func (c *Controller) Busy() bool {
	return c.gesture != idle
}

// Frame returns the session frame decorated with guides, draft and marquee.
func (c *Controller) Frame() engine.Frame {
	f := c.session.Frame()
	f.Guides = slices.Clone(c.guides)
	f.SizeGuides = slices.Clone(c.sizeGuides)
	if c.draft != nil {
		item := engine.NewDrawItem(c.draft.Clone())
		f.Draft = &item
	}
	if c.marquee != nil {
		m := c.marquee.Normalize()
		f.Marquee = &m
	}
	return f
}

func (c *Controller) snapOptions() snap.Options {
	opt := snap.OptionsFor(c.session.View())
	opt.Threshold = c.threshold
	return opt
}

// PointerDown starts a gesture according to the active tool.
func (c *Controller) PointerDown(ev PointerEvent) Result {
	c.Cancel()
	p := ev.point()
	c.start = p
	c.screen = geom.Point{X: ev.ScreenX, Y: ev.ScreenY}
	c.lastMove = ev.Time
	c.moved = false

	switch {
	case c.tool == ToolPan:
		c.gesture = panning
		return Result{}
	case c.tool == ToolText:
		el := c.session.AddElement(c.style.newText(p))
		c.tool = ToolSelect
		return Result{Changed: true, Created: el.ID}
	case c.tool.draws():
		draft, _ := c.style.newDraft(c.tool, p)
		c.draft = &draft
		c.gesture = drawing
		return Result{Changed: true}
	}

	target := ev.TargetID
	if target == "" {
		scale := c.session.View().Scale
		target = engine.HitTest(c.session.Elements(), p, HitTolerance/scale)
	}
	if target == "" {
		if ev.Shift {
			c.baseSelection = c.session.Selected()
		} else {
			c.session.ClearSelection()
		}
		c.marquee = &geom.Rect{X: p.X, Y: p.Y}
		c.gesture = selecting
		return Result{Changed: true}
	}

	switch {
	case ev.Shift:
		c.session.Select(target, true)
	case !slices.Contains(c.session.Selected(), target):
		c.session.Select(target, false)
	}
	c.beginDrag(target)
	return Result{Changed: true}
}

func (c *Controller) beginDrag(target string) {
	selected := c.session.Selected()
	if !slices.Contains(selected, target) {
		return
	}
	origins := make(map[string]document.Element, len(selected))
	for _, el := range c.session.SelectedElements() {
		if !el.Locked {
			origins[el.ID] = el
		}
	}
	if _, ok := origins[target]; !ok {
		return
	}
	c.primary = target
	c.origins = origins
	c.gesture = dragging
}

// PointerMove advances the current gesture. Moves closer together than the
// frame interval are dropped.
func (c *Controller) PointerMove(ev PointerEvent) Result {
	if c.gesture == idle {
		return Result{}
	}
	if c.interval > 0 && ev.Time > 0 && ev.Time-c.lastMove < float64(c.interval.Milliseconds()) {
		return Result{}
	}
	c.lastMove = ev.Time
	return c.move(ev)
}

func (c *Controller) move(ev PointerEvent) Result {
	p := ev.point()
	switch c.gesture {
	case dragging:
		c.drag(p.X-c.start.X, p.Y-c.start.Y)
	case selecting:
		r := geom.Rect{X: c.start.X, Y: c.start.Y, Width: p.X - c.start.X, Height: p.Y - c.start.Y}
		c.marquee = &r
		hits := engine.ElementsInRect(c.session.Elements(), r)
		c.session.SelectMany(append(slices.Clone(c.baseSelection), hits...))
	case drawing:
		draft := extendDraft(*c.draft, c.start, p, ev.Shift)
		c.draft = &draft
	case panning:
		sp := geom.Point{X: ev.ScreenX, Y: ev.ScreenY}
		c.session.Pan(sp.X-c.screen.X, sp.Y-c.screen.Y)
		c.screen = sp
	default:
		return Result{}
	}
	c.moved = true
	return Result{Changed: true}
}

// drag moves every dragged element by the snapped delta. The primary element
// is the one tested against its siblings; the rest follow it.
func (c *Controller) drag(dx, dy float64) {
	var siblings []document.Element
	for _, el := range c.session.Elements() {
		if _, moving := c.origins[el.ID]; !moving {
			siblings = append(siblings, el)
		}
	}

	res := snap.Drag(c.origins[c.primary], siblings, dx, dy, c.snapOptions())
	c.guides = res.Guides
	c.sizeGuides = res.SizeGuides

	dx += res.Correction.X
	dy += res.Correction.Y
	for id, o := range c.origins {
		c.session.UpdateElement(id, document.MoveTo(o.X+dx, o.Y+dy))
	}
}

// PointerUp finishes the gesture. The final position is always applied,
// whatever the throttle dropped.
func (c *Controller) PointerUp(ev PointerEvent) Result {
	if c.gesture == idle {
		return Result{}
	}
	if c.gesture != panning {
		c.move(ev)
	}

	var res Result
	switch c.gesture {
	case dragging:
		if c.moved && c.dragChanged() {
			c.session.Checkpoint()
		}
		res.Changed = true
	case selecting:
		res.Changed = true
	case drawing:
		if !degenerate(*c.draft) {
			el := c.session.AddElement(*c.draft)
			res.Created = el.ID
		}
		res.Changed = true
	case panning:
		res.Changed = c.moved
	}
	c.reset()
	return res
}

func (c *Controller) dragChanged() bool {
	for id, o := range c.origins {
		if el, ok := c.session.Element(id); ok && (el.X != o.X || el.Y != o.Y) {
			return true
		}
	}
	return false
}

// Cancel aborts the gesture in progress. A drag is rolled back to where it
// started and a draft is discarded without touching the document or its
// history. It reports whether anything was cancelled.
func (c *Controller) Cancel() bool {
	switch c.gesture {
	case idle:
		return false
	case dragging:
		for id, o := range c.origins {
			c.session.UpdateElement(id, document.MoveTo(o.X, o.Y))
		}
	}
	c.reset()
	return true
}

func (c *Controller) reset() {
	c.gesture = idle
	c.primary = ""
	c.origins = nil
	c.draft = nil
	c.marquee = nil
	c.baseSelection = nil
	c.guides = nil
	c.sizeGuides = nil
	c.moved = false
}
