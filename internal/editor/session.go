// Package editor binds a scene to its undo history and clipboard. A Session is
// the one place where committed mutations are checkpointed.
package editor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/engine"
	"github.com/inamate/freecanvas/internal/geom"
	"github.com/inamate/freecanvas/internal/history"
)

const (
	// PasteOffset is added to both axes of every pasted element.
	PasteOffset = 20.0
	// MaxImageSide bounds the initial on-canvas size of an added image.
	MaxImageSide = 800.0
)

var ErrImageDecode = errors.New("image decode failed")

// ImageInfo describes a decoded bitmap.
type ImageInfo struct {
	Src    string
	Width  int
	Height int
}

// ImageDecoder resolves an image source (data URL or asset path) to its
// natural size. Implementations may block on I/O.
type ImageDecoder interface {
	Decode(ctx context.Context, src string) (ImageInfo, error)
}

// Snapshot is the persistable state handed to commit hooks.
type Snapshot struct {
	Elements []document.Element
	View     document.View
}

// File returns the snapshot as a scene document stamped with at.
func (s Snapshot) File(at time.Time) document.File {
	return document.File{
		Version:     document.SchemaVersion,
		Elements:    document.CloneElements(s.Elements),
		CanvasState: s.View,
		Timestamp:   at,
	}
}

// effect is what a mutation did: nothing, a change that is persisted but not
// recorded in history, or a checkpointed change.
type effect int

const (
	unchanged effect = iota
	touched
	recorded
)

// Session is one open document: scene, history and clipboard.
type Session struct {
	mu        sync.Mutex
	scene     *document.Scene
	history   *history.Manager
	clipboard []document.Element
	decoder   ImageDecoder
	onCommit  func(Snapshot)
	now       func() time.Time
}

// Option configures a Session.
type Option func(*settings)

type settings struct {
	historyLimit int
	newID        func() string
	decoder      ImageDecoder
	onCommit     func(Snapshot)
	now          func() time.Time
}

func WithHistoryLimit(n int) Option {
	return func(s *settings) { s.historyLimit = n }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *settings) { s.newID = fn }
}

func WithDecoder(d ImageDecoder) Option {
	return func(s *settings) { s.decoder = d }
}

// WithOnCommit registers a hook called after every change that should be
// persisted. It runs outside the session lock.
func WithOnCommit(fn func(Snapshot)) Option {
	return func(s *settings) { s.onCommit = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// New creates a session over an empty scene. The initial state is
// checkpointed so that undoing every edit returns to it.
func New(opts ...Option) *Session {
	cfg := settings{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	var sceneOpts []document.Option
	if cfg.newID != nil {
		sceneOpts = append(sceneOpts, document.WithIDGenerator(cfg.newID))
	}

	s := &Session{
		scene:    document.NewScene(sceneOpts...),
		history:  history.New(cfg.historyLimit),
		decoder:  cfg.decoder,
		onCommit: cfg.onCommit,
		now:      cfg.now,
	}
	s.history.Checkpoint(s.scene.Elements(), s.scene.View())
	return s
}

// SetOnCommit replaces the commit hook.
func (s *Session) SetOnCommit(fn func(Snapshot)) {
	s.mu.Lock()
	s.onCommit = fn
	s.mu.Unlock()
}

// run executes fn under the lock and applies its effect: a checkpoint for
// recorded changes, then the commit hook for anything persisted.
func (s *Session) run(fn func() effect) effect {
	s.mu.Lock()
	eff := fn()
	if eff == recorded {
		s.history.Checkpoint(s.scene.Elements(), s.scene.View())
	}
	hook := s.onCommit
	var snap Snapshot
	if eff != unchanged && hook != nil {
		snap = s.snapshot()
	}
	s.mu.Unlock()

	if eff != unchanged && hook != nil {
		hook(snap)
	}
	return eff
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{Elements: s.scene.Elements(), View: s.scene.View()}
}

// Snapshot returns a copy of the current elements and view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) Elements() []document.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Elements()
}

func (s *Session) Element(id string) (document.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Element(id)
}

func (s *Session) View() document.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.View()
}

func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Selected()
}

func (s *Session) SelectedElements() []document.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.SelectedElements()
}

// AddElement inserts el above everything else, selects it and checkpoints.
func (s *Session) AddElement(el document.Element) document.Element {
	var added document.Element
	s.run(func() effect {
		added = s.scene.Add(el)
		return recorded
	})
	return added
}

// UpdateElement merges p without checkpointing. Use it for live updates
// during a drag or resize, then Checkpoint or CommitElement at the end.
func (s *Session) UpdateElement(id string, p document.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Update(id, p)
}

// CommitElement merges p, folds text scale into size and checkpoints.
func (s *Session) CommitElement(id string, p document.Patch) bool {
	return s.run(func() effect {
		if !s.scene.Update(id, p) {
			return unchanged
		}
		s.scene.Normalize(id)
		return recorded
	}) == recorded
}

// Checkpoint records the current state, closing a series of live updates.
func (s *Session) Checkpoint() {
	s.run(func() effect { return recorded })
}

func (s *Session) DeleteElement(id string) bool {
	return s.DeleteElements(id) > 0
}

// DeleteElements removes the given elements and checkpoints if any existed.
func (s *Session) DeleteElements(ids ...string) int {
	var n int
	s.run(func() effect {
		n = s.scene.Delete(ids...)
		if n == 0 {
			return unchanged
		}
		return recorded
	})
	return n
}

// DeleteSelected removes every selected element.
func (s *Session) DeleteSelected() int {
	var n int
	s.run(func() effect {
		n = s.scene.Delete(s.scene.Selected()...)
		if n == 0 {
			return unchanged
		}
		return recorded
	})
	return n
}

func (s *Session) reorder(fn func(string) bool, id string) bool {
	return s.run(func() effect {
		if fn(id) {
			return recorded
		}
		return unchanged
	}) == recorded
}

func (s *Session) BringToFront(id string) bool { return s.reorder(s.scene.BringToFront, id) }
func (s *Session) SendToBack(id string) bool   { return s.reorder(s.scene.SendToBack, id) }
func (s *Session) BringForward(id string) bool { return s.reorder(s.scene.BringForward, id) }
func (s *Session) SendBackward(id string) bool { return s.reorder(s.scene.SendBackward, id) }

// Selection changes are not checkpointed.

func (s *Session) Select(id string, additive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene.Select(id, additive)
}

func (s *Session) SelectMany(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene.SelectMany(ids)
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene.ClearSelection()
}

func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene.SelectAll()
}

// MoveSelection nudges every selected, unlocked element and checkpoints.
func (s *Session) MoveSelection(dx, dy float64) bool {
	if dx == 0 && dy == 0 {
		return false
	}
	return s.run(func() effect {
		moved := false
		for _, el := range s.scene.SelectedElements() {
			if el.Locked {
				continue
			}
			s.scene.Update(el.ID, document.MoveTo(el.X+dx, el.Y+dy))
			moved = true
		}
		if !moved {
			return unchanged
		}
		return recorded
	}) == recorded
}

// Undo restores the previous checkpoint.
func (s *Session) Undo() bool {
	return s.run(func() effect {
		entry, ok := s.history.Undo()
		if !ok {
			return unchanged
		}
		s.scene.Replace(entry.Elements, entry.View)
		return touched
	}) != unchanged
}

// Redo restores the next checkpoint.
func (s *Session) Redo() bool {
	return s.run(func() effect {
		entry, ok := s.history.Redo()
		if !ok {
			return unchanged
		}
		s.scene.Replace(entry.Elements, entry.View)
		return touched
	}) != unchanged
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// SetView merges a partial view update. View changes are persisted but not
// recorded in history.
func (s *Session) SetView(p document.ViewPatch) {
	s.run(func() effect {
		s.scene.SetView(p)
		return touched
	})
}

// ZoomAt scales the view by factor around a screen point.
func (s *Session) ZoomAt(screen geom.Point, factor float64) {
	s.run(func() effect {
		v := s.scene.View().ZoomAt(screen, factor)
		s.scene.SetView(document.ViewPatch{Scale: &v.Scale, Position: &v.Position})
		return touched
	})
}

// Pan moves the view by a screen-space delta.
func (s *Session) Pan(dx, dy float64) {
	s.run(func() effect {
		pos := s.scene.View().Position.Add(dx, dy)
		s.scene.SetView(document.ViewPatch{Position: &pos})
		return touched
	})
}

// Load replaces the document and starts a fresh history from it. The commit
// hook is not fired: the state came from storage.
func (s *Session) Load(f document.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene.Replace(f.Elements, f.CanvasState)
	s.scene.ClearSelection()
	s.clipboard = nil
	s.history.Reset()
	s.history.Checkpoint(s.scene.Elements(), s.scene.View())
}

// File returns the document in its serializable form.
func (s *Session) File() document.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot().File(s.now())
}

// Frame compiles the current state for the renderer.
func (s *Session) Frame() engine.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := engine.Compile(s.scene.Elements(), s.scene.View(), s.scene.Selected())
	f.CanUndo = s.history.CanUndo()
	f.CanRedo = s.history.CanRedo()
	return f
}

// AddImage decodes src and, on success, adds an image element with its
// top-left corner at the given point. Large images are scaled down to fit
// MaxImageSide. On failure the document is left untouched.
func (s *Session) AddImage(ctx context.Context, src string, at geom.Point) (document.Element, error) {
	if s.decoder == nil {
		return document.Element{}, fmt.Errorf("%w: no decoder configured", ErrImageDecode)
	}
	info, err := s.decoder.Decode(ctx, src)
	if err != nil {
		return document.Element{}, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return document.Element{}, fmt.Errorf("%w: empty image", ErrImageDecode)
	}
	if err := ctx.Err(); err != nil {
		return document.Element{}, err
	}
	if info.Src == "" {
		info.Src = src
	}

	w, h := float64(info.Width), float64(info.Height)
	if f := MaxImageSide / math.Max(w, h); f < 1 {
		w, h = w*f, h*f
	}
	el := document.NewImage(at.X, at.Y, w, h, document.ImageData{
		Src:           info.Src,
		NaturalWidth:  float64(info.Width),
		NaturalHeight: float64(info.Height),
	})
	return s.AddElement(el), nil
}
