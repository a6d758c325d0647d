// Package workspace is the registry of canvases: named documents with exactly
// one marked current. The registry stores document state but does not own
// the live editing session; callers load an entry into a session
// explicitly after switching.
package workspace

import (
	"cmp"
	"slices"
	"time"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/typeid"
)

// Entry is one canvas in the registry.
type Entry struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Elements  []document.Element `json:"elements"`
	View      document.View      `json:"canvasState"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Thumbnail string             `json:"thumbnail,omitempty"`
}

func (e Entry) clone() Entry {
	e.Elements = document.CloneElements(e.Elements)
	return e
}

// File returns the entry as a scene document.
func (e Entry) File() document.File {
	return document.File{
		Version:     document.SchemaVersion,
		Elements:    document.CloneElements(e.Elements),
		CanvasState: e.View,
		Timestamp:   e.UpdatedAt,
	}
}

// Summary is an entry without its elements, for listings.
type Summary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ElementCount int       `json:"elementCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	Current      bool      `json:"current"`
}

// State is the persisted form of a registry.
type State struct {
	Entries   []Entry `json:"entries"`
	CurrentID string  `json:"currentId"`
}

// Registry holds the canvases in creation order. It is not safe for
// concurrent use.
type Registry struct {
	entries []Entry
	current string
	now     func() time.Time
	newID   func() string
}

// Option configures a Registry.
type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		now:   time.Now,
		newID: typeid.NewCanvasID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create adds an empty canvas with the default view, makes it current and
// returns its id.
func (r *Registry) Create(name string) string {
	now := r.now()
	id := r.newID()
	for r.indexOf(id) >= 0 {
		id = r.newID()
	}
	r.entries = append(r.entries, Entry{
		ID:        id,
		Name:      name,
		Elements:  []document.Element{},
		View:      document.DefaultView(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	r.current = id
	return id
}

// Delete removes a canvas. When it was current, the first remaining canvas
// becomes current, or none if the registry is empty.
func (r *Registry) Delete(id string) bool {
	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.entries = slices.Delete(r.entries, i, i+1)
	if r.current == id {
		r.current = ""
		if len(r.entries) > 0 {
			r.current = r.entries[0].ID
		}
	}
	return true
}

// Rename sets the name and bumps UpdatedAt.
func (r *Registry) Rename(id, name string) bool {
	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.entries[i].Name = name
	r.entries[i].UpdatedAt = r.now()
	return true
}

// SwitchTo marks id current if it exists. Loading the entry into a session is
// up to the caller.
func (r *Registry) SwitchTo(id string) bool {
	if r.indexOf(id) < 0 {
		return false
	}
	r.current = id
	return true
}

// UpdateCurrent writes elements and view into the current canvas.
func (r *Registry) UpdateCurrent(elements []document.Element, view document.View) bool {
	return r.Update(r.current, elements, view)
}

// Update writes elements and view into the given canvas.
func (r *Registry) Update(id string, elements []document.Element, view document.View) bool {
	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.entries[i].Elements = document.CloneElements(elements)
	if r.entries[i].Elements == nil {
		r.entries[i].Elements = []document.Element{}
	}
	r.entries[i].View = view
	r.entries[i].UpdatedAt = r.now()
	return true
}

// SetThumbnail stores a preview image without bumping UpdatedAt.
func (r *Registry) SetThumbnail(id, thumbnail string) bool {
	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.entries[i].Thumbnail = thumbnail
	return true
}

// Get returns a copy of the canvas. It never changes which canvas is current.
func (r *Registry) Get(id string) (Entry, bool) {
	i := r.indexOf(id)
	if i < 0 {
		return Entry{}, false
	}
	return r.entries[i].clone(), true
}

// Current returns a copy of the current canvas.
func (r *Registry) Current() (Entry, bool) {
	return r.Get(r.current)
}

// CurrentID returns the current canvas id, or "" when the registry is empty.
func (r *Registry) CurrentID() string {
	return r.current
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// List returns summaries, most recently updated first.
func (r *Registry) List() []Summary {
	out := make([]Summary, len(r.entries))
	for i, e := range r.entries {
		out[i] = Summary{
			ID:           e.ID,
			Name:         e.Name,
			ElementCount: len(e.Elements),
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.UpdatedAt,
			Thumbnail:    e.Thumbnail,
			Current:      e.ID == r.current,
		}
	}
	slices.SortStableFunc(out, func(a, b Summary) int {
		return cmp.Compare(b.UpdatedAt.UnixNano(), a.UpdatedAt.UnixNano())
	})
	return out
}

// State returns a deep copy of the registry for persistence.
func (r *Registry) State() State {
	entries := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		entries[i] = e.clone()
	}
	return State{Entries: entries, CurrentID: r.current}
}

// Restore replaces the registry with a persisted state. A current id that no
// longer exists falls back to the first entry.
func (r *Registry) Restore(s State) {
	r.entries = make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.ID == "" || r.indexOf(e.ID) >= 0 {
			continue
		}
		if e.Elements == nil {
			e.Elements = []document.Element{}
		}
		if e.View.Scale == 0 {
			e.View = document.DefaultView()
		}
		r.entries = append(r.entries, e.clone())
	}
	r.current = ""
	if r.indexOf(s.CurrentID) >= 0 {
		r.current = s.CurrentID
	} else if len(r.entries) > 0 {
		r.current = r.entries[0].ID
	}
}

func (r *Registry) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(r.entries, func(e Entry) bool { return e.ID == id })
}
