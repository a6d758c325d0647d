package document

import (
	"cmp"
	"slices"

	"github.com/inamate/freecanvas/internal/typeid"
)

// Patch is a partial element update. Nil fields are left untouched. Data
// replaces the payload only when it has the element's kind.
type Patch struct {
	X        *float64
	Y        *float64
	Width    *float64
	Height   *float64
	Rotation *float64
	ScaleX   *float64
	ScaleY   *float64
	Opacity  *float64
	Visible  *bool
	Locked   *bool
	Data     Payload
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// MoveTo returns a patch setting the position.
func MoveTo(x, y float64) Patch {
	return Patch{X: &x, Y: &y}
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
		p.Rotation == nil && p.ScaleX == nil && p.ScaleY == nil &&
		p.Opacity == nil && p.Visible == nil && p.Locked == nil && p.Data == nil
}

func (p Patch) apply(e Element) Element {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&e.X, p.X)
	set(&e.Y, p.Y)
	set(&e.Width, p.Width)
	set(&e.Height, p.Height)
	set(&e.Rotation, p.Rotation)
	set(&e.ScaleX, p.ScaleX)
	set(&e.ScaleY, p.ScaleY)
	set(&e.Opacity, p.Opacity)
	if p.Opacity != nil {
		e.Opacity = min(1, max(0, e.Opacity))
	}
	if p.Visible != nil {
		e.Visible = *p.Visible
	}
	if p.Locked != nil {
		e.Locked = *p.Locked
	}
	if p.Data != nil && p.Data.Kind() == e.Kind() {
		e.Data = p.Data.clonePayload()
	}
	return e
}

// Scene is the live, editable state of one canvas: its elements in insertion
// order, the view, and the selection. Every operation is total: unknown ids
// are ignored. A Scene does not record history; the editor session does.
type Scene struct {
	elements []Element
	view     View
	selected []string
	newID    func() string
}

// Option configures a Scene.
type Option func(*Scene)

// WithIDGenerator overrides how element ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Scene) { s.newID = fn }
}

// NewScene creates an empty scene with the default view.
func NewScene(opts ...Option) *Scene {
	s := &Scene{
		view:  DefaultView(),
		newID: typeid.NewElementID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of elements.
func (s *Scene) Len() int {
	return len(s.elements)
}

// Elements returns a deep copy of the elements in insertion order.
func (s *Scene) Elements() []Element {
	out := CloneElements(s.elements)
	if out == nil {
		out = []Element{}
	}
	return out
}

// Element returns a copy of the element with the given id.
func (s *Scene) Element(id string) (Element, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Element{}, false
	}
	return s.elements[i].Clone(), true
}

// PaintOrder returns the elements sorted back to front. Ties in zIndex are
// broken by insertion order.
func (s *Scene) PaintOrder() []Element {
	out := s.Elements()
	SortPaintOrder(out)
	return out
}

// SortPaintOrder sorts elements back to front in place, stably.
func SortPaintOrder(elements []Element) {
	slices.SortStableFunc(elements, func(a, b Element) int {
		return cmp.Compare(a.ZIndex, b.ZIndex)
	})
}

// View returns the current view.
func (s *Scene) View() View {
	return s.view
}

// Add inserts el with a fresh id and a zIndex above every existing element,
// selects it and returns the stored copy. The caller's ID and ZIndex are
// ignored.
func (s *Scene) Add(el Element) Element {
	added := s.AddMany([]Element{el})
	return added[0]
}

// AddMany inserts a batch of elements in order, each above the previous one,
// and selects exactly the new elements.
func (s *Scene) AddMany(els []Element) []Element {
	top, ok := s.maxZ()
	if !ok {
		top = 0
	}

	added := make([]Element, 0, len(els))
	ids := make([]string, 0, len(els))
	for _, el := range els {
		el.MustValidate()
		el = el.Clone()
		el.ID = s.freshID()
		top++
		el.ZIndex = top
		if el.ScaleX == 0 {
			el.ScaleX = 1
		}
		if el.ScaleY == 0 {
			el.ScaleY = 1
		}
		s.elements = append(s.elements, el)
		added = append(added, el.Clone())
		ids = append(ids, el.ID)
	}
	s.selected = ids
	return added
}

// Update merges p into the element with the given id. It reports whether the
// element exists.
func (s *Scene) Update(id string, p Patch) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.elements[i] = p.apply(s.elements[i])
	return true
}

// Normalize folds committed text scale into size for the given element.
func (s *Scene) Normalize(id string) {
	if i := s.indexOf(id); i >= 0 {
		s.elements[i] = s.elements[i].NormalizeScale()
	}
}

// Delete removes the given elements and drops them from the selection. It
// returns how many elements were removed.
func (s *Scene) Delete(ids ...string) int {
	if len(ids) == 0 || len(s.elements) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	before := len(s.elements)
	s.elements = slices.DeleteFunc(s.elements, func(e Element) bool {
		_, ok := drop[e.ID]
		return ok
	})
	s.selected = slices.DeleteFunc(s.selected, func(id string) bool {
		_, ok := drop[id]
		return ok
	})
	return before - len(s.elements)
}

// BringToFront raises the element above every other element.
func (s *Scene) BringToFront(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	top, ok := s.maxZExcept(id)
	if !ok || s.elements[i].ZIndex > top {
		return false
	}
	s.elements[i].ZIndex = top + 1
	return true
}

// SendToBack lowers the element below every other element.
func (s *Scene) SendToBack(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	bottom, ok := s.minZExcept(id)
	if !ok || s.elements[i].ZIndex < bottom {
		return false
	}
	s.elements[i].ZIndex = bottom - 1
	return true
}

// BringForward swaps the element with its neighbour directly above it.
func (s *Scene) BringForward(id string) bool {
	order := s.paintOrderIDs()
	i := slices.Index(order, id)
	if i < 0 || i == len(order)-1 {
		return false
	}
	s.swapZ(order, i, i+1)
	return true
}

// SendBackward swaps the element with its neighbour directly below it.
func (s *Scene) SendBackward(id string) bool {
	order := s.paintOrderIDs()
	i := slices.Index(order, id)
	if i <= 0 {
		return false
	}
	s.swapZ(order, i, i-1)
	return true
}

func (s *Scene) swapZ(order []string, i, j int) {
	a, b := s.indexOf(order[i]), s.indexOf(order[j])
	if s.elements[a].ZIndex == s.elements[b].ZIndex {
		// Equal values would make the swap a no-op, so spread the current
		// paint order over distinct values first.
		for k, id := range order {
			s.elements[s.indexOf(id)].ZIndex = k + 1
		}
	}
	s.elements[a].ZIndex, s.elements[b].ZIndex = s.elements[b].ZIndex, s.elements[a].ZIndex
}

// Select replaces the selection with id, or toggles id when additive.
func (s *Scene) Select(id string, additive bool) {
	if s.indexOf(id) < 0 {
		return
	}
	if !additive {
		s.selected = []string{id}
		return
	}
	if i := slices.Index(s.selected, id); i >= 0 {
		s.selected = slices.Delete(s.selected, i, i+1)
		return
	}
	s.selected = append(s.selected, id)
}

// SelectMany replaces the selection. Unknown and repeated ids are dropped.
func (s *Scene) SelectMany(ids []string) {
	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if s.indexOf(id) >= 0 && !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	s.selected = next
}

// ClearSelection empties the selection.
func (s *Scene) ClearSelection() {
	s.selected = nil
}

// SelectAll selects every element.
func (s *Scene) SelectAll() {
	ids := make([]string, len(s.elements))
	for i, el := range s.elements {
		ids[i] = el.ID
	}
	s.selected = ids
}

// Selected returns the selected ids.
func (s *Scene) Selected() []string {
	return slices.Clone(s.selected)
}

// IsSelected reports whether id is selected.
func (s *Scene) IsSelected(id string) bool {
	return slices.Contains(s.selected, id)
}

// SelectedElements returns copies of the selected elements in paint order.
func (s *Scene) SelectedElements() []Element {
	out := make([]Element, 0, len(s.selected))
	for _, el := range s.elements {
		if s.IsSelected(el.ID) {
			out = append(out, el.Clone())
		}
	}
	SortPaintOrder(out)
	return out
}

// SetView merges a partial view update; the scale is always clamped.
func (s *Scene) SetView(p ViewPatch) {
	s.view = p.Apply(s.view)
}

// Replace overwrites elements and view wholesale, e.g. when restoring a
// history entry or loading a document. The selection keeps only ids that
// still exist.
func (s *Scene) Replace(elements []Element, view View) {
	s.elements = CloneElements(elements)
	s.view = view.normalize()
	s.SelectMany(s.selected)
}

func (s *Scene) indexOf(id string) int {
	return slices.IndexFunc(s.elements, func(e Element) bool { return e.ID == id })
}

func (s *Scene) freshID() string {
	for {
		id := s.newID()
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

func (s *Scene) paintOrderIDs() []string {
	order := s.PaintOrder()
	ids := make([]string, len(order))
	for i, el := range order {
		ids[i] = el.ID
	}
	return ids
}

func (s *Scene) maxZ() (int, bool) {
	return s.maxZExcept("")
}

func (s *Scene) maxZExcept(id string) (int, bool) {
	found := false
	top := 0
	for _, el := range s.elements {
		if el.ID == id {
			continue
		}
		if !found || el.ZIndex > top {
			top = el.ZIndex
			found = true
		}
	}
	return top, found
}

func (s *Scene) minZExcept(id string) (int, bool) {
	found := false
	bottom := 0
	for _, el := range s.elements {
		if el.ID == id {
			continue
		}
		if !found || el.ZIndex < bottom {
			bottom = el.ZIndex
			found = true
		}
	}
	return bottom, found
}
