// Package history keeps a bounded, linear undo/redo log of full scene
// snapshots.
package history

import (
	"time"

	"github.com/inamate/freecanvas/internal/document"
)

// DefaultLimit is the number of checkpoints kept before the oldest is evicted.
const DefaultLimit = 50

// Entry is one checkpoint: a deep copy of the elements and view.
type Entry struct {
	Elements  []document.Element
	View      document.View
	Timestamp time.Time
}

func (e Entry) clone() Entry {
	e.Elements = document.CloneElements(e.Elements)
	return e
}

// Manager is the undo/redo log. Index -1 means no checkpoint has been taken.
// New checkpoints discard any redo branch; there is no history tree.
type Manager struct {
	entries []Entry
	index   int
	limit   int
	now     func() time.Time
}

// New creates an empty manager keeping at most limit entries. A non-positive
// limit uses DefaultLimit.
func New(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{
		index: -1,
		limit: limit,
		now:   time.Now,
	}
}

// Checkpoint truncates the redo branch and appends a snapshot of the given
// state, evicting the oldest entry when the bound is exceeded.
func (m *Manager) Checkpoint(elements []document.Element, view document.View) {
	m.entries = m.entries[:m.index+1]
	m.entries = append(m.entries, Entry{
		Elements:  document.CloneElements(elements),
		View:      view,
		Timestamp: m.now(),
	})
	m.index++

	if over := len(m.entries) - m.limit; over > 0 {
		// Copy down so the evicted snapshots are not retained by the
		// backing array.
		m.entries = append(m.entries[:0:0], m.entries[over:]...)
		m.index -= over
	}
}

// Undo steps back one entry and returns the state to restore. It reports
// false when there is nothing to undo.
func (m *Manager) Undo() (Entry, bool) {
	if m.index <= 0 {
		return Entry{}, false
	}
	m.index--
	return m.entries[m.index].clone(), true
}

// Redo steps forward one entry and returns the state to restore. It reports
// false when already at the newest entry.
func (m *Manager) Redo() (Entry, bool) {
	if m.index >= len(m.entries)-1 {
		return Entry{}, false
	}
	m.index++
	return m.entries[m.index].clone(), true
}

// Current returns a copy of the entry at the current index.
func (m *Manager) Current() (Entry, bool) {
	if m.index < 0 {
		return Entry{}, false
	}
	return m.entries[m.index].clone(), true
}

// CanUndo reports whether Undo would change state.
func (m *Manager) CanUndo() bool { return m.index > 0 }

// CanRedo reports whether Redo would change state.
func (m *Manager) CanRedo() bool { return m.index < len(m.entries)-1 }

// Len returns the number of stored entries.
func (m *Manager) Len() int { return len(m.entries) }

// Index returns the current index, -1 when empty.
func (m *Manager) Index() int { return m.index }

// Reset drops every entry.
func (m *Manager) Reset() {
	m.entries = nil
	m.index = -1
}
