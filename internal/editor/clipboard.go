package editor

import "github.com/inamate/freecanvas/internal/document"

// Copy replaces the clipboard with value copies of the selection and returns
// how many elements were copied.
func (s *Session) Copy() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copySelection()
}

func (s *Session) copySelection() int {
	s.clipboard = s.scene.SelectedElements()
	return len(s.clipboard)
}

// Paste inserts the clipboard offset by PasteOffset on both axes, with fresh
// ids, as one checkpoint. The pasted elements become the selection. The
// clipboard itself is not shifted, so repeated pastes land on the same spot.
func (s *Session) Paste() []document.Element {
	var pasted []document.Element
	s.run(func() effect {
		pasted = s.paste()
		if len(pasted) == 0 {
			return unchanged
		}
		return recorded
	})
	return pasted
}

func (s *Session) paste() []document.Element {
	if len(s.clipboard) == 0 {
		return nil
	}
	batch := document.CloneElements(s.clipboard)
	for i := range batch {
		batch[i].X += PasteOffset
		batch[i].Y += PasteOffset
	}
	return s.scene.AddMany(batch)
}

// Cut copies the selection and deletes it.
func (s *Session) Cut() int {
	var n int
	s.run(func() effect {
		if s.copySelection() == 0 {
			return unchanged
		}
		n = s.scene.Delete(s.scene.Selected()...)
		return recorded
	})
	return n
}

// Duplicate is Copy followed by Paste, recorded as one checkpoint.
func (s *Session) Duplicate() []document.Element {
	var pasted []document.Element
	s.run(func() effect {
		if s.copySelection() == 0 {
			return unchanged
		}
		pasted = s.paste()
		return recorded
	})
	return pasted
}

// ClipboardLen returns the number of elements on the clipboard.
func (s *Session) ClipboardLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clipboard)
}
