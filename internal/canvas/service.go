// Package canvas manages the set of saved canvases: the registry, its
// persistence, and the REST surface over both.
package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/editor"
	"github.com/inamate/freecanvas/internal/engine"
	"github.com/inamate/freecanvas/internal/storage"
	"github.com/inamate/freecanvas/internal/workspace"
)

const (
	DefaultName     = "Untitled canvas"
	ThumbnailWidth  = 160
	ThumbnailHeight = 120
	documentPrefix  = "canvas:"
)

var (
	ErrNotFound        = errors.New("canvas not found")
	ErrInvalidName     = errors.New("invalid canvas name")
	ErrInvalidDocument = errors.New("invalid canvas document")
)

const maxNameLength = 200

// Service owns the registry. Every change is written back through the
// autosaver: the registry under its own key and each edited document under
// DocumentKey(id).
type Service struct {
	mu          sync.Mutex
	registry    *workspace.Registry
	adapter     *storage.Adapter
	autosave    *storage.Autosaver
	registryKey string
	stale       map[string]bool
	onChange    func([]workspace.Summary)
}

func NewService(registry *workspace.Registry, adapter *storage.Adapter, autosave *storage.Autosaver, registryKey string) *Service {
	return &Service{
		registry:    registry,
		adapter:     adapter,
		autosave:    autosave,
		registryKey: registryKey,
		stale:       make(map[string]bool),
	}
}

// DocumentKey is the store key of a canvas document.
func DocumentKey(id string) string {
	return documentPrefix + id
}

// OnChange registers a listener called with the new listing after every
// registry change. It runs without the service lock held.
func (s *Service) OnChange(fn func([]workspace.Summary)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Restore loads the persisted registry. A stored document newer than its
// registry entry replaces the entry's content, which covers a registry write
// that was skipped or lost. An empty or missing registry gets one fresh
// canvas so that there is always a current one.
func (s *Service) Restore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.adapter.LoadRegistry(ctx, s.registryKey); ok {
		for i, e := range st.Entries {
			f, ok := s.adapter.Load(ctx, DocumentKey(e.ID))
			if !ok || !f.Timestamp.After(e.UpdatedAt) {
				continue
			}
			st.Entries[i].Elements = f.Elements
			st.Entries[i].View = f.CanvasState
			st.Entries[i].UpdatedAt = f.Timestamp
			s.stale[e.ID] = true
		}
		s.registry.Restore(st)
	}
	if s.registry.Len() == 0 {
		id := s.registry.Create(DefaultName)
		s.stale[id] = true
		s.scheduleRegistry()
	}
	slog.Info("canvas registry restored", "canvases", s.registry.Len(), "current", s.registry.CurrentID())
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName, nil
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, maxNameLength)
	}
	return name, nil
}

func (s *Service) List() []workspace.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.List()
}

func (s *Service) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.registry.Get(id)
	return ok
}

func (s *Service) Get(id string) (*workspace.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.registry.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *Service) summary(id string) *workspace.Summary {
	for _, sum := range s.registry.List() {
		if sum.ID == id {
			return &sum
		}
	}
	return nil
}

// Create adds an empty canvas and makes it current.
func (s *Service) Create(name string) (*workspace.Summary, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	id := s.registry.Create(name)
	s.stale[id] = true
	sum := s.summary(id)
	s.changed()
	return sum, nil
}

func (s *Service) Rename(id, name string) (*workspace.Summary, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if !s.registry.Rename(id, name) {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	sum := s.summary(id)
	s.changed()
	return sum, nil
}

// Delete removes the canvas. Removing its stored document replaces any
// pending save of it.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	if !s.registry.Delete(id) {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.stale, id)
	s.autosave.Schedule(DocumentKey(id), func(ctx context.Context) error {
		return s.adapter.Remove(ctx, DocumentKey(id))
	})
	s.changed()
	return nil
}

// SwitchTo marks id current. Loading it into an editing session is a
// separate step (Open).
func (s *Service) SwitchTo(id string) (*workspace.Summary, error) {
	s.mu.Lock()
	if !s.registry.SwitchTo(id) {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	sum := s.summary(id)
	s.changed()
	return sum, nil
}

// Open returns the document to load into an editing session.
func (s *Service) Open(id string) (document.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.registry.Get(id)
	if !ok {
		return document.File{}, ErrNotFound
	}
	return e.File(), nil
}

// Commit records an editing session's state for canvas id. Thumbnails are
// rendered lazily when the registry is written. Commits do not notify the
// change listener; only changes to the set of canvases do.
func (s *Service) Commit(id string, snap editor.Snapshot) {
	s.mu.Lock()
	if !s.registry.Update(id, snap.Elements, snap.View) {
		s.mu.Unlock()
		slog.Warn("commit for unknown canvas", "canvas", id)
		return
	}
	s.stale[id] = true
	s.scheduleDocument(id)
	s.scheduleRegistry()
	s.mu.Unlock()
}

// Export returns the canvas as a standalone JSON scene document.
func (s *Service) Export(id string) ([]byte, error) {
	f, err := s.Open(id)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// Import creates a canvas from a JSON scene document and makes it current.
func (s *Service) Import(name string, data []byte) (*workspace.Summary, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	f, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	s.mu.Lock()
	id := s.registry.Create(name)
	s.registry.Update(id, f.Elements, f.CanvasState)
	s.stale[id] = true
	s.scheduleDocument(id)
	sum := s.summary(id)
	s.changed()
	return sum, nil
}

// Flush writes all pending saves now.
func (s *Service) Flush(ctx context.Context) error {
	return s.autosave.Flush(ctx)
}

// changed schedules a registry write, releases the lock and notifies the
// listener. It must be called with s.mu held.
func (s *Service) changed() {
	s.scheduleRegistry()
	list := s.registry.List()
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(list)
	}
}

// scheduleDocument queues a write of the entry as it is now. It must be
// called with s.mu held.
func (s *Service) scheduleDocument(id string) {
	e, ok := s.registry.Get(id)
	if !ok {
		return
	}
	f := e.File()
	s.autosave.Schedule(DocumentKey(id), func(ctx context.Context) error {
		return s.adapter.Save(ctx, DocumentKey(id), f)
	})
}

func (s *Service) scheduleRegistry() {
	s.autosave.Schedule(s.registryKey, s.saveRegistry)
}

func (s *Service) saveRegistry(ctx context.Context) error {
	s.mu.Lock()
	for id := range s.stale {
		if e, ok := s.registry.Get(id); ok {
			thumb, err := engine.ThumbnailDataURL(e.Elements, ThumbnailWidth, ThumbnailHeight)
			if err != nil {
				slog.Warn("render thumbnail failed", "canvas", id, "error", err)
				continue
			}
			s.registry.SetThumbnail(id, thumb)
		}
	}
	clear(s.stale)
	st := s.registry.State()
	s.mu.Unlock()

	return s.adapter.SaveRegistry(ctx, s.registryKey, st)
}
