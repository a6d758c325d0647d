package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/workspace"
)

const (
	// DefaultMaxBytes is the largest serialized blob that is written or read.
	DefaultMaxBytes = 100 * 1024 * 1024
	// DefaultImagePayloadLimit is the longest image source kept verbatim.
	DefaultImagePayloadLimit = 1000
	// ImagePlaceholder replaces image sources over the payload limit.
	ImagePlaceholder = "[image-data-omitted]"
)

var ErrTooLarge = errors.New("serialized size exceeds limit")

// Adapter saves and loads scene documents and the canvas registry through a
// Store. Loads never fail: anything missing, oversized or corrupt yields
// nothing and a warning.
type Adapter struct {
	store      Store
	maxBytes   int
	imageLimit int
}

type AdapterOption func(*Adapter)

func WithMaxBytes(n int) AdapterOption {
	return func(a *Adapter) { a.maxBytes = n }
}

func WithImagePayloadLimit(n int) AdapterOption {
	return func(a *Adapter) { a.imageLimit = n }
}

func NewAdapter(store Store, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		store:      store,
		maxBytes:   DefaultMaxBytes,
		imageLimit: DefaultImagePayloadLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Save writes the document under key. Oversized image sources are replaced
// with ImagePlaceholder first; a result over the size limit is not written.
func (a *Adapter) Save(ctx context.Context, key string, f document.File) error {
	f.Elements = a.stripImages(f.Elements)
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return a.write(ctx, key, data)
}

// Load reads the document under key.
func (a *Adapter) Load(ctx context.Context, key string) (*document.File, bool) {
	data, ok := a.read(ctx, key)
	if !ok {
		return nil, false
	}
	f, err := document.Decode(data)
	if err != nil {
		slog.Warn("discarding corrupt document", "key", key, "error", err)
		return nil, false
	}
	return f, true
}

// Remove deletes the blob under key.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	return a.store.Remove(ctx, key)
}

// SaveRegistry writes the registry state, stripping image sources the same
// way Save does.
func (a *Adapter) SaveRegistry(ctx context.Context, key string, st workspace.State) error {
	entries := make([]workspace.Entry, len(st.Entries))
	for i, e := range st.Entries {
		e.Elements = a.stripImages(e.Elements)
		entries[i] = e
	}
	st.Entries = entries

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	return a.write(ctx, key, data)
}

// LoadRegistry reads the registry state.
func (a *Adapter) LoadRegistry(ctx context.Context, key string) (workspace.State, bool) {
	data, ok := a.read(ctx, key)
	if !ok {
		return workspace.State{}, false
	}
	var st workspace.State
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Warn("discarding corrupt registry", "key", key, "error", err)
		return workspace.State{}, false
	}
	return st, true
}

func (a *Adapter) write(ctx context.Context, key string, data []byte) error {
	if len(data) > a.maxBytes {
		slog.Warn("skipping save over size limit", "key", key, "bytes", len(data), "limit", a.maxBytes)
		return fmt.Errorf("save %s: %w", key, ErrTooLarge)
	}
	if err := a.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (a *Adapter) read(ctx context.Context, key string) ([]byte, bool) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("load failed", "key", key, "error", err)
		}
		return nil, false
	}
	if len(data) > a.maxBytes {
		slog.Warn("ignoring blob over size limit", "key", key, "bytes", len(data), "limit", a.maxBytes)
		return nil, false
	}
	return data, true
}

// stripImages returns a copy of elements with long image sources replaced.
// The input is not modified.
func (a *Adapter) stripImages(elements []document.Element) []document.Element {
	out := document.CloneElements(elements)
	for i, el := range out {
		img, ok := el.Data.(document.ImageData)
		if !ok || len(img.Src) <= a.imageLimit {
			continue
		}
		img.Src = ImagePlaceholder
		out[i].Data = img
	}
	return out
}
