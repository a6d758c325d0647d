package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultAutosaveDelay is the quiet period after the last change before
// pending saves are written.
const DefaultAutosaveDelay = 2 * time.Second

// SaveFunc performs one write.
type SaveFunc func(ctx context.Context) error

// Autosaver coalesces writes. Each Schedule replaces the pending write for
// its key and restarts the timer, so a burst of edits produces one write per
// key once the edits stop.
type Autosaver struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending map[string]SaveFunc
	order   []string
	closed  bool
	running sync.Mutex
}

func NewAutosaver(delay time.Duration) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Autosaver{
		delay:   delay,
		pending: make(map[string]SaveFunc),
	}
}

// Schedule queues save under key. It is dropped after Close.
func (a *Autosaver) Schedule(key string, save SaveFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if _, ok := a.pending[key]; !ok {
		a.order = append(a.order, key)
	}
	a.pending[key] = save

	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() {
		if err := a.Flush(context.Background()); err != nil {
			slog.Error("autosave failed", "error", err)
		}
	})
}

// Pending returns the number of queued writes.
func (a *Autosaver) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Flush writes everything queued now, in the order keys were first
// scheduled. Errors are joined; a failed write is not retried.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.running.Lock()
	defer a.running.Unlock()

	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	pending, order := a.pending, a.order
	a.pending = make(map[string]SaveFunc)
	a.order = nil
	a.mu.Unlock()

	var errs []error
	for _, key := range order {
		if err := pending[key](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes pending writes and rejects further scheduling.
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return a.Flush(ctx)
}
