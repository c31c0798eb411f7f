package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/elee1766/lumen/src/chat"
)

// DefaultSaveDelay is how long the autosaver waits for changes to settle
const DefaultSaveDelay = 250 * time.Millisecond

// AutoSaver persists store snapshots after changes settle
type AutoSaver struct {
	persister *Persister
	store     *chat.Store
	delay     time.Duration
	logger    *slog.Logger

	mu          sync.Mutex
	timer       *time.Timer
	unsubscribe func()

	flushMu sync.Mutex
	saved   *chat.Snapshot
}

// NewAutoSaver subscribes to store. The current snapshot is treated as
// already saved.
func NewAutoSaver(persister *Persister, store *chat.Store, delay time.Duration, logger *slog.Logger) *AutoSaver {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &AutoSaver{
		persister: persister,
		store:     store,
		delay:     delay,
		logger:    logger.With("component", "autosave"),
		saved:     store.Snapshot(),
	}
	a.unsubscribe = store.Subscribe(a.onSnapshot)
	return a
}

func (a *AutoSaver) onSnapshot(*chat.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer == nil {
		a.timer = time.AfterFunc(a.delay, a.fire)
	}
}

func (a *AutoSaver) fire() {
	a.mu.Lock()
	a.timer = nil
	a.mu.Unlock()

	if err := a.Flush(context.Background()); err != nil {
		a.logger.Error("failed to save state", "error", err)
	}
}

// Flush writes any unsaved changes now
func (a *AutoSaver) Flush(ctx context.Context) error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	next := a.store.Snapshot()
	if next == a.saved {
		return nil
	}
	if err := a.persister.SaveChanged(ctx, a.saved, next); err != nil {
		return err
	}
	a.saved = next
	return nil
}

// Close stops listening and flushes pending changes
func (a *AutoSaver) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	return a.Flush(ctx)
}
