package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/elee1766/lumen/src/chat"
)

// relay forwards store snapshots to the program. Subscribers run on the
// mutating goroutine, so only the latest snapshot is kept and delivery
// happens on a separate goroutine.
type relay struct {
	mu      sync.Mutex
	latest  *chat.Snapshot
	wake    chan struct{}
	stopped chan struct{}
}

func newRelay() *relay {
	return &relay{wake: make(chan struct{}, 1), stopped: make(chan struct{})}
}

func (r *relay) offer(snap *chat.Snapshot) {
	r.mu.Lock()
	if r.latest == nil || snap.Version > r.latest.Version {
		r.latest = snap
	}
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *relay) take() *chat.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.latest
	r.latest = nil
	return snap
}

// run delivers snapshots until ctx is done
func (r *relay) run(ctx context.Context, send func(tea.Msg)) {
	defer close(r.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
			if snap := r.take(); snap != nil {
				send(snapshotMsg{snap: snap})
			}
		}
	}
}

// Run starts the chat UI and blocks until the user quits
func Run(ctx context.Context, cfg Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	r := newRelay()
	unsubscribe := cfg.Store.Subscribe(r.offer)
	defer unsubscribe()
	go r.run(ctx, p.Send)

	_, err := p.Run()
	cancel()
	<-r.stopped
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
