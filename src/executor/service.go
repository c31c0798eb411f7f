// Package executor runs chat turns against the store and the gateway.
package executor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/gateway"
	"github.com/elee1766/lumen/src/geo"
)

// Gateway is the subset of the gateway client a turn needs
type Gateway interface {
	SendChatTurn(ctx context.Context, req gateway.TurnRequest, onFragment func(string)) (*gateway.TurnResult, error)
	GenerateImage(ctx context.Context, prompt string, opts *chat.ImageOptions) (*gateway.Image, error)
	EditImage(ctx context.Context, source []byte, mimeType, instruction string) (*gateway.Image, error)
	SummarizeTitle(ctx context.Context, messages []chat.Message) string
}

// Locator resolves the location used to bias map answers
type Locator interface {
	Lookup(ctx context.Context) *geo.Location
}

// Service runs turns with all necessary dependencies
type Service struct {
	store   *chat.Store
	gateway Gateway
	locator Locator
	sink    EventSink
	logger  *slog.Logger

	titler *autoTitler
}

// ServiceConfig holds configuration for creating a new Service
type ServiceConfig struct {
	Store   *chat.Store
	Gateway Gateway
	// Locator is optional; without it map answers are not location biased.
	Locator Locator
	// EventSink is optional.
	EventSink EventSink
	// DisableAutoTitle turns off automatic conversation titling
	DisableAutoTitle bool
	Logger           *slog.Logger
}

// NewService creates a new turn service. Unless disabled, it starts titling
// conversations as they become eligible.
func NewService(config ServiceConfig) (*Service, error) {
	if config.Store == nil {
		return nil, ErrStoreRequired
	}
	if config.Gateway == nil {
		return nil, ErrGatewayRequired
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Service{
		store:   config.Store,
		gateway: config.Gateway,
		locator: config.Locator,
		sink:    config.EventSink,
		logger:  config.Logger.With("component", "executor"),
	}
	if !config.DisableAutoTitle {
		s.titler = newAutoTitler(s)
	}
	return s, nil
}

// Wait blocks until in-flight title requests finish
func (s *Service) Wait() {
	if s.titler != nil {
		s.titler.wg.Wait()
	}
}

// Close stops auto-titling and waits for pending title requests
func (s *Service) Close() {
	if s.titler != nil {
		s.titler.stop()
	}
	s.Wait()
}

func (s *Service) emitter(conversationID, messageID string) *EventEmitter {
	return NewEventEmitter(s.sink, conversationID, messageID, s.logger)
}

// autoTitler renames conversations once they have a first completed reply.
// Each conversation is attempted at most once per process.
type autoTitler struct {
	svc *Service

	mu          sync.Mutex
	attempted   map[string]bool
	stopped     bool
	unsubscribe func()
	wg          sync.WaitGroup
}

func newAutoTitler(svc *Service) *autoTitler {
	t := &autoTitler{svc: svc, attempted: map[string]bool{}}
	// conversations that were already eligible when we started were
	// attempted by an earlier session
	for id, c := range svc.store.Snapshot().Conversations {
		if chat.NeedsTitle(c) {
			t.attempted[id] = true
		}
	}
	t.unsubscribe = svc.store.Subscribe(t.onSnapshot)
	return t
}

func (t *autoTitler) onSnapshot(snap *chat.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	for id, c := range snap.Conversations {
		if t.attempted[id] || !chat.NeedsTitle(c) {
			continue
		}
		t.attempted[id] = true
		messages := c.Messages
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.title(id, messages)
		}()
	}
}

func (t *autoTitler) title(conversationID string, messages []chat.Message) {
	logger := t.svc.logger.With("conversation_id", conversationID)
	title := t.svc.gateway.SummarizeTitle(context.Background(), messages)
	if title == "" || title == chat.DefaultTitle {
		logger.Debug("keeping default title")
		return
	}

	c, ok := t.svc.store.Snapshot().Conversation(conversationID)
	if !ok || c.Title != chat.DefaultTitle {
		logger.Debug("conversation changed before titling finished")
		return
	}
	if t.svc.store.RenameConversation(conversationID, title) {
		logger.Info("conversation titled", "title", title)
		t.svc.emitter(conversationID, "").EmitTitleUpdated(title)
	}
}

func (t *autoTitler) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}
