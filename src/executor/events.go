package executor

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/elee1766/lumen/src/chat"
)

// EventType represents the type of turn event
type EventType string

const (
	EventTurnStart EventType = "turn.start"
	EventTurnChunk EventType = "turn.chunk"
	EventTurnEnd   EventType = "turn.end"
	EventTurnError EventType = "turn.error"

	EventMemoryUpdated EventType = "memory.updated"
	EventTitleUpdated  EventType = "title.updated"
)

// ErrSinkClosed is returned when sending to a closed sink
var ErrSinkClosed = errors.New("event sink is closed")

// ConversationEvent is the base interface for all events
type ConversationEvent interface {
	GetType() EventType
	GetTimestamp() time.Time
	GetConversationID() string
}

// BaseEvent contains common fields for all events
type BaseEvent struct {
	Type           EventType `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id,omitempty"`
}

func (e BaseEvent) GetType() EventType        { return e.Type }
func (e BaseEvent) GetTimestamp() time.Time   { return e.Timestamp }
func (e BaseEvent) GetConversationID() string { return e.ConversationID }

// TurnStartEvent is emitted once the user message and placeholder are in place
type TurnStartEvent struct {
	BaseEvent
	Mode chat.Mode `json:"mode"`
	Text string    `json:"text"`
}

// TurnChunkEvent carries one streamed fragment
type TurnChunkEvent struct {
	BaseEvent
	Content string `json:"content"`
}

// TurnEndEvent carries the finalized reply
type TurnEndEvent struct {
	BaseEvent
	Model   string       `json:"model,omitempty"`
	Message chat.Message `json:"message"`
}

// TurnErrorEvent is emitted when a turn ends in an error message
type TurnErrorEvent struct {
	BaseEvent
	Error error  `json:"-"`
	Text  string `json:"text"`
}

// MemoryUpdatedEvent is emitted for each fact the model asked to remember
type MemoryUpdatedEvent struct {
	BaseEvent
	Fact string `json:"fact"`
}

// TitleUpdatedEvent is emitted after a conversation is auto-titled
type TitleUpdatedEvent struct {
	BaseEvent
	Title string `json:"title"`
}

// EventSink is the interface for handling turn events
type EventSink interface {
	// Send sends an event to the sink
	Send(event ConversationEvent) error

	// Close closes the event sink
	Close() error
}

// EventProcessor processes events
type EventProcessor interface {
	Process(event ConversationEvent) error
	Close() error
}

// ChannelEventSink implements EventSink using Go channels. Processors run on
// a single goroutine in send order.
type ChannelEventSink struct {
	events     chan ConversationEvent
	processors []EventProcessor
	done       chan struct{}
	logger     *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewChannelEventSink creates a new channel-based event sink
func NewChannelEventSink(bufferSize int, logger *slog.Logger, processors ...EventProcessor) *ChannelEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	sink := &ChannelEventSink{
		events:     make(chan ConversationEvent, bufferSize),
		processors: processors,
		done:       make(chan struct{}),
		logger:     logger.With("component", "event_sink"),
	}

	go sink.processEvents()

	return sink
}

// Send sends an event to the sink
func (s *ChannelEventSink) Send(event ConversationEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	s.events <- event
	return nil
}

// Close drains pending events and closes all processors
func (s *ChannelEventSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()
	<-s.done

	var errs []error
	for _, p := range s.processors {
		if err := p.Close(); err != nil {
			s.logger.Error("failed to close processor", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *ChannelEventSink) processEvents() {
	defer close(s.done)

	for event := range s.events {
		for _, processor := range s.processors {
			if err := processor.Process(event); err != nil {
				s.logger.Error("failed to process event", "type", event.GetType(), "error", err)
			}
		}
	}
}

// FuncProcessor adapts a function to EventProcessor
type FuncProcessor func(ConversationEvent) error

func (f FuncProcessor) Process(event ConversationEvent) error { return f(event) }
func (f FuncProcessor) Close() error                         { return nil }
