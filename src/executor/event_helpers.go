package executor

import (
	"log/slog"
	"time"

	"github.com/elee1766/lumen/src/chat"
)

// EventEmitter emits events for one turn with common fields filled in
type EventEmitter struct {
	sink           EventSink
	conversationID string
	messageID      string
	logger         *slog.Logger
}

// NewEventEmitter creates an emitter. A nil sink discards everything.
func NewEventEmitter(sink EventSink, conversationID, messageID string, logger *slog.Logger) *EventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventEmitter{
		sink:           sink,
		conversationID: conversationID,
		messageID:      messageID,
		logger:         logger,
	}
}

func (e *EventEmitter) base(t EventType) BaseEvent {
	return BaseEvent{
		Type:           t,
		Timestamp:      time.Now(),
		ConversationID: e.conversationID,
		MessageID:      e.messageID,
	}
}

func (e *EventEmitter) send(event ConversationEvent) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Send(event); err != nil {
		e.logger.Debug("event dropped", "type", event.GetType(), "error", err)
	}
}

// EmitTurnStart emits the start of a turn
func (e *EventEmitter) EmitTurnStart(mode chat.Mode, text string) {
	e.send(&TurnStartEvent{BaseEvent: e.base(EventTurnStart), Mode: mode, Text: text})
}

// EmitChunk emits a streamed fragment
func (e *EventEmitter) EmitChunk(content string) {
	e.send(&TurnChunkEvent{BaseEvent: e.base(EventTurnChunk), Content: content})
}

// EmitTurnEnd emits the finalized reply
func (e *EventEmitter) EmitTurnEnd(model string, msg chat.Message) {
	e.send(&TurnEndEvent{BaseEvent: e.base(EventTurnEnd), Model: model, Message: msg})
}

// EmitTurnError emits a failed turn
func (e *EventEmitter) EmitTurnError(err error, text string) {
	e.send(&TurnErrorEvent{BaseEvent: e.base(EventTurnError), Error: err, Text: text})
}

// EmitMemoryUpdated emits a remembered fact
func (e *EventEmitter) EmitMemoryUpdated(fact string) {
	e.send(&MemoryUpdatedEvent{BaseEvent: e.base(EventMemoryUpdated), Fact: fact})
}

// EmitTitleUpdated emits a new conversation title
func (e *EventEmitter) EmitTitleUpdated(title string) {
	e.send(&TitleUpdatedEvent{BaseEvent: e.base(EventTitleUpdated), Title: title})
}
