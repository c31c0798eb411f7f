package executor

import (
	"bytes"
	"errors"
	"testing"

	"github.com/elee1766/lumen/src/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleProcessorStreamMode(t *testing.T) {
	var out bytes.Buffer
	sink := NewChannelEventSink(8, nil, NewConsoleEventProcessor(ConsoleProcessorConfig{Out: &out, StreamMode: true, RawMode: true}))
	emit := NewEventEmitter(sink, "c1", "m1", nil)

	emit.EmitTurnStart(chat.ModeDefault, "hi")
	emit.EmitChunk("Hel")
	emit.EmitChunk("lo")
	emit.EmitTurnEnd("gemini-2.5-flash", chat.Message{Content: "Hello"})
	require.NoError(t, sink.Close())

	assert.Equal(t, "Hello\n", out.String())
}

func TestConsoleProcessorFinalReply(t *testing.T) {
	var out bytes.Buffer
	var saved []byte
	p := NewConsoleEventProcessor(ConsoleProcessorConfig{
		Out:         &out,
		ShowSources: true,
		ImageSaver: func(id string, data []byte, mime string) (string, error) {
			saved = data
			return "/tmp/" + id + ".png", nil
		},
	})

	require.NoError(t, p.Process(&TurnEndEvent{
		BaseEvent: BaseEvent{Type: EventTurnEnd, MessageID: "m1"},
		Message: chat.Message{
			Content:          "Here you go",
			Attachments:      []chat.Attachment{{Kind: chat.AttachmentImage, MIMEType: "image/png", Data: []byte("png")}},
			GroundingSources: []chat.GroundingSource{{URI: "https://example.com", Title: "Example"}},
		},
	}))
	require.NoError(t, p.Process(&TurnErrorEvent{Error: errors.New("x"), Text: "Quota exceeded"}))

	got := out.String()
	assert.Contains(t, got, "Here you go")
	assert.Contains(t, got, "/tmp/m1.png")
	assert.Contains(t, got, "[1] Example https://example.com")
	assert.Contains(t, got, "Quota exceeded")
	assert.Equal(t, []byte("png"), saved)
}

func TestChannelEventSinkClosed(t *testing.T) {
	var seen []EventType
	sink := NewChannelEventSink(1, nil, FuncProcessor(func(e ConversationEvent) error {
		seen = append(seen, e.GetType())
		return nil
	}))
	require.NoError(t, sink.Send(&TurnChunkEvent{BaseEvent: BaseEvent{Type: EventTurnChunk}}))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	assert.ErrorIs(t, sink.Send(&TurnChunkEvent{}), ErrSinkClosed)
	assert.Equal(t, []EventType{EventTurnChunk}, seen)
}

func TestTurnState(t *testing.T) {
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.False(t, StateSent.Terminal())
	assert.True(t, StateErrored.Terminal())
}
