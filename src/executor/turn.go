package executor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/composer"
	"github.com/elee1766/lumen/src/gateway"
)

// Result describes a finished turn
type Result struct {
	ConversationID string
	Reply          chat.Message
	Model          string
	State          TurnState
	MemoryFacts    []string
}

// Send runs one turn in conversationID, creating the conversation when it
// does not exist. Failures are recorded in the conversation as an error
// reply; the returned error reports the same failure to the caller.
func (s *Service) Send(ctx context.Context, conversationID string, req *composer.Request) (Result, error) {
	if req == nil {
		return Result{}, ErrNilRequest
	}
	if _, ok := s.store.Snapshot().Conversation(conversationID); !ok {
		conversationID = s.store.CreateConversation()
	}
	if s.store.Busy(conversationID) {
		return Result{ConversationID: conversationID, State: StateComposing}, ErrConversationBusy
	}

	userMsg := req.Message()
	userMsg.ID = chat.NewID()
	placeholder := chat.Message{ID: chat.NewID()}
	if !s.store.AppendUserMessage(conversationID, userMsg) {
		return Result{ConversationID: conversationID, State: StateComposing}, ErrConversationNotFound
	}
	if !s.store.AppendModelPlaceholder(conversationID, placeholder) {
		return Result{ConversationID: conversationID, State: StateComposing}, ErrConversationBusy
	}

	t := &turn{
		svc:            s,
		conversationID: conversationID,
		placeholderID:  placeholder.ID,
		req:            req,
		user:           userMsg,
		emit:           s.emitter(conversationID, placeholder.ID),
		logger: s.logger.With(
			"conversation_id", conversationID,
			"message_id", placeholder.ID,
			"mode", req.Mode),
		state: StateSent,
	}
	t.emit.EmitTurnStart(req.Mode, req.Text)
	return t.run(ctx)
}

// turn carries the state of one in-flight exchange
type turn struct {
	svc            *Service
	conversationID string
	placeholderID  string
	req            *composer.Request
	user           chat.Message
	emit           *EventEmitter
	logger         *slog.Logger

	state   TurnState
	model   string
	content strings.Builder
	facts   []string
}

func (t *turn) run(ctx context.Context) (Result, error) {
	var (
		patch chat.MessagePatch
		err   error
	)
	switch t.req.Mode {
	case chat.ModeImageGeneration:
		patch, err = t.generateImage(ctx)
	case chat.ModeImageEdit:
		patch, err = t.editImage(ctx)
	default:
		patch, err = t.chat(ctx)
	}
	if err != nil {
		return t.fail(err)
	}
	return t.finish(patch)
}

func (t *turn) generateImage(ctx context.Context) (chat.MessagePatch, error) {
	img, err := t.svc.gateway.GenerateImage(ctx, t.req.Text, t.req.ImageOptions)
	if err != nil {
		return chat.MessagePatch{}, err
	}
	if t.req.ImageOptions != nil {
		t.model = t.req.ImageOptions.Model
	}
	return imagePatch(img), nil
}

func (t *turn) editImage(ctx context.Context) (chat.MessagePatch, error) {
	var (
		source []byte
		mime   string
	)
	if a := t.req.Attachment; a != nil && a.IsImage() {
		source, mime = a.Data, a.MIMEType
	}
	img, err := t.svc.gateway.EditImage(ctx, source, mime, t.req.Text)
	if err != nil {
		return chat.MessagePatch{}, err
	}
	return imagePatch(img), nil
}

func imagePatch(img *gateway.Image) chat.MessagePatch {
	text := img.Text
	return chat.MessagePatch{
		Content: &text,
		Attachments: []chat.Attachment{{
			Kind:     chat.AttachmentImage,
			MIMEType: img.MIMEType,
			Data:     img.Data,
		}},
	}
}

func (t *turn) chat(ctx context.Context) (chat.MessagePatch, error) {
	snap := t.svc.store.Snapshot()
	c, ok := snap.Conversation(t.conversationID)
	if !ok {
		return chat.MessagePatch{}, ErrConversationNotFound
	}

	req := gateway.TurnRequest{
		Message:  t.user,
		History:  history(c, t.user.ID),
		Settings: snap.Settings,
		Mode:     t.req.Mode,
	}
	if t.req.Mode == chat.ModeGoogleMaps && t.svc.locator != nil {
		req.Location = t.svc.locator.Lookup(ctx)
	}

	result, err := t.svc.gateway.SendChatTurn(ctx, req, t.onFragment)
	if err != nil {
		return chat.MessagePatch{}, err
	}
	t.model = result.Model

	for _, call := range result.FunctionCalls {
		fact, ok := call.MemoryFact()
		if !ok {
			t.logger.Warn("ignoring unknown function call", "function", call.Name)
			continue
		}
		t.svc.store.UpdateSettings(func(st chat.Settings) chat.Settings {
			return st.WithMemoryFact(fact)
		})
		t.facts = append(t.facts, fact)
		t.emit.EmitMemoryUpdated(fact)
		t.logger.Info("memory updated", "fact", fact)
	}

	patch := chat.MessagePatch{GroundingSources: result.GroundingSources}
	if len(t.facts) > 0 && strings.TrimSpace(t.content.String()) == "" {
		ack := MemoryAckText
		patch.Content = &ack
	}
	return patch, nil
}

func (t *turn) onFragment(fragment string) {
	if fragment == "" {
		return
	}
	t.state = StateStreaming
	t.content.WriteString(fragment)
	if t.svc.store.MergeStreamChunk(t.conversationID, t.placeholderID, fragment) {
		t.emit.EmitChunk(fragment)
	}
}

func (t *turn) finish(patch chat.MessagePatch) (Result, error) {
	t.state = StateCompleted
	if !t.svc.store.FinalizeModelMessage(t.conversationID, t.placeholderID, patch) {
		t.logger.Debug("reply finished after its placeholder was gone")
	}
	reply := t.reply()
	t.emit.EmitTurnEnd(t.model, reply)
	t.logger.Debug("turn complete", "model", t.model, "bytes", len(reply.Content))
	return t.result(reply), nil
}

func (t *turn) fail(err error) (Result, error) {
	t.state = StateErrored
	text := gateway.UserMessage(err, GenericErrorText)
	t.logger.Error("turn failed", "error", err)
	t.svc.store.FinalizeModelMessage(t.conversationID, t.placeholderID, chat.MessagePatch{
		Content: &text,
		IsError: true,
	})
	t.emit.EmitTurnError(err, text)
	return t.result(t.reply()), err
}

// reply returns the stored placeholder, or a reconstruction when the
// conversation was deleted mid-turn
func (t *turn) reply() chat.Message {
	if c, ok := t.svc.store.Snapshot().Conversation(t.conversationID); ok {
		for i := len(c.Messages) - 1; i >= 0; i-- {
			if c.Messages[i].ID == t.placeholderID {
				return c.Messages[i]
			}
		}
	}
	return chat.Message{
		ID:      t.placeholderID,
		Role:    chat.RoleModel,
		Content: t.content.String(),
		IsError: t.state == StateErrored,
	}
}

func (t *turn) result(reply chat.Message) Result {
	return Result{
		ConversationID: t.conversationID,
		Reply:          reply,
		Model:          t.model,
		State:          t.state,
		MemoryFacts:    t.facts,
	}
}

// history returns the completed messages that precede the message with id
// upTo
func history(c *chat.Conversation, upTo string) []chat.Message {
	out := make([]chat.Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m.ID == upTo {
			break
		}
		if m.IsLoading || m.IsError {
			continue
		}
		out = append(out, m)
	}
	return out
}
