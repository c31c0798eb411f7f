package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/composer"
	"github.com/elee1766/lumen/src/gateway"
	"github.com/elee1766/lumen/src/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu sync.Mutex

	fragments []string
	result    *gateway.TurnResult
	chatErr   error
	// during runs after the first fragment
	during func()

	image    *gateway.Image
	imageErr error

	title      string
	titleCalls int

	requests []gateway.TurnRequest
	edits    [][]byte
}

func (f *fakeGateway) SendChatTurn(_ context.Context, req gateway.TurnRequest, onFragment func(string)) (*gateway.TurnResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fragments, during, result, err := f.fragments, f.during, f.result, f.chatErr
	f.mu.Unlock()

	for i, frag := range fragments {
		onFragment(frag)
		if i == 0 && during != nil {
			during()
		}
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &gateway.TurnResult{Model: "gemini-2.5-flash"}
	}
	return result, nil
}

func (f *fakeGateway) GenerateImage(_ context.Context, prompt string, opts *chat.ImageOptions) (*gateway.Image, error) {
	if err := gateway.ValidateImageOptions(opts); err != nil {
		return nil, &gateway.PreconditionError{Op: "generate image", Err: err}
	}
	return f.image, f.imageErr
}

func (f *fakeGateway) EditImage(_ context.Context, source []byte, _, _ string) (*gateway.Image, error) {
	if len(source) == 0 {
		return nil, &gateway.PreconditionError{Op: "edit image", Err: gateway.ErrMissingSourceImage}
	}
	f.mu.Lock()
	f.edits = append(f.edits, source)
	f.mu.Unlock()
	return f.image, f.imageErr
}

func (f *fakeGateway) SummarizeTitle(context.Context, []chat.Message) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titleCalls++
	if f.title == "" {
		return chat.DefaultTitle
	}
	return f.title
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.titleCalls
}

type recordingSink struct {
	mu     sync.Mutex
	events []ConversationEvent
}

func (r *recordingSink) Send(e ConversationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) Close() error { return nil }

func (r *recordingSink) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventType
	for _, e := range r.events {
		out = append(out, e.GetType())
	}
	return out
}

type staticLocator struct{ loc *geo.Location }

func (s staticLocator) Lookup(context.Context) *geo.Location { return s.loc }

func newTestService(t *testing.T, gw *fakeGateway, opts ...func(*ServiceConfig)) (*Service, *chat.Store, *recordingSink) {
	t.Helper()
	store := chat.NewStore(chat.StoreConfig{})
	sink := &recordingSink{}
	cfg := ServiceConfig{Store: store, Gateway: gw, EventSink: sink}
	for _, o := range opts {
		o(&cfg)
	}
	svc, err := NewService(cfg)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, store, sink
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceConfig{Gateway: &fakeGateway{}})
	assert.ErrorIs(t, err, ErrStoreRequired)
	_, err = NewService(ServiceConfig{Store: chat.NewStore(chat.StoreConfig{})})
	assert.ErrorIs(t, err, ErrGatewayRequired)
}

func TestSendStreamsReply(t *testing.T) {
	gw := &fakeGateway{
		fragments: []string{"Hel", "", "lo"},
		result: &gateway.TurnResult{
			Model:            "gemini-2.5-flash",
			GroundingSources: []chat.GroundingSource{{URI: "https://example.com"}},
		},
	}
	svc, store, sink := newTestService(t, gw, func(c *ServiceConfig) { c.DisableAutoTitle = true })

	res, err := svc.Send(context.Background(), "", &composer.Request{Text: "hi"})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, "gemini-2.5-flash", res.Model)
	assert.Equal(t, "Hello", res.Reply.Content)
	assert.False(t, res.Reply.IsLoading)
	assert.Len(t, res.Reply.GroundingSources, 1)

	c, ok := store.Snapshot().Conversation(res.ConversationID)
	require.True(t, ok)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, chat.RoleUser, c.Messages[0].Role)
	assert.Equal(t, "hi", c.Messages[0].Content)
	assert.Equal(t, res.Reply.ID, c.Messages[1].ID)
	assert.False(t, store.Busy(res.ConversationID))

	assert.Equal(t, []EventType{EventTurnStart, EventTurnChunk, EventTurnChunk, EventTurnEnd}, sink.types())
}

func TestSendPassesHistoryAndSettings(t *testing.T) {
	gw := &fakeGateway{fragments: []string{"ok"}}
	svc, store, _ := newTestService(t, gw, func(c *ServiceConfig) { c.DisableAutoTitle = true })
	store.UpdateSettings(func(s chat.Settings) chat.Settings { return s.WithMemoryFact("Vegetarian") })

	first, err := svc.Send(context.Background(), "", &composer.Request{Text: "one"})
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), first.ConversationID, &composer.Request{Text: "two"})
	require.NoError(t, err)

	require.Len(t, gw.requests, 2)
	assert.Empty(t, gw.requests[0].History)
	second := gw.requests[1]
	assert.Equal(t, "two", second.Message.Content)
	require.Len(t, second.History, 2)
	assert.Equal(t, "one", second.History[0].Content)
	assert.Equal(t, "ok", second.History[1].Content)
	assert.Equal(t, "- Vegetarian", second.Settings.Memory)
}

func TestSendAppliesMemoryUpdates(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		want      string
	}{
		{name: "empty reply is acknowledged", fragments: nil, want: MemoryAckText},
		{name: "whitespace reply is acknowledged", fragments: []string{"  "}, want: MemoryAckText},
		{name: "text reply is kept", fragments: []string{"Noted!"}, want: "Noted!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{
				fragments: tt.fragments,
				result: &gateway.TurnResult{FunctionCalls: []gateway.FunctionCall{
					{Name: gateway.MemoryFunctionName, Args: map[string]any{"fact": "Likes tea"}},
					{Name: "launch_rockets"},
				}},
			}
			svc, store, sink := newTestService(t, gw, func(c *ServiceConfig) { c.DisableAutoTitle = true })

			res, err := svc.Send(context.Background(), "", &composer.Request{Text: "I like tea"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Reply.Content)
			assert.Equal(t, []string{"Likes tea"}, res.MemoryFacts)
			assert.Equal(t, "- Likes tea", store.Snapshot().Settings.Memory)
			assert.Contains(t, sink.types(), EventMemoryUpdated)
		})
	}
}

func TestSendFailureBecomesErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "upstream message is shown",
			err:  &gateway.Error{Op: "chat", Code: 429, Message: "Quota exceeded"},
			want: "Quota exceeded",
		},
		{
			name: "unknown failure uses generic text",
			err:  errors.New("connection reset"),
			want: GenericErrorText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{fragments: []string{"partial"}, chatErr: tt.err}
			svc, store, sink := newTestService(t, gw, func(c *ServiceConfig) { c.DisableAutoTitle = true })

			res, err := svc.Send(context.Background(), "", &composer.Request{Text: "hi"})
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, StateErrored, res.State)
			assert.True(t, res.Reply.IsError)
			assert.False(t, res.Reply.IsLoading)
			assert.Equal(t, tt.want, res.Reply.Content)
			assert.False(t, store.Busy(res.ConversationID))
			assert.Contains(t, sink.types(), EventTurnError)
		})
	}
}

func TestSendImageGeneration(t *testing.T) {
	gw := &fakeGateway{image: &gateway.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}}
	svc, _, _ := newTestService(t, gw, func(c *ServiceConfig) { c.DisableAutoTitle = true })

	opts := gateway.DefaultImageOptions()
	res, err := svc.Send(context.Background(), "", &composer.Request{
		Text:         "a lighthouse at dusk",
		Mode:         chat.ModeImageGeneration,
		ImageOptions: &opts,
	})
	require.NoError(t, err)
	assert.Equal(t, opts.Model, res.Model)
	require.Len(t, res.Reply.Attachments, 1)
	assert.Equal(t, chat.AttachmentImage, res.Reply.Attachments[0].Kind)
	assert.Equal(t, "image/png", res.Reply.Attachments[0].MIMEType)
	assert.Empty(t, gw.requests, "image requests never reach the chat endpoint")
}

func TestSendImagePreconditions(t *testing.T) {
	tests := []struct {
		name string
		req  *composer.Request
		want error
	}{
		{
			name: "generation without options",
			req:  &composer.Request{Text: "a cat", Mode: chat.ModeImageGeneration},
			want: gateway.ErrMissingImageOptions,
		},
		{
			name: "edit without source",
			req:  &composer.Request{Text: "make it blue", Mode: chat.ModeImageEdit},
			want: gateway.ErrMissingSourceImage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			svc, _, _ := newTestService(t, gw, func(c *ServiceConfig) { c.DisableAutoTitle = true })

			res, err := svc.Send(context.Background(), "", tt.req)
			require.ErrorIs(t, err, tt.want)
			var pre *gateway.PreconditionError
			assert.ErrorAs(t, err, &pre)
			assert.True(t, res.Reply.IsError)
			assert.NotEqual(t, GenericErrorText, res.Reply.Content)
		})
	}
}

func TestSendImageEditUsesSource(t *testing.T) {
	gw := &fakeGateway{image: &gateway.Image{Data: []byte("edited"), MIMEType: "image/png", Text: "Done"}}
	svc, _, _ := newTestService(t, gw, func(c *ServiceConfig) { c.DisableAutoTitle = true })

	res, err := svc.Send(context.Background(), "", &composer.Request{
		Text:       "make it blue",
		Mode:       chat.ModeImageEdit,
		Attachment: &chat.Attachment{Kind: chat.AttachmentImage, MIMEType: "image/jpeg", Data: []byte("source")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Done", res.Reply.Content)
	require.Len(t, gw.edits, 1)
	assert.Equal(t, []byte("source"), gw.edits[0])
}

func TestSendMapsUsesLocation(t *testing.T) {
	loc := &geo.Location{Latitude: 52.52, Longitude: 13.40}
	gw := &fakeGateway{fragments: []string{"Try the cafe"}}
	svc, _, _ := newTestService(t, gw, func(c *ServiceConfig) {
		c.DisableAutoTitle = true
		c.Locator = staticLocator{loc: loc}
	})

	_, err := svc.Send(context.Background(), "", &composer.Request{Text: "coffee nearby", Mode: chat.ModeGoogleMaps})
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), "", &composer.Request{Text: "hello"})
	require.NoError(t, err)

	require.Len(t, gw.requests, 2)
	assert.Equal(t, loc, gw.requests[0].Location)
	assert.Nil(t, gw.requests[1].Location)
}

func TestSendDropsChunksAfterDelete(t *testing.T) {
	var (
		store *chat.Store
		id    string
	)
	gw := &fakeGateway{fragments: []string{"a", "b", "c"}}
	gw.during = func() { store.DeleteConversation(id) }
	svc, s, sink := newTestService(t, gw, func(c *ServiceConfig) { c.DisableAutoTitle = true })
	store = s
	id = store.CreateConversation()

	res, err := svc.Send(context.Background(), id, &composer.Request{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "abc", res.Reply.Content)
	_, ok := store.Snapshot().Conversation(id)
	assert.False(t, ok)

	chunks := 0
	for _, typ := range sink.types() {
		if typ == EventTurnChunk {
			chunks++
		}
	}
	assert.Equal(t, 1, chunks, "only the chunk merged before the delete is emitted")
}

func TestSendRejectsBusyConversation(t *testing.T) {
	gw := &fakeGateway{}
	svc, store, _ := newTestService(t, gw, func(c *ServiceConfig) { c.DisableAutoTitle = true })

	id := store.CreateConversation()
	require.True(t, store.AppendModelPlaceholder(id, chat.Message{ID: "pending"}))

	_, err := svc.Send(context.Background(), id, &composer.Request{Text: "again"})
	assert.ErrorIs(t, err, ErrConversationBusy)
	assert.Empty(t, gw.requests)

	_, err = svc.Send(context.Background(), id, nil)
	assert.ErrorIs(t, err, ErrNilRequest)
}

func TestAutoTitleRunsOnce(t *testing.T) {
	gw := &fakeGateway{fragments: []string{"Paris is the capital."}, title: "French Capital"}
	svc, store, sink := newTestService(t, gw)

	res, err := svc.Send(context.Background(), "", &composer.Request{Text: "capital of france?"})
	require.NoError(t, err)
	svc.Wait()

	c, _ := store.Snapshot().Conversation(res.ConversationID)
	assert.Equal(t, "French Capital", c.Title)
	assert.Equal(t, 1, gw.calls())
	assert.Contains(t, sink.types(), EventTitleUpdated)

	_, err = svc.Send(context.Background(), res.ConversationID, &composer.Request{Text: "and spain?"})
	require.NoError(t, err)
	svc.Wait()
	assert.Equal(t, 1, gw.calls())
}

func TestAutoTitleFailureIsNotRetried(t *testing.T) {
	gw := &fakeGateway{fragments: []string{"Hi there"}}
	svc, store, _ := newTestService(t, gw)

	res, err := svc.Send(context.Background(), "", &composer.Request{Text: "hello"})
	require.NoError(t, err)
	svc.Wait()
	require.Equal(t, 1, gw.calls())

	// a later unrelated change must not trigger another attempt
	store.CreateConversation()
	store.UpdateSettings(func(s chat.Settings) chat.Settings { return s.WithMemoryFact("x") })
	svc.Wait()

	c, _ := store.Snapshot().Conversation(res.ConversationID)
	assert.Equal(t, chat.DefaultTitle, c.Title)
	assert.Equal(t, 1, gw.calls())
}

func TestAutoTitleSkipsErrorReplies(t *testing.T) {
	gw := &fakeGateway{chatErr: errors.New("boom"), title: "Never"}
	svc, _, _ := newTestService(t, gw)

	_, err := svc.Send(context.Background(), "", &composer.Request{Text: "hello"})
	require.Error(t, err)
	svc.Wait()
	assert.Equal(t, 0, gw.calls())
}

func TestAutoTitleSkipsLoadedConversations(t *testing.T) {
	store := chat.NewStore(chat.StoreConfig{})
	store.Load(chat.State{
		Conversations: map[string]*chat.Conversation{
			"old": {ID: "old", Title: chat.DefaultTitle, CreatedAt: time.Now(), Messages: []chat.Message{
				{ID: "1", Role: chat.RoleUser, Content: "hi"},
				{ID: "2", Role: chat.RoleModel, Content: "hello"},
			}},
		},
		Order:    []string{"old"},
		Settings: chat.DefaultSettings(),
	})
	gw := &fakeGateway{title: "Greeting"}
	svc, err := NewService(ServiceConfig{Store: store, Gateway: gw})
	require.NoError(t, err)
	defer svc.Close()

	store.RenameConversation("old", chat.DefaultTitle+" ")
	store.RenameConversation("old", chat.DefaultTitle)
	svc.Wait()
	assert.Equal(t, 0, gw.calls())
}
