package chat

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Snapshot is an immutable view of the store. Every mutation produces a new
// Snapshot; conversations untouched by the mutation keep their pointers, so
// callers can detect changes by reference.
type Snapshot struct {
	Conversations map[string]*Conversation
	Order         []string
	ActiveID      string
	Settings      Settings
	Version       uint64
}

// Conversation returns the conversation with the given id
func (s *Snapshot) Conversation(id string) (*Conversation, bool) {
	c, ok := s.Conversations[id]
	return c, ok
}

// Active returns the active conversation or nil
func (s *Snapshot) Active() *Conversation {
	return s.Conversations[s.ActiveID]
}

// Ordered returns conversations in display order
func (s *Snapshot) Ordered() []*Conversation {
	out := make([]*Conversation, 0, len(s.Order))
	for _, id := range s.Order {
		if c, ok := s.Conversations[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// State is the persisted portion of a snapshot
type State struct {
	Conversations map[string]*Conversation
	Order         []string
	Settings      Settings
}

// MessagePatch describes how a placeholder is finalized. Nil fields keep the
// placeholder's current value.
type MessagePatch struct {
	Content          *string
	Attachments      []Attachment
	GroundingSources []GroundingSource
	IsError          bool
}

// StoreConfig configures a Store
type StoreConfig struct {
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

type subscriber struct {
	id int
	fn func(*Snapshot)
}

// Store owns conversations, their display order, the active selection and
// settings. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	snap    *Snapshot
	subs    []subscriber
	nextSub int

	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// NewStore creates an empty store
func NewStore(cfg StoreConfig) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = NewID
	}
	return &Store{
		snap: &Snapshot{
			Conversations: map[string]*Conversation{},
			Order:         []string{},
			Settings:      DefaultSettings(),
		},
		now:    cfg.Now,
		newID:  cfg.NewID,
		logger: cfg.Logger.With("component", "store"),
	}
}

// Snapshot returns the current snapshot
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers fn to be called with every published snapshot. fn runs
// outside the store lock and may observe snapshots out of order when
// mutations race; compare Version when that matters. fn must not block.
func (s *Store) Subscribe(fn func(*Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

// update applies fn to a draft of the current snapshot and publishes it when
// fn reports a change. The draft shares the previous map's values; fn must
// replace, never modify, any conversation it touches.
func (s *Store) update(fn func(draft *Snapshot) bool) bool {
	s.mu.Lock()
	prev := s.snap
	draft := &Snapshot{
		Conversations: prev.Conversations,
		Order:         prev.Order,
		ActiveID:      prev.ActiveID,
		Settings:      prev.Settings,
		Version:       prev.Version + 1,
	}
	if !fn(draft) {
		s.mu.Unlock()
		return false
	}
	s.snap = draft
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(draft)
	}
	return true
}

// withConversation copies the map and stores c under its id
func withConversation(draft *Snapshot, c *Conversation) {
	m := make(map[string]*Conversation, len(draft.Conversations)+1)
	for k, v := range draft.Conversations {
		m[k] = v
	}
	m[c.ID] = c
	draft.Conversations = m
}

// Load replaces the whole state, typically with what persistence returned.
// The active conversation becomes the first in order.
func (s *Store) Load(state State) {
	s.update(func(draft *Snapshot) bool {
		convs := make(map[string]*Conversation, len(state.Conversations))
		for id, c := range state.Conversations {
			if c != nil {
				convs[id] = c
			}
		}
		order := make([]string, 0, len(state.Order))
		for _, id := range state.Order {
			if _, ok := convs[id]; ok {
				order = append(order, id)
			}
		}
		draft.Conversations = convs
		draft.Order = order
		draft.Settings = state.Settings.Normalize()
		draft.ActiveID = ""
		if len(order) > 0 {
			draft.ActiveID = order[0]
		}
		return true
	})
}

// CreateConversation allocates an empty conversation, puts it first in the
// display order and makes it active.
func (s *Store) CreateConversation() string {
	c := &Conversation{
		ID:        s.newID(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: s.now(),
	}
	s.update(func(draft *Snapshot) bool {
		withConversation(draft, c)
		order := make([]string, 0, len(draft.Order)+1)
		order = append(order, c.ID)
		draft.Order = append(order, draft.Order...)
		draft.ActiveID = c.ID
		return true
	})
	s.logger.Debug("conversation created", "conversation_id", c.ID)
	return c.ID
}

// SelectConversation makes id active. Unknown ids are ignored.
func (s *Store) SelectConversation(id string) bool {
	return s.update(func(draft *Snapshot) bool {
		if _, ok := draft.Conversations[id]; !ok || draft.ActiveID == id {
			return false
		}
		draft.ActiveID = id
		return true
	})
}

// DeleteConversation removes a conversation. Deleting the active one
// activates the new head of the order, or nothing if none remain.
func (s *Store) DeleteConversation(id string) bool {
	ok := s.update(func(draft *Snapshot) bool {
		if _, ok := draft.Conversations[id]; !ok {
			return false
		}
		m := make(map[string]*Conversation, len(draft.Conversations))
		for k, v := range draft.Conversations {
			if k != id {
				m[k] = v
			}
		}
		draft.Conversations = m
		draft.Order = slices.DeleteFunc(slices.Clone(draft.Order), func(o string) bool { return o == id })
		if draft.ActiveID == id {
			draft.ActiveID = ""
			if len(draft.Order) > 0 {
				draft.ActiveID = draft.Order[0]
			}
		}
		return true
	})
	if ok {
		s.logger.Debug("conversation deleted", "conversation_id", id)
	}
	return ok
}

// RenameConversation sets a conversation's title
func (s *Store) RenameConversation(id, title string) bool {
	return s.update(func(draft *Snapshot) bool {
		c, ok := draft.Conversations[id]
		if !ok || c.Title == title {
			return false
		}
		next := c.clone(0)
		next.Title = title
		withConversation(draft, next)
		return true
	})
}

// AppendUserMessage appends msg as a user message. Appends to a missing
// conversation are dropped.
func (s *Store) AppendUserMessage(conversationID string, msg Message) bool {
	msg.Role = RoleUser
	msg.IsLoading = false
	return s.appendMessage(conversationID, msg)
}

// AppendModelPlaceholder appends msg as a loading model message. It is
// rejected when the conversation already has a reply in flight.
func (s *Store) AppendModelPlaceholder(conversationID string, msg Message) bool {
	msg.Role = RoleModel
	msg.IsLoading = true
	msg.IsError = false
	return s.appendMessage(conversationID, msg)
}

func (s *Store) appendMessage(conversationID string, msg Message) bool {
	if msg.ID == "" {
		msg.ID = s.newID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	ok := s.update(func(draft *Snapshot) bool {
		c, ok := draft.Conversations[conversationID]
		if !ok {
			return false
		}
		if msg.IsLoading && hasLoading(c) {
			return false
		}
		next := c.clone(1)
		next.Messages = append(next.Messages, msg)
		withConversation(draft, next)
		return true
	})
	if !ok {
		s.logger.Debug("append dropped", "conversation_id", conversationID, "message_id", msg.ID, "role", msg.Role)
	}
	return ok
}

// MergeStreamChunk appends fragment to the trailing placeholder. The chunk is
// dropped unless the trailing message is the loading model message with id
// placeholderID.
func (s *Store) MergeStreamChunk(conversationID, placeholderID, fragment string) bool {
	if fragment == "" {
		return false
	}
	ok := s.update(func(draft *Snapshot) bool {
		c, i, ok := trailingPlaceholder(draft, conversationID, placeholderID)
		if !ok {
			return false
		}
		next := c.clone(0)
		next.Messages[i].Content += fragment
		next.Messages[i].IsLoading = true
		withConversation(draft, next)
		return true
	})
	if !ok {
		s.logger.Debug("orphaned chunk dropped", "conversation_id", conversationID, "placeholder_id", placeholderID)
	}
	return ok
}

// FinalizeModelMessage applies patch to the trailing placeholder and clears
// its loading flag.
func (s *Store) FinalizeModelMessage(conversationID, placeholderID string, patch MessagePatch) bool {
	ok := s.update(func(draft *Snapshot) bool {
		c, i, ok := trailingPlaceholder(draft, conversationID, placeholderID)
		if !ok {
			return false
		}
		next := c.clone(0)
		m := &next.Messages[i]
		if patch.Content != nil {
			m.Content = *patch.Content
		}
		if patch.Attachments != nil {
			m.Attachments = slices.Clone(patch.Attachments)
		}
		if patch.GroundingSources != nil {
			m.GroundingSources = slices.Clone(patch.GroundingSources)
		}
		if patch.IsError {
			m.Attachments = nil
			m.GroundingSources = nil
		}
		m.IsError = patch.IsError
		m.IsLoading = false
		withConversation(draft, next)
		return true
	})
	if !ok {
		s.logger.Debug("finalize dropped", "conversation_id", conversationID, "placeholder_id", placeholderID)
	}
	return ok
}

// UpdateSettings replaces settings with fn's result
func (s *Store) UpdateSettings(fn func(Settings) Settings) {
	s.update(func(draft *Snapshot) bool {
		draft.Settings = fn(draft.Settings).Normalize()
		return true
	})
}

// Busy reports whether the conversation has a reply in flight
func (s *Store) Busy(conversationID string) bool {
	c, ok := s.Snapshot().Conversation(conversationID)
	return ok && hasLoading(c)
}

// NeedsTitle reports whether c is due for automatic titling: it still has
// the default title, at least two messages, and ends with a completed reply.
func NeedsTitle(c *Conversation) bool {
	if c == nil || c.Title != DefaultTitle || len(c.Messages) < 2 {
		return false
	}
	last, _ := c.LastMessage()
	return last.Completed()
}

func trailingPlaceholder(draft *Snapshot, conversationID, placeholderID string) (*Conversation, int, bool) {
	c, ok := draft.Conversations[conversationID]
	if !ok || len(c.Messages) == 0 {
		return nil, 0, false
	}
	i := len(c.Messages) - 1
	last := c.Messages[i]
	if last.ID != placeholderID || last.Role != RoleModel || !last.IsLoading {
		return nil, 0, false
	}
	return c, i, true
}

func hasLoading(c *Conversation) bool {
	for _, m := range c.Messages {
		if m.IsLoading {
			return true
		}
	}
	return false
}
