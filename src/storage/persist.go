package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/elee1766/lumen/src/chat"
)

// Keys of the three persisted records
const (
	KeyConversations = "lumen.conversations"
	KeyOrder         = "lumen.order"
	KeySettings      = "lumen.settings"
)

// InterruptedText replaces replies that were still streaming when the
// previous session ended
const InterruptedText = "This response was interrupted before it finished."

// Persister loads and saves store state. Loading never fails; corrupt or
// missing records fall back to defaults.
type Persister struct {
	kv     KV
	logger *slog.Logger
	now    func() time.Time
}

// NewPersister creates a persister over kv
func NewPersister(kv KV, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{
		kv:     kv,
		logger: logger.With("component", "persister"),
		now:    time.Now,
	}
}

// Load reads all three records
func (p *Persister) Load(ctx context.Context) chat.State {
	convs := p.loadConversations(ctx)
	return chat.State{
		Conversations: convs,
		Order:         p.loadOrder(ctx, convs),
		Settings:      p.loadSettings(ctx),
	}
}

func (p *Persister) read(ctx context.Context, key string) []byte {
	raw, err := p.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.Warn("failed to read record, using defaults", "key", key, "error", err)
		}
		return nil
	}
	return raw
}

func (p *Persister) loadConversations(ctx context.Context) map[string]*chat.Conversation {
	out := map[string]*chat.Conversation{}
	raw := p.read(ctx, KeyConversations)
	if raw == nil {
		return out
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		p.logger.Warn("conversations record is corrupt, starting empty", "error", err)
		return out
	}
	for id, entry := range entries {
		var c chat.Conversation
		if err := json.Unmarshal(entry, &c); err != nil {
			p.logger.Warn("skipping corrupt conversation", "conversation_id", id, "error", err)
			continue
		}
		out[id] = p.repairConversation(id, &c)
	}
	return out
}

func (p *Persister) repairConversation(id string, c *chat.Conversation) *chat.Conversation {
	c.ID = id
	if c.Title == "" {
		c.Title = chat.DefaultTitle
	}

	msgs := make([]chat.Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m.Role != chat.RoleUser && m.Role != chat.RoleModel {
			continue
		}
		if m.ID == "" {
			m.ID = chat.NewID()
		}
		if m.IsLoading {
			m.IsLoading = false
			m.IsError = true
			if m.Content == "" {
				m.Content = InterruptedText
			}
		}
		msgs = append(msgs, m)
	}
	c.Messages = msgs

	if c.CreatedAt.IsZero() {
		c.CreatedAt = p.now()
		if len(msgs) > 0 && !msgs[0].Timestamp.IsZero() {
			c.CreatedAt = msgs[0].Timestamp
		}
	}
	return c
}

func (p *Persister) loadOrder(ctx context.Context, convs map[string]*chat.Conversation) []string {
	var stored []string
	if raw := p.read(ctx, KeyOrder); raw != nil {
		if err := json.Unmarshal(raw, &stored); err != nil {
			p.logger.Warn("order record is corrupt, rebuilding", "error", err)
			stored = nil
		}
	}

	seen := make(map[string]bool, len(convs))
	order := make([]string, 0, len(convs))
	for _, id := range stored {
		if _, ok := convs[id]; ok && !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}

	var missing []*chat.Conversation
	for id, c := range convs {
		if !seen[id] {
			missing = append(missing, c)
		}
	}
	slices.SortFunc(missing, func(a, b *chat.Conversation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for _, c := range missing {
		order = append(order, c.ID)
	}
	return order
}

func (p *Persister) loadSettings(ctx context.Context) chat.Settings {
	settings := chat.DefaultSettings()
	raw := p.read(ctx, KeySettings)
	if raw == nil {
		return settings
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		p.logger.Warn("settings record is corrupt, using defaults", "error", err)
		return settings
	}

	decode := func(name string, dst any) {
		v, ok := fields[name]
		if !ok {
			return
		}
		if err := json.Unmarshal(v, dst); err != nil {
			p.logger.Warn("ignoring corrupt setting", "field", name, "error", err)
		}
	}
	decode("selectedToneId", &settings.SelectedToneID)
	decode("customTones", &settings.CustomTones)
	decode("memory", &settings.Memory)
	decode("outputLength", &settings.OutputLength)
	return settings.Normalize()
}

// SaveConversations writes the conversations record
func (p *Persister) SaveConversations(ctx context.Context, convs map[string]*chat.Conversation) error {
	return p.write(ctx, KeyConversations, convs)
}

// SaveOrder writes the order record
func (p *Persister) SaveOrder(ctx context.Context, order []string) error {
	return p.write(ctx, KeyOrder, order)
}

// SaveSettings writes the settings record
func (p *Persister) SaveSettings(ctx context.Context, settings chat.Settings) error {
	return p.write(ctx, KeySettings, settings)
}

// SaveChanged writes the records of next that differ from prev. A nil prev
// writes everything.
func (p *Persister) SaveChanged(ctx context.Context, prev, next *chat.Snapshot) error {
	var errs []error
	if prev == nil || !sameConversations(prev.Conversations, next.Conversations) {
		errs = append(errs, p.SaveConversations(ctx, next.Conversations))
	}
	if prev == nil || !slices.Equal(prev.Order, next.Order) {
		errs = append(errs, p.SaveOrder(ctx, next.Order))
	}
	if prev == nil || !sameSettings(prev.Settings, next.Settings) {
		errs = append(errs, p.SaveSettings(ctx, next.Settings))
	}
	return errors.Join(errs...)
}

func (p *Persister) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := p.kv.Set(ctx, key, data); err != nil {
		return err
	}
	p.logger.Debug("record saved", "key", key, "bytes", len(data))
	return nil
}

// sameConversations compares by reference, relying on copy-on-write snapshots
func sameConversations(a, b map[string]*chat.Conversation) bool {
	if len(a) != len(b) {
		return false
	}
	for id, c := range a {
		if b[id] != c {
			return false
		}
	}
	return true
}

func sameSettings(a, b chat.Settings) bool {
	return a.SelectedToneID == b.SelectedToneID &&
		a.Memory == b.Memory &&
		a.OutputLength == b.OutputLength &&
		slices.Equal(a.CustomTones, b.CustomTones)
}
