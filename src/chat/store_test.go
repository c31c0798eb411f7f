package chat

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	var n int
	return NewStore(StoreConfig{
		Now: func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
}

func startTurn(t *testing.T, s *Store, convID string) string {
	t.Helper()
	require.True(t, s.AppendUserMessage(convID, Message{Content: "hello"}))
	placeholder := Message{ID: NewID()}
	require.True(t, s.AppendModelPlaceholder(convID, placeholder))
	return placeholder.ID
}

func TestCreateConversation(t *testing.T) {
	s := newTestStore()
	first := s.CreateConversation()
	second := s.CreateConversation()

	snap := s.Snapshot()
	assert.Equal(t, []string{second, first}, snap.Order)
	assert.Equal(t, second, snap.ActiveID)
	c, ok := snap.Conversation(first)
	require.True(t, ok)
	assert.Equal(t, DefaultTitle, c.Title)
	assert.Empty(t, c.Messages)
}

func TestSelectConversation(t *testing.T) {
	s := newTestStore()
	first := s.CreateConversation()
	s.CreateConversation()

	assert.True(t, s.SelectConversation(first))
	assert.Equal(t, first, s.Snapshot().ActiveID)

	before := s.Snapshot()
	assert.False(t, s.SelectConversation("missing"))
	assert.Same(t, before, s.Snapshot())
}

func TestDeleteConversation(t *testing.T) {
	tests := []struct {
		name       string
		create     int
		deleteIdx  int
		selectIdx  int
		wantActive func(ids []string) string
	}{
		{
			name:      "delete active activates new head",
			create:    3,
			deleteIdx: 2,
			selectIdx: 2,
			wantActive: func(ids []string) string {
				return ids[1]
			},
		},
		{
			name:      "delete inactive keeps active",
			create:    2,
			deleteIdx: 0,
			selectIdx: 1,
			wantActive: func(ids []string) string {
				return ids[1]
			},
		},
		{
			name:      "delete last leaves nothing active",
			create:    1,
			deleteIdx: 0,
			selectIdx: 0,
			wantActive: func([]string) string {
				return ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			var ids []string
			for i := 0; i < tt.create; i++ {
				ids = append(ids, s.CreateConversation())
			}
			s.SelectConversation(ids[tt.selectIdx])

			require.True(t, s.DeleteConversation(ids[tt.deleteIdx]))
			snap := s.Snapshot()
			assert.NotContains(t, snap.Order, ids[tt.deleteIdx])
			_, ok := snap.Conversation(ids[tt.deleteIdx])
			assert.False(t, ok)
			assert.Equal(t, tt.wantActive(ids), snap.ActiveID)
		})
	}
}

func TestRenameConversation(t *testing.T) {
	s := newTestStore()
	id := s.CreateConversation()

	assert.True(t, s.RenameConversation(id, "Trip planning"))
	c, _ := s.Snapshot().Conversation(id)
	assert.Equal(t, "Trip planning", c.Title)

	before := s.Snapshot()
	assert.False(t, s.RenameConversation("missing", "x"))
	assert.Same(t, before, s.Snapshot())
}

func TestAppendGrowsByTwoInOrder(t *testing.T) {
	s := newTestStore()
	id := s.CreateConversation()

	for turn := 1; turn <= 3; turn++ {
		placeholderID := startTurn(t, s, id)
		c, _ := s.Snapshot().Conversation(id)
		require.Len(t, c.Messages, turn*2)
		assert.Equal(t, RoleUser, c.Messages[len(c.Messages)-2].Role)
		assert.Equal(t, RoleModel, c.Messages[len(c.Messages)-1].Role)
		assert.True(t, c.Messages[len(c.Messages)-1].IsLoading)
		require.True(t, s.FinalizeModelMessage(id, placeholderID, MessagePatch{}))
	}
}

func TestAppendToMissingConversationIsDropped(t *testing.T) {
	s := newTestStore()
	before := s.Snapshot()
	assert.False(t, s.AppendUserMessage("missing", Message{Content: "hi"}))
	assert.False(t, s.AppendModelPlaceholder("missing", Message{}))
	assert.Same(t, before, s.Snapshot())
}

func TestSecondPlaceholderRejected(t *testing.T) {
	s := newTestStore()
	id := s.CreateConversation()
	startTurn(t, s, id)

	assert.True(t, s.Busy(id))
	assert.False(t, s.AppendModelPlaceholder(id, Message{}))
}

func TestMergeStreamChunkAssociative(t *testing.T) {
	merge := func(fragments ...string) string {
		s := newTestStore()
		id := s.CreateConversation()
		placeholderID := startTurn(t, s, id)
		for _, f := range fragments {
			s.MergeStreamChunk(id, placeholderID, f)
		}
		c, _ := s.Snapshot().Conversation(id)
		last, _ := c.LastMessage()
		assert.True(t, last.IsLoading)
		return last.Content
	}

	assert.Equal(t, merge("ab", "c"), merge("a", "bc"))
	assert.Equal(t, "abc", merge("a", "", "b", "", "c"))
}

func TestMergeStreamChunkEmptyIsNoop(t *testing.T) {
	s := newTestStore()
	id := s.CreateConversation()
	placeholderID := startTurn(t, s, id)

	before := s.Snapshot()
	assert.False(t, s.MergeStreamChunk(id, placeholderID, ""))
	assert.Same(t, before, s.Snapshot())
}

func TestMergeStreamChunkOrphaned(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, s *Store, convID, placeholderID string) (string, string)
	}{
		{
			name: "placeholder no longer trailing",
			setup: func(t *testing.T, s *Store, convID, placeholderID string) (string, string) {
				require.True(t, s.FinalizeModelMessage(convID, placeholderID, MessagePatch{}))
				startTurn(t, s, convID)
				return convID, placeholderID
			},
		},
		{
			name: "conversation deleted",
			setup: func(t *testing.T, s *Store, convID, placeholderID string) (string, string) {
				require.True(t, s.DeleteConversation(convID))
				return convID, placeholderID
			},
		},
		{
			name: "placeholder already finalized",
			setup: func(t *testing.T, s *Store, convID, placeholderID string) (string, string) {
				require.True(t, s.FinalizeModelMessage(convID, placeholderID, MessagePatch{}))
				return convID, placeholderID
			},
		},
		{
			name: "unknown placeholder",
			setup: func(t *testing.T, s *Store, convID, _ string) (string, string) {
				return convID, "other"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			id := s.CreateConversation()
			placeholderID := startTurn(t, s, id)
			convID, target := tt.setup(t, s, id, placeholderID)

			before := s.Snapshot()
			assert.False(t, s.MergeStreamChunk(convID, target, "late"))
			assert.Same(t, before, s.Snapshot())
		})
	}
}

func TestFinalizeModelMessage(t *testing.T) {
	s := newTestStore()
	id := s.CreateConversation()
	placeholderID := startTurn(t, s, id)
	s.MergeStreamChunk(id, placeholderID, "streamed")

	sources := []GroundingSource{{URI: "https://example.com", Title: "Example"}}
	require.True(t, s.FinalizeModelMessage(id, placeholderID, MessagePatch{GroundingSources: sources}))

	c, _ := s.Snapshot().Conversation(id)
	last, _ := c.LastMessage()
	assert.Equal(t, "streamed", last.Content)
	assert.False(t, last.IsLoading)
	assert.False(t, last.IsError)
	assert.Equal(t, sources, last.GroundingSources)

	assert.False(t, s.FinalizeModelMessage(id, placeholderID, MessagePatch{}))
}

func TestFinalizeWithErrorReplacesContent(t *testing.T) {
	s := newTestStore()
	id := s.CreateConversation()
	placeholderID := startTurn(t, s, id)
	s.MergeStreamChunk(id, placeholderID, "partial")

	text := "quota exceeded"
	require.True(t, s.FinalizeModelMessage(id, placeholderID, MessagePatch{Content: &text, IsError: true}))

	c, _ := s.Snapshot().Conversation(id)
	last, _ := c.LastMessage()
	assert.Equal(t, "quota exceeded", last.Content)
	assert.True(t, last.IsError)
	assert.False(t, last.IsLoading)
	assert.False(t, s.Busy(id))
}

func TestCopyOnWrite(t *testing.T) {
	s := newTestStore()
	a := s.CreateConversation()
	b := s.CreateConversation()
	placeholderID := startTurn(t, s, a)

	before := s.Snapshot()
	beforeA := before.Conversations[a]
	beforeB := before.Conversations[b]
	beforeContent := beforeA.Messages[1].Content

	require.True(t, s.MergeStreamChunk(a, placeholderID, "x"))
	after := s.Snapshot()

	assert.NotSame(t, before, after)
	assert.NotSame(t, beforeA, after.Conversations[a])
	assert.Same(t, beforeB, after.Conversations[b])
	assert.Equal(t, beforeContent, beforeA.Messages[1].Content)
	assert.Greater(t, after.Version, before.Version)
}

func TestSubscribe(t *testing.T) {
	s := newTestStore()
	var got []uint64
	cancel := s.Subscribe(func(snap *Snapshot) {
		got = append(got, snap.Version)
	})

	s.CreateConversation()
	s.SelectConversation("missing")
	s.CreateConversation()
	cancel()
	s.CreateConversation()

	assert.Equal(t, []uint64{1, 2}, got)
}

func TestNeedsTitle(t *testing.T) {
	done := Message{Role: RoleModel}
	tests := []struct {
		name string
		conv *Conversation
		want bool
	}{
		{"nil", nil, false},
		{"completed reply", &Conversation{Title: DefaultTitle, Messages: []Message{{Role: RoleUser}, done}}, true},
		{"already titled", &Conversation{Title: "Named", Messages: []Message{{Role: RoleUser}, done}}, false},
		{"one message", &Conversation{Title: DefaultTitle, Messages: []Message{done}}, false},
		{"still loading", &Conversation{Title: DefaultTitle, Messages: []Message{{Role: RoleUser}, {Role: RoleModel, IsLoading: true}}}, false},
		{"error reply", &Conversation{Title: DefaultTitle, Messages: []Message{{Role: RoleUser}, {Role: RoleModel, IsError: true}}}, false},
		{"ends with user", &Conversation{Title: DefaultTitle, Messages: []Message{done, {Role: RoleUser}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsTitle(tt.conv))
		})
	}
}

func TestLoad(t *testing.T) {
	s := newTestStore()
	c := &Conversation{ID: "c1", Title: "Loaded", Messages: []Message{}}
	s.Load(State{
		Conversations: map[string]*Conversation{"c1": c},
		Order:         []string{"ghost", "c1"},
		Settings:      Settings{SelectedToneID: "missing"},
	})

	snap := s.Snapshot()
	assert.Equal(t, []string{"c1"}, snap.Order)
	assert.Equal(t, "c1", snap.ActiveID)
	assert.Equal(t, DefaultToneID, snap.Settings.SelectedToneID)
	assert.Equal(t, OutputAuto, snap.Settings.OutputLength)
}

func TestConcurrentStreamsIntoSeparateConversations(t *testing.T) {
	s := NewStore(StoreConfig{})
	const n = 8
	ids := make([]string, n)
	placeholders := make([]string, n)
	for i := range ids {
		ids[i] = s.CreateConversation()
		placeholders[i] = startTurn(t, s, ids[i])
	}

	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.MergeStreamChunk(ids[i], placeholders[i], "x")
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		c, _ := s.Snapshot().Conversation(id)
		last, _ := c.LastMessage()
		assert.Len(t, last.Content, 50)
	}
}
