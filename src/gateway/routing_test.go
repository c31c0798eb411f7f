package gateway

import (
	"testing"

	"github.com/elee1766/lumen/src/chat"
	"github.com/stretchr/testify/assert"
)

func TestRouteFor(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		videoURL string
		mode     chat.Mode
		want     Route
	}{
		{"default", "hi", "", chat.ModeDefault, Route{Tier: TierDefault, MemoryTool: true}},
		{"deep thinking", "hi", "", chat.ModeDeepThinking, Route{Tier: TierPro, Thinking: true, MemoryTool: true}},
		{"coding", "hi", "", chat.ModeCoding, Route{Tier: TierPro, MemoryTool: true}},
		{"maps", "hi", "", chat.ModeGoogleMaps, Route{Tier: TierDefault, Maps: true}},
		{"deep research", "hi", "", chat.ModeDeepResearch, Route{Tier: TierPro, Search: true}},
		{"search", "hi", "", chat.ModeGoogleSearch, Route{Tier: TierDefault, Search: true}},
		{"link in text overrides search", "watch https://youtu.be/dQw4w9WgXcQ", "", chat.ModeGoogleSearch, Route{Tier: TierPro, Search: true}},
		{"link overrides coding", "explain", "https://youtu.be/dQw4w9WgXcQ", chat.ModeCoding, Route{Tier: TierPro, Search: true}},
		{"unknown mode", "hi", "", chat.Mode("bogus"), Route{Tier: TierDefault, MemoryTool: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RouteFor(tt.text, tt.videoURL, tt.mode))
		})
	}
}

func TestModelForRoute(t *testing.T) {
	c := NewWithModels(&fakeModels{}, Config{})
	assert.Equal(t, DefaultModels().Pro, c.Model(RouteFor("https://youtu.be/dQw4w9WgXcQ", "", chat.ModeGoogleSearch)))
	assert.Equal(t, DefaultModels().Default, c.Model(RouteFor("hi", "", chat.ModeGoogleSearch)))
}
