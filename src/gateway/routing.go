package gateway

import (
	"github.com/elee1766/lumen/src/chat"
)

// Tier is the model class a turn runs on
type Tier string

const (
	TierDefault Tier = "default"
	TierPro     Tier = "pro"
)

// Route is the model and tool selection for one chat turn
type Route struct {
	Tier       Tier
	Search     bool
	Maps       bool
	Thinking   bool
	MemoryTool bool
}

// RouteFor selects the route for a turn. A video link, given explicitly or
// found in text, overrides mode.
func RouteFor(text, videoURL string, mode chat.Mode) Route {
	if videoURL == "" {
		videoURL, _ = chat.FindVideoLink(text)
	}
	if videoURL != "" {
		return Route{Tier: TierPro, Search: true}
	}

	switch mode {
	case chat.ModeDeepThinking:
		return Route{Tier: TierPro, Thinking: true, MemoryTool: true}
	case chat.ModeCoding:
		return Route{Tier: TierPro, MemoryTool: true}
	case chat.ModeGoogleMaps:
		return Route{Tier: TierDefault, Maps: true}
	case chat.ModeDeepResearch:
		return Route{Tier: TierPro, Search: true}
	case chat.ModeGoogleSearch:
		return Route{Tier: TierDefault, Search: true}
	default:
		return Route{Tier: TierDefault, MemoryTool: true}
	}
}

// Model resolves the route's tier to a model name
func (c *Client) Model(r Route) string {
	if r.Tier == TierPro {
		return c.names.Pro
	}
	return c.names.Default
}
