package gateway

import (
	"context"
	"strings"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/geo"
	"google.golang.org/genai"
)

// TurnRequest is one chat turn
type TurnRequest struct {
	Message  chat.Message
	History  []chat.Message
	Settings chat.Settings
	Mode     chat.Mode
	Location *geo.Location
}

// TurnResult summarizes a completed stream
type TurnResult struct {
	Model            string
	GroundingSources []chat.GroundingSource
	FunctionCalls    []FunctionCall
}

// SendChatTurn streams one reply. onFragment receives every text fragment in
// arrival order before SendChatTurn returns. Function calls and citations
// are collected across the whole stream.
func (c *Client) SendChatTurn(ctx context.Context, req TurnRequest, onFragment func(string)) (*TurnResult, error) {
	if strings.TrimSpace(req.Message.Content) == "" && len(req.Message.Attachments) == 0 && req.Message.VideoURL == "" {
		return nil, &PreconditionError{Op: "chat", Err: ErrEmptyPrompt}
	}

	route := RouteFor(req.Message.Content, req.Message.VideoURL, req.Mode)
	model := c.Model(route)
	config, err := c.generateConfig(req, route)
	if err != nil {
		return nil, wrapError("chat", err)
	}
	contents := append(historyContents(req.History), messageContent(req.Message))

	c.logger.Debug("sending chat turn",
		"model", model,
		"mode", req.Mode,
		"search", route.Search,
		"maps", route.Maps,
		"thinking", route.Thinking,
		"history", len(req.History))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := &TurnResult{Model: model}
	sources := newSourceSet()
	for resp, err := range c.models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			c.logger.Error("chat stream failed", "model", model, "error", err)
			return nil, wrapError("chat", err)
		}
		if resp == nil {
			continue
		}
		for _, cand := range resp.Candidates {
			if cand == nil {
				continue
			}
			if cand.Content != nil {
				for _, part := range cand.Content.Parts {
					if part == nil {
						continue
					}
					if part.FunctionCall != nil {
						result.FunctionCalls = append(result.FunctionCalls, FunctionCall{
							ID:   part.FunctionCall.ID,
							Name: part.FunctionCall.Name,
							Args: part.FunctionCall.Args,
						})
					}
					if part.Text != "" && !part.Thought && onFragment != nil {
						onFragment(part.Text)
					}
				}
			}
			sources.addMetadata(cand.GroundingMetadata)
		}
	}

	result.GroundingSources = sources.list()
	c.logger.Debug("chat turn complete",
		"model", model,
		"function_calls", len(result.FunctionCalls),
		"sources", len(result.GroundingSources))
	return result, nil
}

func (c *Client) generateConfig(req TurnRequest, route Route) (*genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction(req.Settings, route), genai.RoleUser),
	}

	if route.Search {
		config.Tools = append(config.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}
	if route.Maps {
		config.Tools = append(config.Tools, &genai.Tool{GoogleMaps: &genai.GoogleMaps{}})
		if req.Location != nil {
			config.ToolConfig = &genai.ToolConfig{
				RetrievalConfig: &genai.RetrievalConfig{
					LatLng: &genai.LatLng{
						Latitude:  genai.Ptr(req.Location.Latitude),
						Longitude: genai.Ptr(req.Location.Longitude),
					},
				},
			}
		}
	}
	if route.MemoryTool {
		decl, err := memoryDeclaration()
		if err != nil {
			return nil, err
		}
		config.Tools = append(config.Tools, &genai.Tool{FunctionDeclarations: []*genai.FunctionDeclaration{decl}})
	}
	if route.Thinking {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(c.thinkingBudget)}
	}
	return config, nil
}

// historyContents converts prior messages, skipping failed and unfinished ones
func historyContents(history []chat.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		if m.IsError || m.IsLoading {
			continue
		}
		content := messageContent(m)
		if len(content.Parts) == 0 {
			continue
		}
		out = append(out, content)
	}
	return out
}

func messageContent(m chat.Message) *genai.Content {
	role := string(genai.RoleUser)
	if m.Role == chat.RoleModel {
		role = string(genai.RoleModel)
	}
	var parts []*genai.Part
	for _, a := range m.Attachments {
		if !a.IsImage() {
			continue
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: a.Data, MIMEType: a.MIMEType}})
	}
	if m.VideoURL != "" && m.Role == chat.RoleUser {
		parts = append(parts, &genai.Part{FileData: &genai.FileData{FileURI: m.VideoURL, MIMEType: "video/*"}})
	}
	if text := strings.TrimSpace(m.Content); text != "" {
		parts = append(parts, &genai.Part{Text: text})
	}
	return &genai.Content{Role: role, Parts: parts}
}

// sourceSet collects citations in first-seen order, unique by URI
type sourceSet struct {
	seen  map[string]struct{}
	items []chat.GroundingSource
}

func newSourceSet() *sourceSet {
	return &sourceSet{seen: map[string]struct{}{}}
}

func (s *sourceSet) add(uri, title string) {
	if uri == "" {
		return
	}
	if _, ok := s.seen[uri]; ok {
		return
	}
	s.seen[uri] = struct{}{}
	s.items = append(s.items, chat.GroundingSource{URI: uri, Title: title})
}

func (s *sourceSet) addMetadata(md *genai.GroundingMetadata) {
	if md == nil {
		return
	}
	for _, chunk := range md.GroundingChunks {
		if chunk == nil {
			continue
		}
		if chunk.Web != nil {
			s.add(chunk.Web.URI, chunk.Web.Title)
		}
		if chunk.Maps != nil {
			s.add(chunk.Maps.URI, chunk.Maps.Title)
		}
	}
}

func (s *sourceSet) list() []chat.GroundingSource {
	return s.items
}
