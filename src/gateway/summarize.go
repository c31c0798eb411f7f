package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/elee1766/lumen/src/chat"
	"google.golang.org/genai"
)

const titlePrompt = "Write a short title (at most six words) for the conversation below. Reply with the title only, no quotes or punctuation at the end."

// SummarizeTitle asks the title model for a short conversation title. It
// never fails: any error or empty reply yields chat.DefaultTitle.
func (c *Client) SummarizeTitle(ctx context.Context, messages []chat.Message) string {
	var transcript strings.Builder
	for _, m := range messages {
		if m.IsError || m.IsLoading || strings.TrimSpace(m.Content) == "" {
			continue
		}
		transcript.WriteString(string(m.Role))
		transcript.WriteString(": ")
		transcript.WriteString(truncate(m.Content, 1000))
		transcript.WriteString("\n")
	}
	if transcript.Len() == 0 {
		return chat.DefaultTitle
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(titlePrompt+"\n\n"+transcript.String(), genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, c.names.Title, contents, nil)
	if err != nil {
		c.logger.Warn("title summarization failed", "model", c.names.Title, "error", err)
		return chat.DefaultTitle
	}
	title := cleanTitle(responseText(resp))
	if title == "" {
		return chat.DefaultTitle
	}
	return title
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				b.WriteString(part.Text)
			}
		}
		break
	}
	return b.String()
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "Title:")
	s = strings.Trim(strings.TrimSpace(s), "\"'`*#.:; ")
	return truncate(s, 60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
