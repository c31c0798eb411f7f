package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/theme"
)

// renderer turns conversations into terminal text. Completed model replies
// are rendered as markdown once and cached by message id.
type renderer struct {
	style  string
	width  int
	md     *glamour.TermRenderer
	cache  map[string]string
	styles theme.Styles
}

func newRenderer(style string) *renderer {
	return &renderer{style: style, cache: map[string]string{}, styles: theme.Current()}
}

func (r *renderer) setWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width && r.md != nil {
		return
	}
	r.width = width
	r.cache = map[string]string{}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		r.md = nil
		return
	}
	r.md = md
}

func (r *renderer) markdown(id, content string) string {
	if out, ok := r.cache[id]; ok {
		return out
	}
	out := wordwrap.String(content, r.width)
	if r.md != nil {
		if rendered, err := r.md.Render(content); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	r.cache[id] = out
	return out
}

// conversation renders every message of c. spin is shown next to a reply
// that is still streaming.
func (r *renderer) conversation(c *chat.Conversation, spin string) string {
	if c == nil || len(c.Messages) == 0 {
		return r.styles.Muted.Render(wordwrap.String(
			"Start typing to chat. Press tab to pick a mode, ctrl+s for settings, /help for commands.", r.width))
	}
	blocks := make([]string, 0, len(c.Messages))
	for _, m := range c.Messages {
		blocks = append(blocks, r.message(m, spin))
	}
	return strings.Join(blocks, "\n\n")
}

func (r *renderer) message(m chat.Message, spin string) string {
	var b strings.Builder

	header := r.styles.User.Render("You")
	if m.Role == chat.RoleModel {
		header = r.styles.Model.Render("Gemini")
	}
	if !m.Timestamp.IsZero() {
		header += " " + r.styles.Muted.Render(m.Timestamp.Format("15:04"))
	}
	if m.IsLoading {
		header += " " + spin
	}
	b.WriteString(header)
	b.WriteString("\n")

	switch {
	case m.IsError:
		b.WriteString(r.styles.Error.Render(wordwrap.String(m.Content, r.width)))
	case m.Role == chat.RoleModel && !m.IsLoading:
		b.WriteString(r.markdown(m.ID, m.Content))
	default:
		b.WriteString(wordwrap.String(m.Content, r.width))
	}

	if m.VideoURL != "" {
		b.WriteString("\n" + r.styles.Muted.Render("▶ "+m.VideoURL))
	}
	for _, a := range m.Attachments {
		b.WriteString("\n" + r.styles.Muted.Render(describeAttachment(a)))
	}
	if len(m.GroundingSources) > 0 {
		b.WriteString("\n" + r.styles.Muted.Render("Sources:"))
		for i, src := range m.GroundingSources {
			line := fmt.Sprintf("  %d. %s", i+1, sourceLabel(src))
			b.WriteString("\n" + r.styles.Muted.Render(ansi.Truncate(line, r.width, "…")))
		}
	}
	return b.String()
}

func describeAttachment(a chat.Attachment) string {
	kind := "image"
	if a.Kind == chat.AttachmentVideoFrame {
		kind = "video frame"
	}
	name := a.Name
	if name == "" {
		name = a.MIMEType
	}
	return fmt.Sprintf("[%s: %s, %s]", kind, name, humanize.Bytes(uint64(len(a.Data))))
}

func sourceLabel(src chat.GroundingSource) string {
	if src.Title == "" || src.Title == src.URI {
		return src.URI
	}
	return src.Title + " " + src.URI
}

// sidebar renders the conversation list
func (r *renderer) sidebar(snap *chat.Snapshot, width, height int, spin string) string {
	lines := []string{r.styles.Title.Render("Conversations"), ""}
	for _, c := range snap.Ordered() {
		title := c.Title
		if last, ok := c.LastMessage(); ok && last.IsLoading {
			title = spin + " " + title
		}
		title = ansi.Truncate(title, width-2, "…")
		if c.ID == snap.ActiveID {
			title = r.styles.Selected.Render(title)
		}
		lines = append(lines, title)
		if len(lines) >= height {
			break
		}
	}
	if len(snap.Order) == 0 {
		lines = append(lines, r.styles.Muted.Render("none yet"))
	}
	return strings.Join(lines, "\n")
}
