package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"

	"github.com/elee1766/lumen/src/app"
	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/executor"
)

// ConversationsCmd manages saved conversations
type ConversationsCmd struct {
	List   ConversationsListCmd   `cmd:"" default:"1" help:"List conversations, newest first"`
	Show   ConversationsShowCmd   `cmd:"" help:"Print a conversation"`
	Rename ConversationsRenameCmd `cmd:"" help:"Rename a conversation"`
	Delete ConversationsDeleteCmd `cmd:"" aliases:"rm" help:"Delete a conversation"`
}

// openOffline opens local state only, no API key is needed
func openOffline(ctx context.Context, cli *CLI) (*app.App, error) {
	mgr, err := loadConfig(cli)
	if err != nil {
		return nil, err
	}
	return openApp(ctx, mgr.GetConfig(), openOptions{offline: true})
}

func findConversation(a *app.App, id string) (*chat.Conversation, error) {
	c, ok := a.Store.Snapshot().Conversation(id)
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, executor.ErrConversationNotFound)
	}
	return c, nil
}

// ConversationsListCmd lists conversations
type ConversationsListCmd struct {
	Format string `help:"Output format (table, json)" enum:"table,json" default:"table"`
}

type conversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func summarize(c *chat.Conversation) conversationSummary {
	s := conversationSummary{
		ID:        c.ID,
		Title:     c.Title,
		Messages:  len(c.Messages),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.CreatedAt,
	}
	if last, ok := c.LastMessage(); ok && !last.Timestamp.IsZero() {
		s.UpdatedAt = last.Timestamp
	}
	return s
}

// Run executes the conversations list command
func (c *ConversationsListCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	convs := a.Store.Snapshot().Ordered()
	summaries := make([]conversationSummary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, summarize(conv))
	}

	if c.Format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	if len(summaries) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tUPDATED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Title, s.Messages, humanize.Time(s.UpdatedAt))
	}
	return w.Flush()
}

// ConversationsShowCmd prints a conversation
type ConversationsShowCmd struct {
	ID    string `arg:"" help:"Conversation id"`
	Raw   bool   `help:"Print markdown without rendering"`
	Style string `default:"auto" help:"Markdown style"`
}

// Run executes the conversations show command
func (c *ConversationsShowCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	conv, err := findConversation(a, c.ID)
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.Title)
	for _, m := range conv.Messages {
		who := "You"
		if m.Role == chat.RoleModel {
			who = "Gemini"
		}
		fmt.Fprintf(&b, "**%s** · %s\n\n", who, m.Timestamp.Format(time.DateTime))
		if m.VideoURL != "" {
			fmt.Fprintf(&b, "> video: %s\n\n", m.VideoURL)
		}
		b.WriteString(m.Content + "\n\n")
		for _, att := range m.Attachments {
			fmt.Fprintf(&b, "_[%s %s, %s]_\n\n", att.Kind, att.MIMEType, humanize.Bytes(uint64(len(att.Data))))
		}
		for i, src := range m.GroundingSources {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, src.Title, src.URI)
		}
		if len(m.GroundingSources) > 0 {
			b.WriteString("\n")
		}
	}

	if c.Raw {
		fmt.Print(b.String())
		return nil
	}
	var opt glamour.TermRendererOption = glamour.WithAutoStyle()
	if c.Style != "auto" {
		opt = glamour.WithStandardStyle(c.Style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	out, err := r.Render(b.String())
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// ConversationsRenameCmd renames a conversation
type ConversationsRenameCmd struct {
	ID    string   `arg:"" help:"Conversation id"`
	Title []string `arg:"" help:"New title"`
}

// Run executes the conversations rename command
func (c *ConversationsRenameCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if _, err := findConversation(a, c.ID); err != nil {
		return err
	}
	title := strings.TrimSpace(strings.Join(c.Title, " "))
	if title == "" {
		return fmt.Errorf("invalid title: empty")
	}
	a.Store.RenameConversation(c.ID, title)
	return nil
}

// ConversationsDeleteCmd deletes conversations
type ConversationsDeleteCmd struct {
	IDs []string `arg:"" name:"id" help:"Conversation ids"`
}

// Run executes the conversations delete command
func (c *ConversationsDeleteCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	for _, id := range c.IDs {
		if !a.Store.DeleteConversation(id) {
			return fmt.Errorf("conversation %s: %w", id, executor.ErrConversationNotFound)
		}
	}
	return nil
}
