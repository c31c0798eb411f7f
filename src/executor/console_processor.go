package executor

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConsoleProcessorConfig configures the console event processor
type ConsoleProcessorConfig struct {
	Out io.Writer
	// StreamMode prints fragments as they arrive instead of the final reply
	StreamMode bool
	// RawMode prints only reply text
	RawMode     bool
	ShowSources bool
	// ImageSaver, when set, stores returned images and reports where
	ImageSaver func(msg string, data []byte, mimeType string) (string, error)
}

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// ConsoleEventProcessor renders turn events to a terminal
type ConsoleEventProcessor struct {
	config   ConsoleProcessorConfig
	streamed bool
}

// NewConsoleEventProcessor creates a new console event processor
func NewConsoleEventProcessor(config ConsoleProcessorConfig) *ConsoleEventProcessor {
	if config.Out == nil {
		config.Out = os.Stdout
	}
	return &ConsoleEventProcessor{config: config}
}

// Process handles a single event
func (p *ConsoleEventProcessor) Process(event ConversationEvent) error {
	switch e := event.(type) {
	case *TurnStartEvent:
		p.streamed = false

	case *TurnChunkEvent:
		if p.config.StreamMode {
			p.streamed = true
			_, err := fmt.Fprint(p.config.Out, e.Content)
			return err
		}

	case *TurnEndEvent:
		return p.processTurnEnd(e)

	case *TurnErrorEvent:
		if p.config.RawMode {
			return nil
		}
		_, err := fmt.Fprintln(p.config.Out, errorStyle.Render("✗ "+e.Text))
		return err

	case *MemoryUpdatedEvent:
		if !p.config.RawMode {
			_, err := fmt.Fprintln(p.config.Out, noticeStyle.Render("remembered: "+e.Fact))
			return err
		}

	case *TitleUpdatedEvent:
		if !p.config.RawMode {
			_, err := fmt.Fprintln(p.config.Out, noticeStyle.Render("title: "+e.Title))
			return err
		}
	}
	return nil
}

func (p *ConsoleEventProcessor) processTurnEnd(e *TurnEndEvent) error {
	out := p.config.Out
	if !p.streamed {
		fmt.Fprint(out, e.Message.Content)
	}
	if e.Message.Content != "" {
		fmt.Fprintln(out)
	}

	for _, a := range e.Message.Attachments {
		if p.config.ImageSaver == nil {
			fmt.Fprintln(out, noticeStyle.Render(fmt.Sprintf("[%s, %d bytes]", a.MIMEType, len(a.Data))))
			continue
		}
		path, err := p.config.ImageSaver(e.MessageID, a.Data, a.MIMEType)
		if err != nil {
			return fmt.Errorf("failed to save image: %w", err)
		}
		fmt.Fprintln(out, noticeStyle.Render("image saved to "+path))
	}

	if p.config.ShowSources && !p.config.RawMode && len(e.Message.GroundingSources) > 0 {
		var b strings.Builder
		b.WriteString("sources:\n")
		for i, src := range e.Message.GroundingSources {
			title := src.Title
			if title == "" {
				title = src.URI
			}
			fmt.Fprintf(&b, "  [%d] %s %s\n", i+1, title, src.URI)
		}
		fmt.Fprint(out, noticeStyle.Render(b.String()))
		fmt.Fprintln(out)
	}
	return nil
}

// Close cleans up resources
func (p *ConsoleEventProcessor) Close() error {
	return nil
}
