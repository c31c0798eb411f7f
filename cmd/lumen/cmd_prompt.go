package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/composer"
	"github.com/elee1766/lumen/src/config"
	"github.com/elee1766/lumen/src/executor"
)

// PromptCmd represents the single prompt command
type PromptCmd struct {
	Text         []string `arg:"" optional:"" help:"The prompt text. Read from stdin when omitted"`
	File         string   `short:"f" type:"existingfile" help:"Load prompt from file"`
	Mode         string   `short:"m" default:"chat" help:"Mode: chat, deep_thinking, coding, google_maps, deep_research, google_search, image_generation, image_edit"`
	Attach       string   `short:"a" type:"existingfile" help:"Attach an image or video file"`
	AspectRatio  string   `help:"Aspect ratio for image generation"`
	ImageModel   string   `help:"Model for image generation"`
	Conversation string   `short:"C" help:"Continue the conversation with this id"`
	Resume       bool     `short:"r" help:"Continue the most recent conversation"`
	NoStream     bool     `help:"Print the reply once it is complete"`
	Raw          bool     `help:"Print only the reply text"`
	Sources      bool     `default:"true" negatable:"" help:"List grounding sources"`
	ImageDir     string   `type:"path" help:"Where returned images are saved"`
	NoAutoTitle  bool     `help:"Do not title new conversations"`
}

// Run executes the prompt command
func (p *PromptCmd) Run(ctx context.Context, cli *CLI) error {
	text, err := p.promptText(os.Stdin)
	if err != nil {
		return err
	}
	mode, ok := chat.ParseMode(p.Mode)
	if !ok {
		return fmt.Errorf("%w: %q", composer.ErrUnknownMode, p.Mode)
	}
	if p.Attach != "" && mode != chat.ModeDefault && mode != chat.ModeImageEdit {
		return fmt.Errorf("invalid flags: --attach cannot be combined with mode %s", mode)
	}

	mgr, err := loadConfig(cli)
	if err != nil {
		return err
	}
	cfg := mgr.GetConfig()
	logger := createCLILogger(cfg.Logging.Level)

	imageDir := p.ImageDir
	if imageDir == "" {
		imageDir = config.DefaultImageDir()
	}
	sink := executor.NewChannelEventSink(64, logger, executor.NewConsoleEventProcessor(executor.ConsoleProcessorConfig{
		Out:         os.Stdout,
		StreamMode:  !p.NoStream,
		RawMode:     p.Raw,
		ShowSources: p.Sources,
		ImageSaver: func(id string, data []byte, mimeType string) (string, error) {
			return saveImage(imageDir, id, data, mimeType)
		},
	}))
	defer sink.Close()

	a, err := openApp(ctx, cfg, openOptions{sink: sink, logger: logger, noAutoTitle: p.NoAutoTitle})
	if err != nil {
		return err
	}
	defer closeApp(a)

	comp := a.NewComposer()
	if p.Attach != "" {
		if err := comp.Attach(ctx, p.Attach); err != nil {
			return err
		}
	}
	if mode != chat.ModeDefault {
		opts := a.DefaultImageOptions()
		if p.AspectRatio != "" {
			opts.AspectRatio = p.AspectRatio
		}
		if p.ImageModel != "" {
			opts.Model = p.ImageModel
		}
		if err := comp.SelectMode(mode, &opts); err != nil {
			return err
		}
	}
	req, err := comp.Build(text)
	if err != nil {
		return err
	}

	id := p.Conversation
	if id == "" && p.Resume {
		if order := a.Store.Snapshot().Order; len(order) > 0 {
			id = order[0]
		}
	}
	if id != "" {
		if _, ok := a.Store.Snapshot().Conversation(id); !ok {
			return fmt.Errorf("conversation %s: %w", id, executor.ErrConversationNotFound)
		}
	}

	res, err := a.Executor.Send(ctx, id, req)
	if !p.Raw && res.ConversationID != "" {
		logger.Info("turn finished", "conversation_id", res.ConversationID, "model", res.Model, "state", res.State)
	}
	return err
}

// promptText joins the arguments, the prompt file and piped stdin
func (p *PromptCmd) promptText(stdin *os.File) (string, error) {
	parts := []string{}
	if p.File != "" {
		data, err := os.ReadFile(p.File)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file: %w", err)
		}
		parts = append(parts, string(data))
	}
	if len(p.Text) > 0 {
		parts = append(parts, strings.Join(p.Text, " "))
	}
	if len(parts) == 0 && stdin != nil {
		if info, err := stdin.Stat(); err == nil && info.Mode()&os.ModeCharDevice == 0 {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return "", fmt.Errorf("failed to read stdin: %w", err)
			}
			parts = append(parts, string(data))
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), nil
}
