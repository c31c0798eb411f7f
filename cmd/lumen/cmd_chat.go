package main

import (
	"context"
	"fmt"

	"github.com/elee1766/lumen/src/app"
	"github.com/elee1766/lumen/src/executor"
	"github.com/elee1766/lumen/src/tui"
)

// ChatCmd starts the interactive chat
type ChatCmd struct {
	Conversation string `short:"C" help:"Open the conversation with this id"`
	New          bool   `short:"n" help:"Start in a new conversation"`
	Style        string `default:"dark" enum:"dark,light,notty,ascii,dracula,pink,tokyo-night" help:"Markdown style"`
	NoAutoTitle  bool   `help:"Do not title conversations automatically"`
}

// Run executes the chat command
func (c *ChatCmd) Run(ctx context.Context, cli *CLI) error {
	mgr, err := loadConfig(cli)
	if err != nil {
		return err
	}
	cfg := mgr.GetConfig()
	logger, closeLog := createTUILogger(cfg, cli.LogLevel)
	defer closeLog()

	a, err := app.New(ctx, app.AppConfig{
		Config:           cfg,
		Logger:           logger,
		DisableAutoTitle: c.NoAutoTitle,
	})
	if err != nil {
		return err
	}
	defer closeApp(a)

	switch {
	case c.New:
		a.Store.CreateConversation()
	case c.Conversation != "":
		if _, ok := a.Store.Snapshot().Conversation(c.Conversation); !ok {
			return fmt.Errorf("conversation %s: %w", c.Conversation, executor.ErrConversationNotFound)
		}
		a.Store.SelectConversation(c.Conversation)
	}

	return tui.Run(ctx, tui.Config{
		Store:        a.Store,
		Runner:       a.Executor,
		Composer:     a.NewComposer(),
		Preview:      func() (tui.Publisher, error) { return a.Preview() },
		ImageOptions: a.DefaultImageOptions(),
		ModelName:    cfg.Models.Default,
		GlamourStyle: c.Style,
		Logger:       logger,
	})
}
