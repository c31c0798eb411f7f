package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/elee1766/lumen/src/app"
	"github.com/elee1766/lumen/src/config"
	"github.com/elee1766/lumen/src/executor"
)

// loadConfig loads the configuration from the --config path or the
// default locations, then applies CLI overrides
func loadConfig(cli *CLI) (*config.Manager, error) {
	mgr, err := config.NewManager(cli.ConfigFile)
	if err != nil {
		return nil, err
	}
	overrideConfigFromCLI(mgr.GetConfig(), cli)
	return mgr, nil
}

// overrideConfigFromCLI overrides configuration values with CLI flags
func overrideConfigFromCLI(cfg *config.Config, cli *CLI) {
	if cli.APIKey != "" {
		cfg.API.APIKey = cli.APIKey
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
}

type openOptions struct {
	offline     bool
	noAutoTitle bool
	sink        executor.EventSink
	logger      *slog.Logger
}

// openApp opens the application state for a CLI command
func openApp(ctx context.Context, cfg *config.Config, opts openOptions) (*app.App, error) {
	if opts.logger == nil {
		opts.logger = createCLILogger(cfg.Logging.Level)
	}
	return app.New(ctx, app.AppConfig{
		Config:           cfg,
		Logger:           opts.logger,
		EventSink:        opts.sink,
		Offline:          opts.offline,
		DisableAutoTitle: opts.noAutoTitle,
	})
}

// closeApp flushes state with a bounded wait. The caller's context may
// already be cancelled.
func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		a.Logger.Error("failed to close", "error", err)
	}
}

// maskAPIKey masks an API key for display
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
