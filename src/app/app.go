package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/composer"
	"github.com/elee1766/lumen/src/config"
	"github.com/elee1766/lumen/src/executor"
	"github.com/elee1766/lumen/src/fs"
	"github.com/elee1766/lumen/src/gateway"
	"github.com/elee1766/lumen/src/geo"
	"github.com/elee1766/lumen/src/preview"
	"github.com/elee1766/lumen/src/storage"
)

// App represents the main application with all services
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	KV        storage.KV
	Persister *storage.Persister
	Store     *chat.Store
	AutoSaver *storage.AutoSaver

	// Set unless the app was opened offline
	Gateway  *gateway.Client
	Locator  *geo.Once
	Executor *executor.Service

	preview     *preview.Server
	previewOnce sync.Once
	previewErr  error
}

// AppConfig holds configuration for creating a new App instance
type AppConfig struct {
	Config *config.Config
	Logger *slog.Logger

	// EventSink receives turn events
	EventSink executor.EventSink

	// Offline opens only local state, no API key is needed
	Offline bool

	// DisableAutoTitle turns off automatic conversation titles
	DisableAutoTitle bool
}

// New creates a new App instance with all services initialized
func New(ctx context.Context, cfg AppConfig) (*App, error) {
	if cfg.Config == nil {
		cfg.Config = config.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := cfg.Config
	logger := cfg.Logger

	kv, err := storage.OpenKV(storage.Backend(c.Storage.Backend), c.StoragePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	persister := storage.NewPersister(kv, logger)
	store := chat.NewStore(chat.StoreConfig{Logger: logger})
	store.Load(persister.Load(ctx))

	a := &App{
		Config:    c,
		Logger:    logger,
		KV:        kv,
		Persister: persister,
		Store:     store,
		AutoSaver: storage.NewAutoSaver(persister, store, c.Storage.AutosaveDelay.Duration, logger),
		preview:   preview.NewServer(preview.ServerConfig{Addr: c.Preview.Addr, Logger: logger}),
	}
	if cfg.Offline {
		return a, nil
	}

	a.Gateway, err = gateway.New(ctx, gateway.Config{
		APIKey:  c.API.APIKey,
		BaseURL: c.API.BaseURL,
		Models: gateway.Models{
			Default:   c.Models.Default,
			Pro:       c.Models.Pro,
			Title:     c.Models.Title,
			ImageEdit: c.Models.ImageEdit,
		},
		ThinkingBudget: c.API.ThinkingBudget,
		Timeout:        c.API.Timeout.Duration,
		Logger:         logger,
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Locator = geo.NewOnce(NewLocator(c.Location), c.Location.Timeout.Duration, logger)
	a.Executor, err = executor.NewService(executor.ServiceConfig{
		Store:            store,
		Gateway:          a.Gateway,
		Locator:          a.Locator,
		EventSink:        cfg.EventSink,
		DisableAutoTitle: cfg.DisableAutoTitle,
		Logger:           logger,
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// NewLocator builds the configured locator
func NewLocator(c config.LocationConfig) geo.Locator {
	switch c.Mode {
	case "static":
		return geo.Static{Location: geo.Location{Latitude: c.Latitude, Longitude: c.Longitude}}
	case "off":
		return geo.Disabled{}
	default:
		return geo.IPLocator{URL: c.LookupURL}
	}
}

// NewComposer creates a composer using the configured limits
func (a *App) NewComposer() *composer.Composer {
	c := a.Config.Composer
	return composer.New(composer.Config{
		Fs:       fs.NewAttachmentFs(),
		Frames:   composer.FFmpeg{Path: c.FFmpegPath, Offset: time.Second},
		MaxBytes: c.MaxAttachmentBytes,
		Logger:   a.Logger,
	})
}

// DefaultImageOptions returns the configured image generation options
func (a *App) DefaultImageOptions() chat.ImageOptions {
	return chat.ImageOptions{AspectRatio: a.Config.Models.AspectRatio, Model: a.Config.Models.Image}
}

// Preview returns the preview server, starting it on first use
func (a *App) Preview() (*preview.Server, error) {
	a.previewOnce.Do(func() {
		a.previewErr = a.preview.Start()
	})
	if a.previewErr != nil {
		return nil, a.previewErr
	}
	return a.preview, nil
}

// Close flushes state and closes all resources held by the app
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Executor != nil {
		a.Executor.Close()
	}
	if a.AutoSaver != nil {
		if err := a.AutoSaver.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to save state: %w", err))
		}
	}
	if a.preview != nil {
		if err := a.preview.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.KV != nil {
		if err := a.KV.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
