// Package gateway translates chat requests into calls against the Gemini API.
package gateway

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// ModelsAPI is the subset of *genai.Models the gateway uses
type ModelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Models names the backend models used per tier
type Models struct {
	Default   string
	Pro       string
	Title     string
	ImageEdit string
}

// DefaultModels returns the models used when none are configured
func DefaultModels() Models {
	return Models{
		Default:   "gemini-2.5-flash",
		Pro:       "gemini-2.5-pro",
		Title:     "gemini-2.5-flash-lite",
		ImageEdit: "gemini-2.5-flash-image",
	}
}

// Config configures a Client
type Config struct {
	APIKey         string
	BaseURL        string
	Models         Models
	ThinkingBudget int32
	Timeout        time.Duration
	Logger         *slog.Logger
}

// Client talks to the generative backend
type Client struct {
	models         ModelsAPI
	names          Models
	thinkingBudget int32
	timeout        time.Duration
	logger         *slog.Logger
}

// New creates a client backed by the Gemini API
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	gc, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return NewWithModels(gc.Models, cfg), nil
}

// NewWithModels creates a client over an existing ModelsAPI
func NewWithModels(models ModelsAPI, cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	defaults := DefaultModels()
	if cfg.Models.Default == "" {
		cfg.Models.Default = defaults.Default
	}
	if cfg.Models.Pro == "" {
		cfg.Models.Pro = defaults.Pro
	}
	if cfg.Models.Title == "" {
		cfg.Models.Title = defaults.Title
	}
	if cfg.Models.ImageEdit == "" {
		cfg.Models.ImageEdit = defaults.ImageEdit
	}
	if cfg.ThinkingBudget == 0 {
		cfg.ThinkingBudget = 32768
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Client{
		models:         models,
		names:          cfg.Models,
		thinkingBudget: cfg.ThinkingBudget,
		timeout:        cfg.Timeout,
		logger:         cfg.Logger.With("component", "gateway"),
	}
}

// Models returns the configured model names
func (c *Client) Models() Models {
	return c.names
}
