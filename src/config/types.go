package config

import (
	"fmt"
	"time"
)

// Config represents the complete configuration for lumen
type Config struct {
	// Version of the configuration format
	Version string `json:"version" toml:"version"`

	// API configuration
	API APIConfig `json:"api" toml:"api"`

	// Models names the backend models used per route
	Models ModelsConfig `json:"models" toml:"models"`

	// Storage configuration for conversations and settings
	Storage StorageConfig `json:"storage" toml:"storage"`

	// Preview server configuration
	Preview PreviewConfig `json:"preview" toml:"preview"`

	// Location used to bias map answers
	Location LocationConfig `json:"location" toml:"location"`

	// Composer configuration for attachments
	Composer ComposerConfig `json:"composer" toml:"composer"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" toml:"logging"`
}

// APIConfig holds API-related configuration
type APIConfig struct {
	// APIKey for authentication (usually taken from GEMINI_API_KEY)
	APIKey string `json:"api_key,omitempty" toml:"api_key,omitempty"`

	// BaseURL overrides the default API endpoint
	BaseURL string `json:"base_url,omitempty" toml:"base_url,omitempty" validate:"omitempty,url"`

	// Timeout for a single request, including the whole stream
	Timeout Duration `json:"timeout" toml:"timeout"`

	// ThinkingBudget is the reasoning token budget for deep thinking
	ThinkingBudget int32 `json:"thinking_budget" toml:"thinking_budget" validate:"min=0"`
}

// ModelsConfig names the models used for each tier
type ModelsConfig struct {
	Default   string `json:"default" toml:"default" validate:"required"`
	Pro       string `json:"pro" toml:"pro" validate:"required"`
	Title     string `json:"title" toml:"title" validate:"required"`
	ImageEdit string `json:"image_edit" toml:"image_edit" validate:"required"`

	// Image is the default image generation model
	Image string `json:"image" toml:"image" validate:"required"`

	// AspectRatio is the default image aspect ratio
	AspectRatio string `json:"aspect_ratio" toml:"aspect_ratio" validate:"required"`
}

// StorageConfig selects and locates the persistence backend
type StorageConfig struct {
	// Backend is "sqlite" or "badger"
	Backend string `json:"backend" toml:"backend" validate:"storage_backend"`

	// Path to the database file or directory; empty uses the XDG state dir
	Path string `json:"path,omitempty" toml:"path,omitempty"`

	// AutosaveDelay is how long changes settle before they are written
	AutosaveDelay Duration `json:"autosave_delay" toml:"autosave_delay"`
}

// PreviewConfig configures the local code preview server
type PreviewConfig struct {
	// Addr the server listens on; port 0 picks a free port
	Addr string `json:"addr" toml:"addr" validate:"listen_addr"`
}

// LocationConfig configures geolocation
type LocationConfig struct {
	// Mode is "ip", "static" or "off"
	Mode string `json:"mode" toml:"mode" validate:"oneof=ip static off"`

	Latitude  float64 `json:"latitude,omitempty" toml:"latitude,omitempty" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude,omitempty" toml:"longitude,omitempty" validate:"min=-180,max=180"`

	// LookupURL is queried in ip mode
	LookupURL string `json:"lookup_url,omitempty" toml:"lookup_url,omitempty" validate:"omitempty,url"`

	// Timeout bounds the one-shot lookup
	Timeout Duration `json:"timeout" toml:"timeout"`
}

// ComposerConfig configures attachment handling
type ComposerConfig struct {
	// FFmpegPath locates ffmpeg for video frames; empty searches PATH
	FFmpegPath string `json:"ffmpeg_path,omitempty" toml:"ffmpeg_path,omitempty"`

	// MaxAttachmentBytes bounds attached files
	MaxAttachmentBytes int64 `json:"max_attachment_bytes" toml:"max_attachment_bytes" validate:"min=0"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level" toml:"level" validate:"log_level"`

	// File overrides the TUI log file path
	File string `json:"file,omitempty" toml:"file,omitempty"`
}

// Duration is a time.Duration written as a string such as "250ms"
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// ConfigPrecedence defines the order of configuration loading
type ConfigPrecedence struct {
	// UserConfigs are tried in order; the first that exists is used
	UserConfigs []string

	// LocalConfig path, merged over the user config
	LocalConfig string

	// EnvironmentPrefix for env var overrides
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceUser        ConfigSource = "user"
	SourceLocal       ConfigSource = "local"
	SourceExplicit    ConfigSource = "explicit"
	SourceEnvironment ConfigSource = "environment"
)
