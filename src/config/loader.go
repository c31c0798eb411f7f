package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrUnknownFormat is returned for config files that are neither JSON nor TOML
var ErrUnknownFormat = errors.New("unknown config file format")

// Loader handles loading and merging configurations from multiple sources
type Loader struct {
	precedence ConfigPrecedence
	validator  *Validator
	getenv     func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader(precedence ConfigPrecedence) *Loader {
	return &Loader{
		precedence: precedence,
		validator:  NewValidator(),
		getenv:     os.Getenv,
	}
}

// Load merges defaults, the first existing user config, the local config and
// the environment, then validates the result.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	for _, path := range l.precedence.UserConfigs {
		if path == "" {
			continue
		}
		err := l.mergeFile(config, path)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s config from %s: %w", SourceUser, path, err)
		}
	}

	if path := l.precedence.LocalConfig; path != "" {
		if err := l.mergeFile(config, path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s config from %s: %w", SourceLocal, path, err)
		}
	}

	return l.finish(config)
}

// LoadFile loads defaults overridden by the file at path, which must exist,
// and the environment.
func (l *Loader) LoadFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := l.mergeFile(config, path); err != nil {
		return nil, fmt.Errorf("failed to load %s config from %s: %w", SourceExplicit, path, err)
	}
	return l.finish(config)
}

func (l *Loader) finish(config *Config) (*Config, error) {
	if l.precedence.EnvironmentPrefix != "" {
		if err := l.applyEnvironmentOverrides(config); err != nil {
			return nil, err
		}
	}
	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// mergeFile decodes the file at path over config. Fields the file does not
// mention keep their current values.
func (l *Loader) mergeFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(config); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), config)
		if err != nil {
			return fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown TOML keys: %v", undecoded)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return nil
}

// SaveFile saves configuration to a file, choosing the format by extension
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(config); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	case ".toml":
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	// the file may hold an API key
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to config
func (l *Loader) applyEnvironmentOverrides(config *Config) error {
	prefix := l.precedence.EnvironmentPrefix
	env := func(name string) string { return l.getenv(prefix + "_" + name) }

	// Check for API key override, most specific first
	for _, key := range []string{prefix + "_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if apiKey := l.getenv(key); apiKey != "" {
			config.API.APIKey = apiKey
			break
		}
	}

	if baseURL := env("BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}
	if model := env("MODEL"); model != "" {
		config.Models.Default = model
	}
	if model := env("PRO_MODEL"); model != "" {
		config.Models.Pro = model
	}
	if backend := env("STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if path := env("STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}
	if addr := env("PREVIEW_ADDR"); addr != "" {
		config.Preview.Addr = addr
	}
	if level := env("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// LUMEN_LOCATION is "off", "ip" or "lat,lng"
	if loc := env("LOCATION"); loc != "" {
		switch loc {
		case "off", "ip":
			config.Location.Mode = loc
		default:
			lat, lng, err := parseLatLng(loc)
			if err != nil {
				return fmt.Errorf("invalid %s_LOCATION: %w", prefix, err)
			}
			config.Location.Mode = "static"
			config.Location.Latitude = lat
			config.Location.Longitude = lng
		}
	}
	return nil
}

func parseLatLng(s string) (float64, float64, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("expected lat,lng but got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	return lat, lng, nil
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	return ConfigPrecedence{
		UserConfigs: []string{
			filepath.Join(ConfigDir(), "config.toml"),
			filepath.Join(ConfigDir(), "config.json"),
		},
		LocalConfig:       ".lumen.toml",
		EnvironmentPrefix: "LUMEN",
	}
}

// FindConfigFile returns the config file Load would read first
func FindConfigFile() (string, error) {
	paths := GetConfigPaths()
	for _, path := range append([]string{paths.LocalConfig}, paths.UserConfigs...) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no configuration file found")
}
