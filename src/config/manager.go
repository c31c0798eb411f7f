package config

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager owns the loaded configuration and the file it came from
type Manager struct {
	config     *Config
	loader     *Loader
	validator  *Validator
	configPath string
	mu         sync.RWMutex
}

// ConfigInfo summarizes the active configuration
type ConfigInfo struct {
	ActiveConfig string   `json:"active_config"`
	Model        string   `json:"model"`
	Storage      string   `json:"storage"`
	Warnings     []string `json:"warnings,omitempty"`
}

// NewManager loads configuration. An explicit path must exist; otherwise
// the standard locations are searched.
func NewManager(path string) (*Manager, error) {
	loader := NewLoader(GetConfigPaths())

	var (
		config *Config
		err    error
	)
	if path != "" {
		config, err = loader.LoadFile(path)
	} else {
		config, err = loader.Load()
		path, _ = FindConfigFile()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &Manager{
		config:     config,
		loader:     loader,
		validator:  NewValidator(),
		configPath: path,
	}, nil
}

// NewManagerWithConfig creates a manager with a specific configuration
func NewManagerWithConfig(config *Config) (*Manager, error) {
	validator := NewValidator()
	if err := validator.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Manager{
		config:    config,
		loader:    NewLoader(GetConfigPaths()),
		validator: validator,
	}, nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetConfigPath returns the file the configuration was loaded from, if any
func (m *Manager) GetConfigPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// SaveTo writes the current configuration to path
func (m *Manager) SaveTo(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loader.SaveFile(m.config, path); err != nil {
		return err
	}
	m.configPath = path
	return nil
}

// GetInfo returns configuration information
func (m *Manager) GetInfo() *ConfigInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info := &ConfigInfo{
		ActiveConfig: m.configPath,
		Model:        m.config.Models.Default,
		Storage:      m.config.Storage.Backend + ":" + m.config.StoragePath(),
	}
	if m.config.API.APIKey == "" {
		info.Warnings = append(info.Warnings, "no API key set; export GEMINI_API_KEY")
	}
	return info
}

// ExportConfig exports the configuration as JSON
func (m *Manager) ExportConfig(includeSecrets bool) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	config := *m.config
	if !includeSecrets && config.API.APIKey != "" {
		config.API.APIKey = "<redacted>"
	}

	return json.MarshalIndent(config, "", "  ")
}
