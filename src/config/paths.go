package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "lumen"

// ConfigDir returns the user configuration directory
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// StatePath returns the XDG state directory for lumen runtime data
func StatePath() string {
	return filepath.Join(xdg.StateHome, appName)
}

// DefaultStoragePath returns where the given backend keeps its data
func DefaultStoragePath(backend string) string {
	if backend == "badger" {
		return filepath.Join(StatePath(), "badger")
	}
	return filepath.Join(StatePath(), "lumen.db")
}

// DefaultLogPath returns the TUI log file path
func DefaultLogPath() string {
	return filepath.Join(StatePath(), "logs", "lumen.log")
}

// DefaultImageDir returns where generated images are written
func DefaultImageDir() string {
	return filepath.Join(xdg.UserDirs.Pictures, appName)
}

// StoragePath resolves the configured storage path
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return DefaultStoragePath(c.Storage.Backend)
}

// LogPath resolves the configured log file path
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return DefaultLogPath()
}
