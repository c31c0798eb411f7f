package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"

	"github.com/elee1766/lumen/src/config"
)

// createTUILogger creates a logger that doesn't interfere with the TUI
// by writing to a file instead of stdout/stderr
func createTUILogger(cfg *config.Config, override string) (*slog.Logger, func()) {
	level := parseLogLevel(logLevel(cfg, override))

	logFile := cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return discardLogger(), func() {}
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return discardLogger(), func() {}
	}

	return slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: level,
	})), func() { file.Close() }
}

// createCLILogger creates a logger for CLI commands that writes to stderr
func createCLILogger(logLevel string) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: parseLogLevel(logLevel),
	}))
}

// logLevel returns the flag override or the configured level
func logLevel(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	return cfg.Logging.Level
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
