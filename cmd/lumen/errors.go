package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/elee1766/lumen/src/composer"
	"github.com/elee1766/lumen/src/config"
	"github.com/elee1766/lumen/src/executor"
	"github.com/elee1766/lumen/src/gateway"
	"github.com/elee1766/lumen/src/storage"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error
	ExitUsage       = 2 // Usage error
	ExitConfig      = 3 // Configuration error
	ExitAuth        = 4 // Authentication error
	ExitStorage     = 5 // Local state could not be read or written
	ExitNetwork     = 6 // Network error
	ExitTimeout     = 7 // Timeout error
	ExitInterrupted = 8 // Interrupted by user
)

// ErrorHandler handles different types of errors and exits with appropriate codes
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError handles an error and exits with the appropriate code
func (h *ErrorHandler) HandleError(err error) {
	if err == nil {
		return
	}
	h.logger.Debug("command failed", "error", err)

	code := exitCode(err)
	if code != ExitInterrupted {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	}
	os.Exit(code)
}

// exitCode maps an error to a process exit code
func exitCode(err error) int {
	var (
		validationErr *config.ValidationError
		gatewayErr    *gateway.Error
		preErr        *gateway.PreconditionError
		storageErr    *storage.StorageError
		netErr        net.Error
	)

	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.Is(err, gateway.ErrNoAPIKey):
		return ExitAuth
	case errors.As(err, &gatewayErr) && (gatewayErr.Code == 401 || gatewayErr.Code == 403):
		return ExitAuth
	case errors.As(err, &validationErr), errors.Is(err, config.ErrUnknownFormat):
		return ExitConfig
	case errors.As(err, &storageErr):
		return ExitStorage
	case errors.As(err, &preErr),
		errors.Is(err, composer.ErrEmptyMessage),
		errors.Is(err, composer.ErrUnknownMode),
		errors.Is(err, composer.ErrUnsupportedFile),
		errors.Is(err, composer.ErrFileTooLarge),
		errors.Is(err, composer.ErrMissingImageOptions),
		errors.Is(err, executor.ErrConversationNotFound):
		return ExitUsage
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ExitTimeout
		}
		return ExitNetwork
	default:
		return ExitError
	}
}
