package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// StorageBackends lists the supported storage backends
var StorageBackends = []string{"sqlite", "badger"}

// LogLevels lists the accepted log levels
var LogLevels = []string{"debug", "info", "warn", "error"}

// Validator validates configuration values using go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Register custom validation functions
	v.RegisterValidation("storage_backend", validateStorageBackend)
	v.RegisterValidation("log_level", validateLogLevel)
	v.RegisterValidation("listen_addr", validateListenAddr)

	return &Validator{
		validate: v,
	}
}

// Validate validates a complete configuration
func (v *Validator) Validate(config *Config) error {
	if config.Version == "" {
		config.Version = "1.0"
	}

	if err := v.validate.Struct(config); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			e := validationErrors[0]
			return &ValidationError{
				Field:   e.Namespace(),
				Message: fmt.Sprintf("validation failed on tag '%s' with value '%v'", e.Tag(), e.Value()),
				Value:   e.Value(),
			}
		}
		return err
	}

	if config.Location.Mode == "static" && config.Location.Latitude == 0 && config.Location.Longitude == 0 {
		return &ValidationError{
			Field:   "Config.Location",
			Message: "static location requires latitude and longitude",
		}
	}
	return nil
}

func validateStorageBackend(fl validator.FieldLevel) bool {
	return slices.Contains(StorageBackends, fl.Field().String())
}

func validateLogLevel(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return slices.Contains(LogLevels, value)
}

// validateListenAddr accepts host:port with a port in 0..65535
func validateListenAddr(fl validator.FieldLevel) bool {
	_, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}
