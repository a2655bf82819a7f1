package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks the configuration for errors.
// Returns ValidationErrors if validation fails.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error; got %q", cfg.LogLevel),
		})
	}

	if cfg.JobsFile == "" {
		errs = append(errs, ValidationError{
			Field:   "jobs_file",
			Message: "must not be empty",
		})
	}

	if cfg.UnitsDir == "" {
		errs = append(errs, ValidationError{
			Field:   "units_dir",
			Message: "must not be empty",
		})
	}

	if strings.ContainsAny(cfg.Marker, "\r\n") {
		errs = append(errs, ValidationError{
			Field:   "marker",
			Message: "must be a single line",
		})
	}

	if cfg.Monitor.RefreshInterval < 0 {
		errs = append(errs, ValidationError{
			Field:   "monitor.refresh_interval",
			Message: fmt.Sprintf("must be non-negative, got %v", cfg.Monitor.RefreshInterval),
		})
	}

	if cfg.Monitor.MinIntervalMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "monitor.min_interval_ms",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Monitor.MinIntervalMs),
		})
	}

	if cfg.Monitor.MetricsInterval < 1 {
		errs = append(errs, ValidationError{
			Field:   "monitor.metrics_interval",
			Message: fmt.Sprintf("must be at least 1 second, got %d", cfg.Monitor.MetricsInterval),
		})
	}

	if cfg.Wrapper.LogDir == "" {
		errs = append(errs, ValidationError{
			Field:   "wrapper.log_dir",
			Message: "must not be empty",
		})
	}

	if cfg.Wrapper.MaxLogSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "wrapper.max_log_size_mb",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Wrapper.MaxLogSizeMB),
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
