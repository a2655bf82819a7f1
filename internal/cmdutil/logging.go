package cmdutil

import (
	"log/slog"

	"github.com/leefowlercu/dron/internal/logging"
)

var logManager *logging.Manager

// SetLogManager registers the process log manager created by the root command.
func SetLogManager(m *logging.Manager) {
	logManager = m
}

// LogManager returns the registered log manager, or nil.
func LogManager() *logging.Manager {
	return logManager
}

// Logger returns the process logger, falling back to slog.Default.
func Logger() *slog.Logger {
	if logManager == nil {
		return slog.Default()
	}
	return logManager.Logger()
}
