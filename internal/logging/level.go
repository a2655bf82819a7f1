package logging

import (
	"log/slog"
	"strings"
)

// DefaultLevel is the log level used when none is configured.
const DefaultLevel = slog.LevelInfo

// ParseLevel maps a configured level name to a slog.Level. Names are
// case-insensitive and "warning" is accepted for "warn".
// Returns (DefaultLevel, false) for anything else.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return DefaultLevel, false
	}
}
