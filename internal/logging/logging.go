package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultMaxSizeMB is the size at which the log file is rotated.
	DefaultMaxSizeMB = 10
	// DefaultMaxBackups is the number of rotated files kept.
	DefaultMaxBackups = 3
)

// Manager handles logger lifecycle including bootstrap-to-full mode transitions.
// Components should obtain a logger via Logger() and use it for all logging.
type Manager struct {
	handler *SwappableHandler
	logger  *slog.Logger
	console io.Writer
	sink    *lumberjack.Logger
	level   *slog.LevelVar
	quiet   bool
	mu      sync.Mutex
}

// NewManager creates a logging manager in bootstrap mode.
// Bootstrap mode writes only to stderr using text format.
// Call Upgrade() after config is available to enable file logging.
func NewManager() *Manager {
	return NewManagerWithWriter(os.Stderr)
}

// NewManagerWithWriter creates a bootstrap-mode manager whose console
// output goes to w instead of stderr.
func NewManagerWithWriter(w io.Writer) *Manager {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	handler := NewSwappableHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))

	return &Manager{
		handler: handler,
		logger:  slog.New(handler),
		console: w,
		level:   level,
	}
}

// Logger returns the current logger instance.
// The returned logger is stable across Upgrade calls.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Upgrade transitions from bootstrap mode (console only) to full mode
// (console text + rotating JSON file).
// Returns an error if the log file cannot be created.
func (m *Manager) Upgrade(logFilePath string, level slog.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %q; %w", dir, err)
	}

	// lumberjack opens lazily; probe the path so bad locations fail here.
	probe, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %q; %w", logFilePath, err)
	}
	_ = probe.Close()

	if m.sink != nil {
		_ = m.sink.Close()
	}
	m.sink = &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
	}

	m.level.Set(level)
	m.handler.Swap(m.buildHandler())

	return nil
}

// Quiet stops console output while keeping the file sink.
// Full-screen views call it so log lines do not tear the display.
func (m *Manager) Quiet() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.quiet = true
	m.handler.Swap(m.buildHandler())
}

func (m *Manager) buildHandler() slog.Handler {
	opts := &slog.HandlerOptions{Level: m.level}

	var handlers []slog.Handler
	if !m.quiet {
		handlers = append(handlers, slog.NewTextHandler(m.console, opts))
	}
	if m.sink != nil {
		handlers = append(handlers, slog.NewJSONHandler(m.sink, opts))
	}

	switch len(handlers) {
	case 0:
		return slog.NewTextHandler(io.Discard, opts)
	case 1:
		return handlers[0]
	default:
		return slogmulti.Fanout(handlers...)
	}
}

// SetLevel changes the log level at runtime.
func (m *Manager) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Close flushes and closes the file sink. Safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sink != nil {
		err := m.sink.Close()
		m.sink = nil
		return err
	}
	return nil
}
