package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v\nline: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewManager_Bootstrap(t *testing.T) {
	var console bytes.Buffer
	mgr := NewManagerWithWriter(&console)
	defer func() { _ = mgr.Close() }()

	if mgr.Logger() != mgr.Logger() {
		t.Error("Logger() should return the same instance")
	}

	mgr.Logger().Info("loading jobs", "file", "jobs.yaml")
	mgr.Logger().Debug("hidden")

	out := console.String()
	if !strings.Contains(out, "file=jobs.yaml") {
		t.Errorf("bootstrap output should be text, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at default level")
	}
}

func TestManager_Upgrade_WritesJSONAndConsole(t *testing.T) {
	var console bytes.Buffer
	mgr := NewManagerWithWriter(&console)
	defer func() { _ = mgr.Close() }()

	logFile := filepath.Join(t.TempDir(), "nested", "dron.log")
	if err := mgr.Upgrade(logFile, slog.LevelInfo); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	mgr.Logger().With("component", "apply").Info("units written", "count", 3)

	entries := readLines(t, logFile)
	if len(entries) != 1 {
		t.Fatalf("got %d log lines, want 1", len(entries))
	}
	if entries[0]["msg"] != "units written" || entries[0]["component"] != "apply" {
		t.Errorf("unexpected entry: %v", entries[0])
	}
	if count, ok := entries[0]["count"].(float64); !ok || count != 3 {
		t.Errorf("count = %v, want 3", entries[0]["count"])
	}
	if !strings.Contains(console.String(), "units written") {
		t.Errorf("console output missing record: %q", console.String())
	}
}

func TestManager_Upgrade_ChildCreatedBeforeUpgrade(t *testing.T) {
	mgr := NewManagerWithWriter(&bytes.Buffer{})
	defer func() { _ = mgr.Close() }()

	early := mgr.Logger().With("component", "config")

	logFile := filepath.Join(t.TempDir(), "dron.log")
	if err := mgr.Upgrade(logFile, slog.LevelInfo); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	early.Info("config loaded")

	entries := readLines(t, logFile)
	if len(entries) != 1 || entries[0]["component"] != "config" {
		t.Errorf("early child logger did not reach the file: %v", entries)
	}
}

func TestManager_Upgrade_CreatesFileImmediately(t *testing.T) {
	mgr := NewManagerWithWriter(&bytes.Buffer{})
	defer func() { _ = mgr.Close() }()

	logFile := filepath.Join(t.TempDir(), "dron.log")
	if err := mgr.Upgrade(logFile, slog.LevelInfo); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("log file not created by Upgrade: %v", err)
	}
}

func TestManager_Upgrade_Errors(t *testing.T) {
	t.Run("path is a directory", func(t *testing.T) {
		mgr := NewManagerWithWriter(&bytes.Buffer{})
		defer func() { _ = mgr.Close() }()

		if err := mgr.Upgrade(t.TempDir(), slog.LevelInfo); err == nil {
			t.Error("Upgrade() should fail when the path is a directory")
		}
	})

	t.Run("read-only directory", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}
		mgr := NewManagerWithWriter(&bytes.Buffer{})
		defer func() { _ = mgr.Close() }()

		dir := filepath.Join(t.TempDir(), "readonly")
		if err := os.Mkdir(dir, 0555); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		defer func() { _ = os.Chmod(dir, 0755) }()

		if err := mgr.Upgrade(filepath.Join(dir, "dron.log"), slog.LevelInfo); err == nil {
			t.Error("Upgrade() should fail in a read-only directory")
		}
	})
}

func TestManager_SetLevel(t *testing.T) {
	mgr := NewManagerWithWriter(&bytes.Buffer{})
	defer func() { _ = mgr.Close() }()

	logFile := filepath.Join(t.TempDir(), "dron.log")
	if err := mgr.Upgrade(logFile, slog.LevelInfo); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	mgr.Logger().Debug("before")
	mgr.SetLevel(slog.LevelDebug)
	mgr.Logger().Debug("after")

	content, _ := os.ReadFile(logFile)
	if strings.Contains(string(content), "before") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(string(content), "after") {
		t.Error("debug record missing after SetLevel(Debug)")
	}
}

func TestManager_Quiet(t *testing.T) {
	var console bytes.Buffer
	mgr := NewManagerWithWriter(&console)
	defer func() { _ = mgr.Close() }()

	logFile := filepath.Join(t.TempDir(), "dron.log")
	if err := mgr.Upgrade(logFile, slog.LevelInfo); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	mgr.Quiet()
	mgr.Logger().Info("refresh failed")

	if console.Len() != 0 {
		t.Errorf("console written after Quiet: %q", console.String())
	}
	if entries := readLines(t, logFile); len(entries) != 1 {
		t.Errorf("file sink got %d lines, want 1", len(entries))
	}
}

func TestManager_QuietWithoutFile(t *testing.T) {
	var console bytes.Buffer
	mgr := NewManagerWithWriter(&console)

	mgr.Quiet()
	mgr.Logger().Error("dropped")

	if console.Len() != 0 {
		t.Errorf("console written after Quiet: %q", console.String())
	}
}

func TestManager_Close(t *testing.T) {
	mgr := NewManagerWithWriter(&bytes.Buffer{})

	if err := mgr.Upgrade(filepath.Join(t.TempDir(), "dron.log"), slog.LevelInfo); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	mgr.Logger().Info("flush me")

	if err := mgr.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
