// Package testutil provides isolated environments for command tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leefowlercu/dron/internal/config"
)

// TestEnv is a throwaway dron home: config, jobs file, units and logs all
// live under one temp directory.
type TestEnv struct {
	t         *testing.T
	Root      string
	ConfigDir string
}

// NewTestEnv points every configurable path at a fresh temp directory via
// DRON_ environment overrides and reinitializes the global config.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	root := t.TempDir()
	configDir := filepath.Join(root, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create test config dir: %v", err)
	}

	t.Setenv("DRON_CONFIG_DIR", configDir)
	t.Setenv("DRON_JOBS_FILE", filepath.Join(configDir, "jobs.yaml"))
	t.Setenv("DRON_UNITS_DIR", filepath.Join(root, "units"))
	t.Setenv("DRON_LOG_FILE", filepath.Join(root, "logs", "dron.log"))
	t.Setenv("DRON_WRAPPER_LOG_DIR", filepath.Join(root, "logs", "jobs"))
	t.Setenv("DRON_MARKER", "(MANAGED BY DRON TEST)")

	config.Reset()
	if err := config.Init(); err != nil {
		t.Fatalf("failed to initialize test config: %v", err)
	}
	t.Cleanup(config.Reset)

	return &TestEnv{t: t, Root: root, ConfigDir: configDir}
}

// JobsFile returns the jobs file path the environment is configured with.
func (e *TestEnv) JobsFile() string {
	return filepath.Join(e.ConfigDir, "jobs.yaml")
}

// UnitsDir returns the directory generated units are written to.
func (e *TestEnv) UnitsDir() string {
	return filepath.Join(e.Root, "units")
}

// WriteJobs writes content to the configured jobs file.
func (e *TestEnv) WriteJobs(content string) string {
	e.t.Helper()
	return e.WriteFile(e.JobsFile(), content)
}

// WriteFile creates path, and any missing parents, with content.
func (e *TestEnv) WriteFile(path, content string) string {
	e.t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		e.t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.t.Fatalf("failed to create test file %s: %v", path, err)
	}
	return path
}
