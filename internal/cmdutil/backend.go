// Package cmdutil holds helpers shared by the dron commands.
package cmdutil

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leefowlercu/dron/internal/config"
	"github.com/leefowlercu/dron/internal/servicemanager"
)

// NewBackend builds the backend for the current host from the loaded config.
func NewBackend(logger *slog.Logger) (servicemanager.Backend, error) {
	cfg, err := config.Get()
	if err != nil {
		return nil, err
	}
	return NewBackendFor(servicemanager.DetectPlatform(), cfg, logger)
}

// NewBackendFor builds the backend for platform p.
func NewBackendFor(p servicemanager.Platform, cfg *config.Config, logger *slog.Logger) (servicemanager.Backend, error) {
	if !servicemanager.IsPlatformSupported(p) {
		return nil, fmt.Errorf("platform %s is not supported; dron drives systemd on linux and launchd on darwin", p)
	}

	unitsDir, err := ResolvePath(cfg.UnitsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve units directory; %w", err)
	}

	backend, err := servicemanager.New(p, servicemanager.Options{
		Marker:      cfg.Marker,
		Verify:      cfg.Verify,
		UnitsDir:    unitsDir,
		WrapperPath: servicemanager.GetBinaryPath(),
		Logger:      logger.With("component", "servicemanager"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend; %w", p, err)
	}
	return backend, nil
}

// UnitName turns a job name typed by the user into the unit that runs it:
// name.service for systemd, name.plist for launchd. Names that already carry
// a unit suffix are returned unchanged.
func UnitName(p servicemanager.Platform, name string) string {
	if filepath.Ext(name) != "" {
		switch servicemanager.KindOf(name) {
		case servicemanager.KindService, servicemanager.KindTimer, servicemanager.KindPlist:
			return name
		}
	}
	if p == servicemanager.PlatformMacOS {
		return name + "." + string(servicemanager.KindPlist)
	}
	return name + "." + string(servicemanager.KindService)
}

// JobNames returns the distinct job names behind a set of managed units.
func JobNames(records []servicemanager.UnitRecord) []string {
	seen := make(map[string]bool, len(records))
	var names []string
	for _, r := range records {
		base := servicemanager.BaseName(r.UnitFile)
		if seen[base] {
			continue
		}
		seen[base] = true
		names = append(names, base)
	}
	return names
}
