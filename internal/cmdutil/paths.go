package cmdutil

import (
	"path/filepath"

	"github.com/leefowlercu/dron/internal/config"
)

// ResolvePath expands "~" and returns an absolute, cleaned path.
// Empty input returns an empty string.
func ResolvePath(path string) (string, error) {
	expanded := config.ExpandHome(path)
	if expanded == "" {
		return "", nil
	}

	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}

	return filepath.Clean(absPath), nil
}

// JobsFile returns the jobs file named on the command line, or the configured
// one when args is empty.
func JobsFile(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return ResolvePath(args[0])
	}
	return ResolvePath(config.GetString("jobs_file"))
}
