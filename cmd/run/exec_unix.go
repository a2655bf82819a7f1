//go:build unix

package run

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// execCommand replaces the current process with argv.
func execCommand(argv []string) error {
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("failed to find %s; %w", argv[0], err)
	}
	if err := unix.Exec(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("failed to exec %s; %w", path, err)
	}
	return nil
}
