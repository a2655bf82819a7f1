//go:build !unix

package run

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/leefowlercu/dron/internal/cmdutil"
)

// execCommand runs argv in the foreground and passes on its exit code.
func execCommand(argv []string) error {
	c := exec.Command(argv[0], argv[1:]...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	err := c.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &cmdutil.ExitError{Code: exitErr.ExitCode()}
	}
	if err != nil {
		return fmt.Errorf("failed to run %s; %w", argv[0], err)
	}
	return nil
}
