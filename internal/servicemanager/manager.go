package servicemanager

import (
	"context"
	"os/exec"
	"strings"
)

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run executes a command and returns its combined output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// defaultExecutor implements CommandExecutor using os/exec.
type defaultExecutor struct{}

// Run executes a command using os/exec.
func (e *defaultExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// NewCommandExecutor returns the default command executor.
func NewCommandExecutor() CommandExecutor {
	return &defaultExecutor{}
}

// run executes a command and converts a failure into a *CommandError.
func run(ctx context.Context, exe CommandExecutor, name string, args ...string) ([]byte, error) {
	out, err := exe.Run(ctx, name, args...)
	if err != nil {
		return out, &CommandError{
			Command: name,
			Args:    args,
			Output:  strings.TrimSpace(string(out)),
			Err:     err,
		}
	}
	return out, nil
}
