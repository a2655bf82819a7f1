package servicemanager

import (
	"fmt"
	"strings"
)

// VerificationError is returned when the host's syntax checker rejects generated units.
type VerificationError struct {
	Tool   string
	Units  []string
	Output string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s rejected units %s:\n%s", e.Tool, strings.Join(e.Units, ", "), e.Output)
}

// CommandError is returned when an external command exits non-zero.
type CommandError struct {
	Command string
	Args    []string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q failed; %v", strings.TrimSpace(e.Command+" "+strings.Join(e.Args, " ")), e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// StateQueryError is returned when the managed units cannot be enumerated.
type StateQueryError struct {
	Err error
}

func (e *StateQueryError) Error() string {
	return fmt.Sprintf("failed to query managed units; %v", e.Err)
}

func (e *StateQueryError) Unwrap() error {
	return e.Err
}
