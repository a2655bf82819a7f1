package cmdutil

import "fmt"

// ExitError makes the process exit with Code without printing an error.
// Commands that pass a child's exit status through return it.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
