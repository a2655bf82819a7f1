package cmdutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

// FindEditor returns $EDITOR, then $VISUAL, then the first common editor on PATH.
func FindEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}
	for _, editor := range []string{"vim", "vi", "nano", "emacs"} {
		if _, err := exec.LookPath(editor); err == nil {
			return editor
		}
	}
	return ""
}

// OpenEditor runs editor on path attached to the terminal. editor may carry
// arguments, e.g. "code --wait".
func OpenEditor(ctx context.Context, editor, path string) error {
	argv, err := shellquote.Split(editor)
	if err != nil || len(argv) == 0 {
		return fmt.Errorf("invalid editor command %q", editor)
	}

	c := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("editor exited with error; %w", err)
	}
	return nil
}
