package cmdutil

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/leefowlercu/dron/internal/reconcile"
)

// ErrCancelled is returned when the user interrupts a prompt.
var ErrCancelled = errors.New("cancelled")

// askOne is swapped in tests.
var askOne = survey.AskOne

// Confirm asks a yes/no question on the terminal.
func Confirm(message string, def bool) (bool, error) {
	var answer bool
	prompt := &survey.Confirm{
		Message: message,
		Default: def,
	}
	if err := askOne(prompt, &answer); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, ErrCancelled
		}
		return false, fmt.Errorf("failed to read answer; %w", err)
	}
	return answer, nil
}

// Confirmer returns a reconcile.Confirmer that asks on the terminal and
// defaults to no. With assumeYes every prompt is answered yes without asking.
func Confirmer(assumeYes bool) reconcile.Confirmer {
	return reconcile.ConfirmFunc(func(prompt string) (bool, error) {
		if assumeYes {
			return true, nil
		}
		return Confirm(prompt, false)
	})
}

// SelectJob asks the user to pick one of names.
func SelectJob(names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("no managed jobs")
	}

	options := append([]string(nil), names...)
	sort.Strings(options)

	var choice string
	prompt := &survey.Select{
		Message: "Select a job:",
		Options: options,
	}
	if err := askOne(prompt, &choice); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("failed to read selection; %w", err)
	}
	return choice, nil
}
