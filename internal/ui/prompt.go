package ui

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// ConfirmApply asks whether to write the shown changes to path. Cancelling
// the prompt counts as no.
func ConfirmApply(path string) (bool, error) {
	apply := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Apply changes to " + path + "?").
				Affirmative("Apply").
				Negative("Skip").
				Value(&apply),
		),
	)

	// Use /dev/tty directly; stdin usually carries the diff
	if tty, err := getTTY(); err == nil {
		defer tty.Close()
		form = form.WithInput(tty).WithOutput(tty)
	}

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return apply, nil
}
