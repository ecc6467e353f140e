package prompt

import (
	"errors"

	"github.com/manifoldco/promptui"
)

// Confirm asks a yes/no question that defaults to no. Only "y" confirms;
// Ctrl+C returns ErrAborted.
func Confirm(question string) (bool, error) {
	p := promptui.Prompt{Label: question, IsConfirm: true}

	_, err := p.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	default:
		return false, wrapError(err)
	}
}

// ConfirmWithForce skips the question when force is set.
func ConfirmWithForce(question string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(question)
}
