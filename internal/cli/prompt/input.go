// Package prompt provides interactive terminal prompts for rsctl commands.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err comes from the user cancelling a prompt.
func IsAborted(err error) bool {
	for _, target := range []error{ErrAborted, promptui.ErrInterrupt, promptui.ErrAbort} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// wrapError maps every promptui cancellation to ErrAborted.
func wrapError(err error) error {
	if err != nil && IsAborted(err) {
		return ErrAborted
	}
	return err
}

func runPrompt(p promptui.Prompt) (string, error) {
	answer, err := p.Run()
	return strings.TrimSpace(answer), wrapError(err)
}

// Input asks for free text, offering defaultValue.
func Input(label, defaultValue string) (string, error) {
	return runPrompt(promptui.Prompt{Label: label, Default: defaultValue})
}

// InputRequired asks until a non-blank value is entered.
func InputRequired(label string) (string, error) {
	return InputWithValidation(label, func(input string) error {
		if strings.TrimSpace(input) == "" {
			return fmt.Errorf("%s is required", strings.ToLower(label))
		}
		return nil
	})
}

// InputWithValidation asks for text accepted by validate.
func InputWithValidation(label string, validate func(string) error) (string, error) {
	return runPrompt(promptui.Prompt{Label: label, Validate: validate})
}
