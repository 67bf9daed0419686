// Package tui implements the interactive prompts of a grading session as
// small bubbletea programs, plus the lipgloss styles used for progress output.
//
// Each prompt runs its own tea.Program on the alternate-free main screen and
// returns as soon as the grader confirms or cancels.
package tui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned when the grader backs out of a prompt.
var ErrCancelled = errors.New("tui: cancelled")

// Choose asks for one of labels and returns its index.
func Choose(title string, labels []string) (int, error) {
	if len(labels) == 0 {
		return 0, fmt.Errorf("tui: %s: nothing to choose from", title)
	}
	final, err := tea.NewProgram(newChooser(title, labels)).Run()
	if err != nil {
		return 0, fmt.Errorf("tui: %s: %w", title, err)
	}
	m, ok := final.(*chooserModel)
	if !ok {
		return 0, fmt.Errorf("tui: unexpected model %T", final)
	}
	if m.cancelled || m.choice < 0 || m.choice >= len(labels) {
		return 0, ErrCancelled
	}
	return m.choice, nil
}

// MultiChoose shows a checklist of labels and returns the ticked indices in
// ascending order. defaults sets the initial ticks; a nil or short slice
// leaves the remaining entries ticked.
func MultiChoose(title string, labels []string, defaults []bool) ([]int, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	final, err := tea.NewProgram(newChecklist(title, labels, defaults)).Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %s: %w", title, err)
	}
	m, ok := final.(*checklistModel)
	if !ok {
		return nil, fmt.Errorf("tui: unexpected model %T", final)
	}
	if m.cancelled {
		return nil, ErrCancelled
	}
	return m.Selected(), nil
}

// AskCount reads a whole number no smaller than min.
func AskCount(title string, min int) (int, error) {
	final, err := tea.NewProgram(newCountInput(title, min)).Run()
	if err != nil {
		return 0, fmt.Errorf("tui: %s: %w", title, err)
	}
	m, ok := final.(*countModel)
	if !ok {
		return 0, fmt.Errorf("tui: unexpected model %T", final)
	}
	if m.cancelled {
		return 0, ErrCancelled
	}
	return m.value, nil
}
