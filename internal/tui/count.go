package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// countModel reads a positive whole number.
type countModel struct {
	title     string
	min       int
	input     textinput.Model
	value     int
	err       error
	done      bool
	cancelled bool
}

func newCountInput(title string, min int) *countModel {
	ti := textinput.New()
	ti.Placeholder = strconv.Itoa(min)
	ti.CharLimit = 6
	ti.Width = 10
	ti.Focus()
	return &countModel{title: title, min: min, input: ti}
}

func (m *countModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *countModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			value, err := parseCount(m.input.Value(), m.min)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.value = value
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func parseCount(raw string, min int) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("enter a whole number")
	}
	if value < min {
		return 0, fmt.Errorf("must be at least %d", min)
	}
	return value, nil
}

func (m *countModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	lines := []string{headingStyle.Render(m.title), m.input.View()}
	if m.err != nil {
		lines = append(lines, errorStyle.Render(m.err.Error()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
