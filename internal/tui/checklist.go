package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const defaultChecklistHeight = 15

// checklistModel is a multi-select list; by default every entry starts ticked.
type checklistModel struct {
	title     string
	labels    []string
	checked   []bool
	cursor    int
	offset    int
	height    int
	done      bool
	cancelled bool
}

func newChecklist(title string, labels []string, defaults []bool) *checklistModel {
	checked := make([]bool, len(labels))
	for i := range checked {
		checked[i] = i >= len(defaults) || defaults[i]
	}
	return &checklistModel{
		title:   title,
		labels:  labels,
		checked: checked,
		height:  defaultChecklistHeight,
	}
}

// Selected returns the ticked indices in ascending order.
func (m *checklistModel) Selected() []int {
	var out []int
	for i, ok := range m.checked {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

func (m *checklistModel) Init() tea.Cmd {
	return nil
}

func (m *checklistModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(3, msg.Height-6)
		m.scroll()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			m.done = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.labels)-1 {
				m.cursor++
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = len(m.labels) - 1
		case " ", "space", "x":
			if len(m.checked) > 0 {
				m.checked[m.cursor] = !m.checked[m.cursor]
			}
		case "a":
			m.setAll(!m.allChecked())
		}
		m.scroll()
	}
	return m, nil
}

func (m *checklistModel) allChecked() bool {
	for _, ok := range m.checked {
		if !ok {
			return false
		}
	}
	return true
}

func (m *checklistModel) setAll(value bool) {
	for i := range m.checked {
		m.checked[i] = value
	}
}

// scroll keeps the cursor inside the visible window.
func (m *checklistModel) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m *checklistModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("%s (%d/%d)", m.title, len(m.Selected()), len(m.labels))))
	b.WriteString("\n")
	end := min(len(m.labels), m.offset+m.height)
	for i := m.offset; i < end; i++ {
		box := "[ ]"
		if m.checked[i] {
			box = passStyle.Render("[x]")
		}
		line := fmt.Sprintf("  %s %s", box, m.labels[i])
		if i == m.cursor {
			line = cursorStyle.Render("›") + line[1:]
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(hintStyle.Render("Space → toggle    a → toggle all    Enter → confirm    Esc → cancel"))
	return b.String()
}
