package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

type choiceItem struct {
	index int
	label string
}

func (i choiceItem) Title() string       { return i.label }
func (i choiceItem) Description() string { return "" }
func (i choiceItem) FilterValue() string { return i.label }

// chooserModel is a single-choice list with fuzzy filtering ("/" to filter).
type chooserModel struct {
	list      list.Model
	choice    int
	cancelled bool
}

func newChooser(title string, labels []string) *chooserModel {
	items := make([]list.Item, len(labels))
	for i, label := range labels {
		items[i] = choiceItem{index: i, label: label}
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	l := list.New(items, delegate, 60, 20)
	l.Title = title
	l.SetShowStatusBar(false)
	l.DisableQuitKeybindings()
	l.Filter = fuzzyFilter
	return &chooserModel{list: l, choice: -1}
}

// fuzzyFilter ranks targets the way an interactive fuzzy finder would: best
// match first, matched runes highlighted.
func fuzzyFilter(term string, targets []string) []list.Rank {
	matches := fuzzy.Find(term, targets)
	ranks := make([]list.Rank, len(matches))
	for i, match := range matches {
		ranks[i] = list.Rank{Index: match.Index, MatchedIndexes: match.MatchedIndexes}
	}
	return ranks
}

func (m *chooserModel) Init() tea.Cmd {
	return nil
}

func (m *chooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(max(20, msg.Width-2), max(5, msg.Height-2))
		return m, nil
	case tea.KeyMsg:
		filtering := m.list.FilterState() == list.Filtering
		switch msg.String() {
		case "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		case "q":
			if !filtering {
				m.cancelled = true
				return m, tea.Quit
			}
		case "esc":
			if !filtering && m.list.FilterState() != list.FilterApplied {
				m.cancelled = true
				return m, tea.Quit
			}
		case "enter":
			if !filtering {
				item, ok := m.list.SelectedItem().(choiceItem)
				if !ok {
					return m, nil
				}
				m.choice = item.index
				return m, tea.Quit
			}
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *chooserModel) View() string {
	if m.choice >= 0 || m.cancelled {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(),
		hintStyle.Render("Enter → choose    / → filter    Esc/q → cancel"),
	)
}
