package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/canvas-grader/internal/inspect"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	nameStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7FB4FF"))
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
)

// Heading renders a progress line such as "Loading courses...".
func Heading(text string) string {
	return headingStyle.Render(text)
}

// Notice renders secondary information.
func Notice(format string, args ...any) string {
	return noticeStyle.Render(fmt.Sprintf(format, args...))
}

// Error renders an error line.
func Error(err error) string {
	return errorStyle.Render(fmt.Sprintf("Error: %v", err))
}

// RenderReport formats the inspection checks for one submission.
func RenderReport(name string, report inspect.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Grading %s\n", nameStyle.Render(name))
	b.WriteString("File contains name:\n")
	writeChecks(&b, report.Names)
	b.WriteString("File contains readme disclaimer:\n")
	writeChecks(&b, report.Disclaimers)
	return b.String()
}

func writeChecks(b *strings.Builder, checks []inspect.Check) {
	if len(checks) == 0 {
		fmt.Fprintf(b, "\t%s\n", noticeStyle.Render("(no matching files)"))
		return
	}
	for _, c := range checks {
		mark := failStyle.Render("✗")
		if c.Pass {
			mark = passStyle.Render("✔")
		}
		fmt.Fprintf(b, "\t%s %s\n", mark, c.File)
	}
}
