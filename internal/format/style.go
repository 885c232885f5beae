package format

import "github.com/charmbracelet/lipgloss"

var (
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	counterStyle = lipgloss.NewStyle().Bold(true).Faint(true)
)

// ErrorTag is the "error:" prefix for user-facing messages.
func ErrorTag() string { return errorStyle.Render("error:") }

// WarningTag is the "warning:" prefix for user-facing messages.
func WarningTag() string { return warningStyle.Render("warning:") }

// HintTag is the "hint:" prefix under error messages.
func HintTag() string { return hintStyle.Render("hint:") }

// Counter renders a progress counter such as "[3/12]".
func Counter(s string) string { return counterStyle.Render(s) }
