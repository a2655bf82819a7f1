// Package styles provides shared lipgloss styles for TUI and table output.
package styles

import "github.com/charmbracelet/lipgloss"

// Color palette using ANSI colors for broad terminal compatibility.
var (
	Primary   = lipgloss.Color("4")   // Blue
	Secondary = lipgloss.Color("245") // Light gray (visible on dark backgrounds)
	Success   = lipgloss.Color("2")   // Green
	Warning   = lipgloss.Color("3")   // Yellow
	Error     = lipgloss.Color("1")   // Red
	Highlight = lipgloss.Color("12")  // Bright blue
	Muted     = lipgloss.Color("245") // Light gray (visible on dark backgrounds)
)

// Text styles.
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SuccessText = lipgloss.NewStyle().
			Foreground(Success)

	WarningText = lipgloss.NewStyle().
			Foreground(Warning)

	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	HelpText = lipgloss.NewStyle().
			Foreground(Secondary).
			Italic(true)
)

// Diff styles.
var (
	DiffAdded = lipgloss.NewStyle().
			Foreground(Success)

	DiffRemoved = lipgloss.NewStyle().
			Foreground(Error)

	DiffHeader = lipgloss.NewStyle().
			Foreground(Highlight).
			Bold(true)
)

// Table styles.
var (
	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			PaddingRight(2)

	TableCell = lipgloss.NewStyle().
			PaddingRight(2)

	Selected = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
)

// Layout styles.
var (
	Container = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2).
			PaddingRight(2)
)

// Status renders a job status green when ok and red otherwise.
func Status(text string, ok bool) string {
	if ok {
		return SuccessText.Render(text)
	}
	return ErrorText.Render(text)
}
