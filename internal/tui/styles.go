package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.Color("#2e7d32")
	accent  = lipgloss.Color("#f9a825")
	muted   = lipgloss.Color("#7a7a7a")
	danger  = lipgloss.Color("#c62828")
)

// Styles groups the lipgloss styles used by the form.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Focused  lipgloss.Style
	Cursor   lipgloss.Style
	Checked  lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
	Section  lipgloss.Style
	Document lipgloss.Style
}

// DefaultStyles returns the stock palette.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(primary).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Width(13),
		Focused: lipgloss.NewStyle().
			Width(13).
			Foreground(accent).
			Bold(true),
		Cursor: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		Checked: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true),
		Status: lipgloss.NewStyle().
			Foreground(primary).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(danger),
		Help: lipgloss.NewStyle().
			Foreground(muted),
		Section: lipgloss.NewStyle().
			Bold(true).
			MarginTop(1),
		Document: lipgloss.NewStyle().
			Padding(1, 2),
	}
}
