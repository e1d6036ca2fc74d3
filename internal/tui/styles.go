package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#38bdf8")
	colorInk     = lipgloss.Color("#e5e7eb")
	colorMuted   = lipgloss.Color("#94a3b8")
	colorDanger  = lipgloss.Color("#f87171")
	colorSuccess = lipgloss.Color("#8BC34A")
	colorBanner  = lipgloss.Color("#1e3a8a")
)

// Styles holds the styled components of the menu.
type Styles struct {
	Header   lipgloss.Style
	Title    lipgloss.Style
	Item     lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(colorInk).Background(colorBanner).Padding(0, 1),
		Title:    lipgloss.NewStyle().Bold(true).MarginTop(1).MarginBottom(1),
		Item:     lipgloss.NewStyle().Foreground(colorInk),
		Selected: lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(colorMuted),
		Error:    lipgloss.NewStyle().Foreground(colorDanger),
		Success:  lipgloss.NewStyle().Foreground(colorSuccess),
	}
}
