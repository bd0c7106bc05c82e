package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorError  = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	colorInfo   = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	colorAccent = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
	colorBorder = lipgloss.AdaptiveColor{Light: "#1565c0", Dark: "#42a5f5"}
)

// Theme holds the styles used by Render.
type Theme struct {
	Name    lipgloss.Style
	Label   lipgloss.Style
	Hint    lipgloss.Style
	Error   lipgloss.Style
	Section lipgloss.Style
	Service lipgloss.Style
	Known   lipgloss.Style
	Raw     lipgloss.Style
	Button  lipgloss.Style
	Spinner lipgloss.Style
	Tree    lipgloss.Style
}

// DefaultTheme uses adaptive colors that work on light and dark terminals.
func DefaultTheme() Theme {
	return Theme{
		Name:    lipgloss.NewStyle().Bold(true),
		Label:   lipgloss.NewStyle().Foreground(colorMuted),
		Hint:    lipgloss.NewStyle().Foreground(colorInfo),
		Error:   lipgloss.NewStyle().Foreground(colorError).Bold(true),
		Section: lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		Service: lipgloss.NewStyle().Bold(true),
		Known:   lipgloss.NewStyle().Foreground(colorMuted),
		Raw:     lipgloss.NewStyle().Faint(true),
		Button:  lipgloss.NewStyle().Foreground(colorBorder).Bold(true),
		Spinner: lipgloss.NewStyle().Foreground(colorInfo),
		Tree:    lipgloss.NewStyle().Foreground(colorMuted),
	}
}

// PlainTheme renders without any styling.
func PlainTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Name: plain, Label: plain, Hint: plain, Error: plain, Section: plain,
		Service: plain, Known: plain, Raw: plain, Button: plain, Spinner: plain, Tree: plain,
	}
}
