package cmd

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	okColor      = lipgloss.Color("#10B981") // Green
	mutedColor   = lipgloss.Color("#6B7280") // Gray
	warnColor    = lipgloss.Color("#F59E0B") // Amber
	errColor     = lipgloss.Color("#EF4444") // Red

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	okStyle       = lipgloss.NewStyle().Foreground(okColor)
	warnStyle     = lipgloss.NewStyle().Foreground(warnColor)
	errStyle      = lipgloss.NewStyle().Foreground(errColor)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	providerStyle = lipgloss.NewStyle().Bold(true)
	timeStyle     = lipgloss.NewStyle().Foreground(okColor).Width(14)
)
