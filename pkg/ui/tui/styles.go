package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Adaptive colors keep the dashboard readable on light terminals.
var (
	colorAccent   = lipgloss.AdaptiveColor{Light: "#005F87", Dark: "#5FD7FF"}
	colorDone     = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#87D787"}
	colorStopped  = lipgloss.AdaptiveColor{Light: "#AF5F00", Dark: "#FFAF5F"}
	colorFailed   = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}
	colorInactive = lipgloss.AdaptiveColor{Light: "#5F5F87", Dark: "#AFAFD7"}
	colorOneWay   = lipgloss.AdaptiveColor{Light: "#870087", Dark: "#D787D7"}
	colorMuted    = lipgloss.AdaptiveColor{Light: "#767676", Dark: "#8A8A8A"}
	colorBorder   = lipgloss.AdaptiveColor{Light: "#BCBCBC", Dark: "#444444"}
)

var (
	screenStyle = lipgloss.NewStyle()

	bannerStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Padding(1, 0).
			Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Underline(true)

	labelStyle = lipgloss.NewStyle().Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(colorAccent)

	doneStyle    = lipgloss.NewStyle().Foreground(colorDone).Bold(true)
	stoppedStyle = lipgloss.NewStyle().Foreground(colorStopped).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(colorFailed).Bold(true)

	inactiveTagStyle = lipgloss.NewStyle().Foreground(colorInactive)
	oneWayTagStyle   = lipgloss.NewStyle().Foreground(colorOneWay)

	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	timestampStyle = lipgloss.NewStyle().Foreground(colorMuted).Faint(true)
	helpStyle      = lipgloss.NewStyle().Foreground(colorMuted).Padding(1, 0, 0, 2)
)

// levelColor maps a log level to its activity panel color
func levelColor(level string) lipgloss.TerminalColor {
	switch level {
	case "ERROR", "FATAL":
		return colorFailed
	case "WARN":
		return colorStopped
	case "SUCCESS":
		return colorDone
	case "INFO":
		return colorAccent
	}
	return colorMuted
}
