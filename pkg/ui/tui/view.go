package tui

import (
	"fmt"
	"strings"
	"time"

	"followscan/pkg/activity"
	"followscan/pkg/models"

	"github.com/charmbracelet/lipgloss"
)

const logo = `┏━╸┏━┓╻  ╻  ┏━┓╻ ╻┏━┓┏━╸┏━┓┏┓╻
┣╸ ┃ ┃┃  ┃  ┃ ┃┃╻┃┗━┓┃  ┣━┫┃┗┫
╹  ┗━┛┗━╸┗━╸┗━┛┗┻┛┗━┛┗━╸╹ ╹╹ ╹`

// View renders the dashboard
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderScansPanel(width),
		m.renderStatsPanel(width),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderFoundPanel(width),
		m.renderLogsPanel(width),
	)

	sections := []string{
		bannerStyle.Width(m.width).Render(logo),
		lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right),
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return screenStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderScansPanel(width int) string {
	title := panelTitleStyle.Render(" SCANS ")

	var rows []string
	for _, p := range m.order {
		rows = append(rows, m.renderScan(m.scans[p]))
	}
	if len(rows) == 0 {
		rows = append(rows, mutedStyle.Render("Waiting for a scan"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

func (m *Model) renderScan(s *ScanState) string {
	var icon string
	switch {
	case s.Status == models.StatusError:
		icon = failedStyle.Render("✗")
	case s.Status == models.StatusCompleted && s.Partial:
		icon = stoppedStyle.Render("■")
	case s.Status == models.StatusCompleted:
		icon = doneStyle.Render("✓")
	case s.Status == models.StatusScanning:
		icon = m.spinner.View()
	default:
		icon = mutedStyle.Render("·")
	}

	header := fmt.Sprintf("%s %s %s",
		icon,
		labelStyle.Render(string(s.Platform)),
		valueStyle.Render(fmt.Sprintf("%d/%d • %d found", s.Current, s.Total, s.Found)),
	)

	detail := s.Message
	if s.Err != "" {
		detail = failedStyle.Render(s.Err)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, s.bar.ViewAs(s.Percent()), mutedStyle.Render(detail), "")
}

func (m *Model) renderStatsPanel(width int) string {
	title := panelTitleStyle.Render(" SESSION ")

	found := 0
	for _, s := range m.scans {
		found += s.Found
	}
	stats := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Elapsed:"), valueStyle.Render(formatDuration(m.now().Sub(m.startTime)))),
		fmt.Sprintf("%s %s", labelStyle.Render("Found:"), valueStyle.Render(fmt.Sprintf("%d accounts", found))),
	}
	if m.stopping && !m.AllDone() {
		stats = append(stats, stoppedStyle.Render("Stopping..."))
	}
	if m.AllDone() {
		stats = append(stats, doneStyle.Render("All scans finished, press q to quit"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

func (m *Model) renderFoundPanel(width int) string {
	title := panelTitleStyle.Render(" FOUND ")

	maxRows := m.height/2 - 8
	if maxRows < 3 {
		maxRows = 3
	}
	start := len(m.found) - maxRows
	if start < 0 {
		start = 0
	}

	var rows []string
	for _, a := range m.found[start:] {
		rows = append(rows, m.renderAccount(a, width-6))
	}
	if len(rows) == 0 {
		rows = append(rows, mutedStyle.Render("Nothing found yet"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

func (m *Model) renderAccount(a models.Account, width int) string {
	var tags []string
	if a.IsInactive {
		tags = append(tags, inactiveTagStyle.Render("inactive"))
	}
	if a.IsNotFollowingBack {
		tags = append(tags, oneWayTagStyle.Render("not following back"))
	}
	line := fmt.Sprintf("@%s %s %s",
		a.Username,
		strings.Join(tags, " "),
		mutedStyle.Render(activity.FormatRelative(a.LastPostDate, m.now(), m.locale)),
	)
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}

func (m *Model) renderLogsPanel(width int) string {
	title := panelTitleStyle.Render(" ACTIVITY ")

	maxLogs := m.height/2 - 8
	if maxLogs < 3 {
		maxLogs = 3
	}
	start := len(m.logMessages) - maxLogs
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, entry := range m.logMessages[start:] {
		lines = append(lines, fmt.Sprintf("%s %s",
			timestampStyle.Render(entry.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(entry.Color).Render(entry.Message),
		))
	}
	if len(lines) == 0 {
		lines = append(lines, mutedStyle.Render("No activity"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, lines...)),
	)
}

func (m *Model) renderHelp() string {
	help := []string{
		"s       stop running scans (partial results are kept)",
		"q       quit",
		"ctrl+c  stop and quit",
		"ctrl+l  clear activity",
		"?       toggle help",
	}
	return helpStyle.Render(strings.Join(help, "\n"))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
