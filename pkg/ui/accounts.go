package ui

import (
	"fmt"
	"io"
	"time"

	"followscan/pkg/activity"
	"followscan/pkg/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ffff")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	flagStyle   = cellStyle.Foreground(lipgloss.Color("#ffcc00"))
)

// PrintAccounts renders accounts as a table with relative last-post dates
func PrintAccounts(w io.Writer, accounts []models.Account, locale activity.Locale, now time.Time) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, Dim("No accounts"))
		return
	}

	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{
			string(a.Platform),
			"@" + a.Username,
			a.DisplayName,
			activity.FormatRelative(a.LastPostDate, now, locale),
			mark(a.IsInactive),
			mark(a.IsNotFollowingBack),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("PLATFORM", "USERNAME", "NAME", "LAST POST", "INACTIVE", "NOT FOLLOWING BACK").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col >= 4:
				return flagStyle
			default:
				return cellStyle
			}
		})

	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "%d accounts\n", len(accounts))
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
