package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"followscan/pkg/activity"
	"followscan/pkg/messages"
	"followscan/pkg/models"
)

// ScanDisplay prints a single updating progress line per scan. In verbose
// mode every found account gets its own line.
type ScanDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	verbose   bool
	locale    activity.Locale
	now       func() time.Time
	startTime time.Time

	progress map[models.Platform]models.ScanProgress
	found    map[models.Platform]int
	failed   map[models.Platform]string
}

// NewScanDisplay creates a display writing to out
func NewScanDisplay(out io.Writer, verbose bool, locale activity.Locale) *ScanDisplay {
	return &ScanDisplay{
		out:       out,
		verbose:   verbose,
		locale:    locale,
		now:       time.Now,
		startTime: time.Now(),
		progress:  make(map[models.Platform]models.ScanProgress),
		found:     make(map[models.Platform]int),
		failed:    make(map[models.Platform]string),
	}
}

// Publish renders one outgoing message
func (d *ScanDisplay) Publish(msg messages.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch m := msg.(type) {
	case messages.ScanProgress:
		d.progress[m.Progress.Platform] = m.Progress
		d.printProgress(m.Progress)
	case messages.AccountFound:
		d.found[m.Platform]++
		if d.verbose {
			d.printFound(m.Account)
		}
	case messages.ScanComplete:
		d.found[m.Platform] = len(m.Accounts)
	case messages.ScanError:
		d.failed[m.Platform] = m.Error
		fmt.Fprintf(d.out, "\n%s %s: %s\n", Red("✗"), m.Platform, m.Error)
	}
}

func (d *ScanDisplay) printProgress(p models.ScanProgress) {
	const barWidth = 20
	filled := 0
	if p.Total > 0 {
		filled = p.Current * barWidth / p.Total
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("%s [%s] %d/%d • %d found • %s",
		Cyan(string(p.Platform)),
		bar,
		p.Current,
		p.Total,
		d.found[p.Platform],
		p.Message,
	)
	if eta := d.eta(p); eta != "" {
		line += " • " + Dim(eta)
	}

	fmt.Fprintf(d.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
	if p.Status == models.StatusCompleted || p.Status == models.StatusError {
		fmt.Fprintln(d.out)
	}
}

func (d *ScanDisplay) printFound(a models.Account) {
	reasons := make([]string, 0, 2)
	if a.IsInactive {
		reasons = append(reasons, "inactive")
	}
	if a.IsNotFollowingBack {
		reasons = append(reasons, "not following back")
	}
	fmt.Fprintf(d.out, "\n%s @%s • %s • %s\n",
		Green("✓"),
		a.Username,
		strings.Join(reasons, ", "),
		Dim(activity.FormatRelative(a.LastPostDate, d.now(), d.locale)),
	)
}

func (d *ScanDisplay) eta(p models.ScanProgress) string {
	if p.Status != models.StatusScanning || p.Current == 0 || p.Total <= p.Current {
		return ""
	}
	elapsed := d.now().Sub(d.startTime)
	remaining := time.Duration(float64(elapsed) / float64(p.Current) * float64(p.Total-p.Current))
	return formatDuration(remaining) + " left"
}

// Summary prints the final per-platform counts
func (d *ScanDisplay) Summary() {
	d.mu.Lock()
	defer d.mu.Unlock()

	fmt.Fprintln(d.out)
	for _, p := range models.Platforms() {
		prog, ok := d.progress[p]
		if !ok {
			continue
		}
		if msg, failed := d.failed[p]; failed {
			fmt.Fprintf(d.out, "%s %s failed: %s\n", Red("✗"), p, msg)
			continue
		}
		fmt.Fprintf(d.out, "%s %s: %d found, %d checked\n", Green("✓"), p, d.found[p], prog.Current)
	}
	fmt.Fprintf(d.out, "  %s finished in %s\n", Dim("•"), formatDuration(d.now().Sub(d.startTime)))
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
