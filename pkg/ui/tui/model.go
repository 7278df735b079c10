// Package tui is the live scan dashboard of `followscan scan --tui`.
package tui

import (
	"strings"
	"time"

	"followscan/pkg/activity"
	"followscan/pkg/models"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ScanState is what the dashboard knows about one platform's scan
type ScanState struct {
	Platform models.Platform
	Status   models.ScanStatus
	Current  int
	Total    int
	Message  string
	Found    int
	Partial  bool
	Err      string
	bar      progress.Model
}

// Done reports whether the scan reached a terminal state
func (s *ScanState) Done() bool {
	return s.Status == models.StatusCompleted || s.Status == models.StatusError
}

// Percent is the share of evaluated candidates
func (s *ScanState) Percent() float64 {
	if s.Total <= 0 {
		return 0
	}
	p := float64(s.Current) / float64(s.Total)
	if p > 1 {
		p = 1
	}
	return p
}

// LogMessage is an entry of the activity panel
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.TerminalColor
}

// StopFunc requests a cooperative stop of a platform's scan
type StopFunc func(models.Platform)

// Model is the bubbletea model of the dashboard
type Model struct {
	spinner spinner.Model

	scans map[models.Platform]*ScanState
	order []models.Platform
	found []models.Account

	stop         StopFunc
	quitWhenDone bool
	locale       activity.Locale
	now          func() time.Time
	startTime    time.Time

	width          int
	height         int
	showHelp       bool
	stopping       bool
	logMessages    []LogMessage
	maxLogMessages int
	maxFound       int
}

// NewModel creates a dashboard for platforms. stop may be nil.
func NewModel(platforms []models.Platform, stop StopFunc, locale activity.Locale) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorAccent)

	m := &Model{
		spinner:        s,
		scans:          make(map[models.Platform]*ScanState),
		stop:           stop,
		locale:         locale,
		now:            time.Now,
		startTime:      time.Now(),
		maxLogMessages: 50,
		maxFound:       200,
	}
	for _, p := range platforms {
		m.scan(p)
	}
	return m
}

// Init starts the spinner and the refresh tick
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *Model) scan(p models.Platform) *ScanState {
	if s, ok := m.scans[p]; ok {
		return s
	}
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40
	s := &ScanState{Platform: p, Status: models.StatusIdle, bar: bar}
	m.scans[p] = s
	m.order = append(m.order, p)
	return s
}

// Scan returns the state of platform's scan
func (m *Model) Scan(p models.Platform) (ScanState, bool) {
	s, ok := m.scans[p]
	if !ok {
		return ScanState{}, false
	}
	return *s, true
}

// Found returns the accounts found so far, oldest first
func (m *Model) Found() []models.Account {
	return m.found
}

// AllDone reports whether every tracked scan finished
func (m *Model) AllDone() bool {
	if len(m.order) == 0 {
		return false
	}
	for _, p := range m.order {
		if !m.scans[p].Done() {
			return false
		}
	}
	return true
}

// AddLogMessage appends an entry to the activity panel
func (m *Model) AddLogMessage(level, message string) {
	level = strings.ToUpper(level)
	color := levelColor(level)

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   color,
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

func (m *Model) addFound(a models.Account) {
	m.found = append(m.found, a)
	if len(m.found) > m.maxFound {
		m.found = m.found[len(m.found)-m.maxFound:]
	}
}
