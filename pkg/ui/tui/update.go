package tui

import (
	"fmt"
	"time"

	"followscan/pkg/messages"
	"followscan/pkg/models"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// EventMsg carries an outgoing scan message into the program
type EventMsg struct {
	Message messages.Message
}

// LogMsg adds a line to the activity panel
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg refreshes elapsed times
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, s := range m.scans {
			s.bar.Width = barWidth(m.width)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case EventMsg:
		m.apply(msg.Message)
		if m.quitWhenDone && m.AllDone() {
			return m, tea.Quit
		}
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

func (m *Model) apply(msg messages.Message) {
	switch ev := msg.(type) {
	case messages.ScanProgress:
		p := ev.Progress
		s := m.scan(p.Platform)
		s.Status = p.Status
		s.Current = p.Current
		s.Total = p.Total
		s.Message = p.Message
		if p.Status == models.StatusCompleted {
			m.AddLogMessage("SUCCESS", fmt.Sprintf("%s: %s", p.Platform, p.Message))
		}

	case messages.AccountFound:
		m.scan(ev.Platform).Found++
		m.addFound(ev.Account)

	case messages.ScanComplete:
		s := m.scan(ev.Platform)
		s.Found = len(ev.Accounts)
		s.Partial = ev.Partial

	case messages.ScanError:
		s := m.scan(ev.Platform)
		s.Status = models.StatusError
		s.Err = ev.Error
		m.AddLogMessage("ERROR", fmt.Sprintf("%s: %s", ev.Platform, ev.Error))

	case messages.AccountsData:
		m.AddLogMessage("INFO", fmt.Sprintf("%s: saved %d accounts", ev.Platform, len(ev.Accounts)))
	}
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if !m.AllDone() && !m.stopping && msg.String() == "ctrl+c" {
			m.requestStop()
		}
		return m, tea.Quit

	case "s", "S":
		m.requestStop()
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

func (m *Model) requestStop() {
	if m.stop == nil || m.stopping {
		return
	}
	m.stopping = true
	for _, p := range m.order {
		if !m.scans[p].Done() {
			m.stop(p)
			m.AddLogMessage("WARN", fmt.Sprintf("%s: stop requested", p))
		}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func barWidth(total int) int {
	w := total/2 - 20
	if w < 10 {
		w = 10
	}
	return w
}
