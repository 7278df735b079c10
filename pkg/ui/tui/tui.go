package tui

import (
	"fmt"

	"followscan/pkg/activity"
	"followscan/pkg/messages"
	"followscan/pkg/models"

	tea "github.com/charmbracelet/bubbletea"
)

// logBuffer is how many log lines wait for the program to start
const logBuffer = 256

// TUI runs the dashboard program
type TUI struct {
	program *tea.Program
	model   *Model
	logs    chan LogMsg
	done    chan struct{}
}

// Option configures a TUI
type Option func(*Model)

// WithQuitWhenDone exits the program once every scan finished
func WithQuitWhenDone() Option {
	return func(m *Model) { m.quitWhenDone = true }
}

// New creates a dashboard over platforms
func New(platforms []models.Platform, stop StopFunc, locale activity.Locale, opts ...Option) *TUI {
	model := NewModel(platforms, stop, locale)
	for _, opt := range opts {
		opt(model)
	}
	return &TUI{
		program: tea.NewProgram(model, tea.WithAltScreen()),
		model:   model,
		logs:    make(chan LogMsg, logBuffer),
		done:    make(chan struct{}),
	}
}

// Run blocks until the user quits. Queued log lines are delivered in order
// once the program is running.
func (t *TUI) Run() error {
	go t.forwardLogs()
	_, err := t.program.Run()
	close(t.done)
	return err
}

func (t *TUI) forwardLogs() {
	for {
		select {
		case msg := <-t.logs:
			t.program.Send(msg)
		case <-t.done:
			return
		}
	}
}

// Quit stops the program
func (t *TUI) Quit() {
	t.program.Quit()
}

// Publish forwards an outgoing message to the dashboard
func (t *TUI) Publish(msg messages.Message) {
	t.program.Send(EventMsg{Message: msg})
}

// Log queues a line for the activity panel without blocking. Lines are
// dropped when the queue is full.
func (t *TUI) Log(level, format string, args ...interface{}) {
	select {
	case t.logs <- LogMsg{Level: level, Message: fmt.Sprintf(format, args...)}:
	default:
	}
}
