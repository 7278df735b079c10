// Package session holds the per-scan state shared by the orchestrator,
// collectors and the reconciler: identity, the cooperative stop flag and the
// terminal outcome.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"followscan/pkg/models"

	"github.com/google/uuid"
)

// Stopper is polled by long-running loops at the top of every iteration
type Stopper interface {
	Stopped() bool
}

// Outcome is how a scan ended
type Outcome string

const (
	OutcomeRunning   Outcome = "running"
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
	OutcomeFailed    Outcome = "failed"
)

// Result is the terminal summary of a scan
type Result struct {
	Outcome   Outcome
	Evaluated int
	Accounts  []models.Account
	Err       error
}

// Session is one scan run on one platform
type Session struct {
	ID        string
	Platform  models.Platform
	Options   models.ScanOptions
	StartedAt time.Time

	stop atomic.Bool
	done chan struct{}

	mu     sync.Mutex
	result Result
	// last reported counters; progress never moves backwards
	current int
	total   int
}

// New creates a session for platform
func New(platform models.Platform, opts models.ScanOptions) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Platform:  platform,
		Options:   opts,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
		result:    Result{Outcome: OutcomeRunning},
	}
}

// Stop requests a cooperative stop. Calling it more than once, or after the
// session finished, has no effect.
func (s *Session) Stop() {
	s.stop.Store(true)
}

// Stopped reports whether a stop was requested
func (s *Session) Stopped() bool {
	return s.stop.Load()
}

// Done is closed once the session reached a terminal state
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Finish records the terminal result and releases waiters. Only the first call counts.
func (s *Session) Finish(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result.Outcome != OutcomeRunning {
		return
	}
	s.result = r
	close(s.done)
}

// Result returns the terminal result, or an OutcomeRunning result while the scan runs
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Advance clamps the given counters so they never fall below previously
// reported values, stores them and returns the values to report.
func (s *Session) Advance(current, total int) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current < s.current {
		current = s.current
	}
	if total < s.total {
		total = s.total
	}
	if current > total {
		total = current
	}
	s.current, s.total = current, total
	return current, total
}
