package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"followscan/pkg/config"
	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/session"
)

const version = 1

// Checkpoint is the resume position of one platform
type Checkpoint struct {
	Platform  models.Platform `json:"platform"`
	SessionID string          `json:"session_id"`
	// NextIndex is the start index of the batch that follows the last one
	NextIndex int `json:"next_index"`
	Limit     int `json:"limit"`
	// Exhausted is set when the last batch came back shorter than its limit
	Exhausted bool      `json:"exhausted"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Manager reads and writes the checkpoint of a single platform
type Manager struct {
	platform       models.Platform
	checkpointPath string
	logger         logger.Logger
	now            func() time.Time
}

// NewManager creates a manager rooted in the per-user data directory
func NewManager(platform models.Platform) (*Manager, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return NewManagerAt(filepath.Join(dataDir, "checkpoints"), platform)
}

// NewManagerAt creates a manager that keeps its file in dir
func NewManagerAt(dir string, platform models.Platform) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	return &Manager{
		platform:       platform,
		checkpointPath: filepath.Join(dir, fmt.Sprintf("%s.checkpoint.json", platform)),
		logger:         logger.GetLogger().WithField("platform", string(platform)),
		now:            time.Now,
	}, nil
}

// Path returns the checkpoint file location
func (m *Manager) Path() string { return m.checkpointPath }

// Load returns the stored checkpoint, or nil when none exists
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Platform != m.platform {
		return nil, fmt.Errorf("checkpoint belongs to %s, not %s", cp.Platform, m.platform)
	}

	m.logger.DebugWithFields("Checkpoint loaded", map[string]interface{}{
		"next_index": cp.NextIndex,
		"outcome":    cp.Outcome,
		"updated_at": cp.UpdatedAt,
	})
	return &cp, nil
}

// ResumeOptions applies the stored position to opts. It reports false when
// there is nothing to resume.
func (m *Manager) ResumeOptions(opts models.ScanOptions) (models.ScanOptions, bool, error) {
	cp, err := m.Load()
	if err != nil || cp == nil {
		return opts, false, err
	}
	if cp.Exhausted {
		return opts, false, nil
	}
	opts.StartIndex = cp.NextIndex
	return opts, true, nil
}

// Record stores the position after a finished batch. A stopped batch resumes
// right after the last evaluated candidate; a completed one resumes after the
// whole window.
func (m *Manager) Record(sess *session.Session) (*Checkpoint, error) {
	res := sess.Result()
	if res.Outcome == session.OutcomeRunning {
		return nil, fmt.Errorf("session %s is still running", sess.ID)
	}
	opts := sess.Options.Normalize()
	evaluated := res.Evaluated

	cp, err := m.Load()
	if err != nil || cp == nil {
		cp = &Checkpoint{Platform: m.platform, CreatedAt: m.now()}
	}
	cp.SessionID = sess.ID
	cp.Limit = opts.Limit
	cp.Outcome = string(res.Outcome)
	cp.Version = version

	switch res.Outcome {
	case session.OutcomeStopped:
		cp.NextIndex = opts.StartIndex + evaluated
		cp.Exhausted = false
	case session.OutcomeCompleted:
		cp.NextIndex = opts.StartIndex + opts.Limit
		cp.Exhausted = evaluated < opts.Limit
	default:
		// failed batches are retried from the same window
		cp.NextIndex = opts.StartIndex
		cp.Exhausted = false
	}

	if err := m.Save(cp); err != nil {
		return nil, err
	}
	m.logger.InfoWithFields("Checkpoint recorded", map[string]interface{}{
		"next_index": cp.NextIndex,
		"exhausted":  cp.Exhausted,
		"outcome":    cp.Outcome,
	})
	return cp, nil
}

// Save writes the checkpoint to disk atomically
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = m.now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists reports whether a checkpoint file is present
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}
