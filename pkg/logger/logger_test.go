package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"followscan/pkg/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug json", &config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "scan.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			lvl, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, lvl)
		})
	}
}

func TestStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "debug")
	require.NoError(t, err)

	l.WithField("platform", "twitter").
		WithError(errors.New("boom")).
		InfoWithFields("Scan finished", map[string]interface{}{
			"found":    3,
			"stopped":  true,
			"duration": 2 * time.Second,
		})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "Scan finished", line["message"])
	assert.Equal(t, "followscan", line["app"])
	assert.Equal(t, "twitter", line["platform"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, float64(3), line["found"])
	assert.Equal(t, true, line["stopped"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "warn")
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent, err := NewWithWriter(&buf, "info")
	require.NoError(t, err)

	child := parent.WithField("platform", "threads")
	_ = child.WithField("extra", 1)
	parent.Info("parent")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	_, hasPlatform := lines[0]["platform"]
	assert.False(t, hasPlatform)
}

func TestGlobalLogger(t *testing.T) {
	test := NewTestLogger()
	SetLogger(test)
	t.Cleanup(func() { SetLogger(nil) })

	Info("global info")
	WithField("k", "v").Warn("global warn")

	assert.True(t, test.HasMessage("global info"))
	warns := test.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "v", warns[0].Fields["k"])
	assert.Same(t, test, OrGlobal(nil))
}

func TestTestLoggerSharesSink(t *testing.T) {
	test := NewTestLogger()
	child := test.WithField("platform", "instagram").WithError(errors.New("rate limited"))
	child.ErrorWithFields("scan failed", map[string]interface{}{"current": 4})

	assert.True(t, test.HasError())
	msgs := test.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "instagram", msgs[0].Fields["platform"])
	assert.Equal(t, 4, msgs[0].Fields["current"])
	assert.EqualError(t, msgs[0].Error, "rate limited")

	test.Clear()
	assert.Empty(t, test.GetMessages())
}

func TestScanHelpers(t *testing.T) {
	test := NewTestLogger()

	LogScanStart(test, "instagram", 0, 100, "fast")
	LogScanProgress(test, "instagram", 5, 10)
	LogScanComplete(test, "instagram", 10, 2, false)
	LogRateLimit(test, "instagram", "/graphql/query/")

	assert.True(t, test.HasMessage("Scan started"))
	progress := test.GetMessagesByLevel("DEBUG")
	require.Len(t, progress, 1)
	assert.Equal(t, "50.0%", progress[0].Fields["percentage"])
	assert.True(t, test.HasMessage("Scan finished"))
	assert.Len(t, test.GetMessagesByLevel("WARN"), 1)
}
