package logger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// LogScanStart logs the parameters a scan was started with
func LogScanStart(l Logger, platform string, startIndex, limit int, mode string) {
	l.InfoWithFields("Scan started", map[string]interface{}{
		"platform":    platform,
		"start_index": startIndex,
		"limit":       limit,
		"mode":        mode,
	})
}

// LogScanProgress logs evaluation progress
func LogScanProgress(l Logger, platform string, current, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(current) / float64(total) * 100
	}

	l.DebugWithFields("Scan progress", map[string]interface{}{
		"platform":   platform,
		"current":    current,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	})
}

// LogScanComplete logs the terminal state of a scan
func LogScanComplete(l Logger, platform string, evaluated, found int, stopped bool) {
	l.InfoWithFields("Scan finished", map[string]interface{}{
		"platform":  platform,
		"evaluated": evaluated,
		"found":     found,
		"stopped":   stopped,
	})
}

// LogRateLimit logs an upstream rate limit response
func LogRateLimit(l Logger, platform, endpoint string) {
	l.WithFields(map[string]interface{}{
		"platform": platform,
		"endpoint": endpoint,
		"action":   "rate_limited",
	}).Warn("Upstream rate limit reached, aborting scan")
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	l := GetLogger().WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// OrGlobal returns l, or the global logger when l is nil
func OrGlobal(l Logger) Logger {
	if l == nil {
		return GetLogger()
	}
	return l
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
