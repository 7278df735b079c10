// Package logger provides the structured logging interface used across followscan.
//
// It wraps zerolog behind a small Logger interface so components can be handed
// a nop or capturing logger in tests:
//
//	log := logger.GetLogger().WithField("platform", "instagram")
//	log.InfoWithFields("Scan started", map[string]interface{}{"limit": 100})
//
// Console output is colorized; set logging.format to "json" for machine output.
package logger
