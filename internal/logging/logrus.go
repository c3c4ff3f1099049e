package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/peerrouter/types"
)

// LogrusLogger implements types.Logger on top of a logrus.Logger.
//
// Key-value pairs become logrus fields. A dangling key without a value is
// recorded with the value "<missing>".
type LogrusLogger struct {
	logger *logrus.Logger
}

// Compile-time assertion that LogrusLogger implements Logger.
var _ types.Logger = (*LogrusLogger)(nil)

// NewLogrus wraps a logrus logger.
//
// Parameters:
//   - logger: The logrus logger, or nil for logrus.StandardLogger()
//
// Returns:
//   - *LogrusLogger: Logger adapter
//
// Example:
//
//	l := logrus.New()
//	l.SetFormatter(&logrus.JSONFormatter{})
//	router, _ := peerrouter.NewRouter(&cfg, nc, src, sel, peerrouter.WithLogger(logging.NewLogrus(l)))
func NewLogrus(logger *logrus.Logger) *LogrusLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &LogrusLogger{logger: logger}
}

// Debug logs a debug-level message with optional key-value pairs.
func (l *LogrusLogger) Debug(msg string, keysAndValues ...any) {
	l.entry(keysAndValues).Debug(msg)
}

// Info logs an info-level message with optional key-value pairs.
func (l *LogrusLogger) Info(msg string, keysAndValues ...any) {
	l.entry(keysAndValues).Info(msg)
}

// Warn logs a warning-level message with optional key-value pairs.
func (l *LogrusLogger) Warn(msg string, keysAndValues ...any) {
	l.entry(keysAndValues).Warn(msg)
}

// Error logs an error-level message with optional key-value pairs.
func (l *LogrusLogger) Error(msg string, keysAndValues ...any) {
	l.entry(keysAndValues).Error(msg)
}

// Fatal logs a fatal-level message and exits through logrus.
func (l *LogrusLogger) Fatal(msg string, keysAndValues ...any) {
	l.entry(keysAndValues).Fatal(msg)
}

func (l *LogrusLogger) entry(keysAndValues []any) *logrus.Entry {
	return l.logger.WithFields(toFields(keysAndValues))
}

// toFields converts alternating key-value pairs into logrus fields.
func toFields(keysAndValues []any) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields[key] = keysAndValues[i+1]
		} else {
			fields[key] = "<missing>"
		}
	}

	return fields
}
