// Package logging provides types.Logger adapters for log/slog and
// sirupsen/logrus, plus a no-op logger.
//
// New picks an adapter from configuration values:
//
//	logger, err := logging.New(logging.Options{Backend: "logrus", Level: "debug", Format: "json"})
package logging
