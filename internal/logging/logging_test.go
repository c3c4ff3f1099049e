package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/peerrouter/types"
)

func TestAdapters_ImplementInterface(t *testing.T) {
	var _ types.Logger = (*SlogLogger)(nil)
	var _ types.Logger = (*LogrusLogger)(nil)
	var _ types.Logger = (*NopLogger)(nil)
}

func TestSlogLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlog(slog.New(handler))

	logger.Debug("debug message", "key", "value")
	logger.Warn("warn message", "count", 3)

	output := buf.String()
	assert.Contains(t, output, "debug message")
	assert.Contains(t, output, "key=value")
	assert.Contains(t, output, "level=DEBUG")
	assert.Contains(t, output, "level=WARN")
	assert.Contains(t, output, "count=3")

	t.Run("With adds fields", func(t *testing.T) {
		buf.Reset()
		logger.With("component", "store").Info("hello")
		assert.Contains(t, buf.String(), "component=store")
	})

	t.Run("default", func(t *testing.T) {
		require.NotNil(t, NewSlogDefault().logger)
	})
}

func TestLogrusLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	l := logrus.New()
	l.SetOutput(buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.JSONFormatter{})
	logger := NewLogrus(l)

	logger.Info("resolved", "key", "abcd", "peers", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "resolved", rec["msg"])
	require.Equal(t, "info", rec["level"])
	require.Equal(t, "abcd", rec["key"])
	require.InDelta(t, 2, rec["peers"], 0)

	t.Run("dangling key", func(t *testing.T) {
		fields := toFields([]any{"a", 1, "b"})
		require.Equal(t, 1, fields["a"])
		require.Equal(t, "<missing>", fields["b"])
	})

	t.Run("nil uses standard logger", func(t *testing.T) {
		require.Same(t, logrus.StandardLogger(), NewLogrus(nil).logger)
	})
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	require.NotPanics(t, func() {
		logger.Debug("x", "k", "v")
		logger.Info("x")
		logger.Warn("x")
		logger.Error("x")
		logger.Fatal("x")
	})
}

func TestNew(t *testing.T) {
	t.Run("slog json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Options{Level: "debug", Format: "json", Output: buf})
		require.NoError(t, err)
		require.IsType(t, &SlogLogger{}, logger)

		logger.Debug("hello", "k", "v")
		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		require.Equal(t, "hello", rec["msg"])
		require.Equal(t, "v", rec["k"])
	})

	t.Run("slog level filters", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Options{Level: "warn", Output: buf})
		require.NoError(t, err)

		logger.Info("dropped")
		require.Empty(t, buf.String())
	})

	t.Run("logrus text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Options{Backend: "logrus", Level: "info", Output: buf})
		require.NoError(t, err)
		require.IsType(t, &LogrusLogger{}, logger)

		logger.Info("hello", "k", "v")
		require.Contains(t, buf.String(), "k=v")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := New(Options{Backend: "zap"})
		require.ErrorIs(t, err, ErrInvalidLogging)

		_, err = New(Options{Format: "xml"})
		require.ErrorIs(t, err, ErrInvalidLogging)

		_, err = New(Options{Level: "loud"})
		require.ErrorIs(t, err, ErrInvalidLogging)

		_, err = New(Options{Backend: "logrus", Level: "loud"})
		require.ErrorIs(t, err, ErrInvalidLogging)
	})
}
