package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/peerrouter/types"
)

// Backend and format names accepted by New.
const (
	BackendSlog   = "slog"
	BackendLogrus = "logrus"

	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalidLogging is returned for unknown backends, formats or levels.
var ErrInvalidLogging = errors.New("invalid logging configuration")

// Options selects and configures a logger adapter.
type Options struct {
	// Backend is "slog" (default) or "logrus".
	Backend string

	// Level is "debug", "info" (default), "warn" or "error".
	Level string

	// Format is "text" (default) or "json".
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// New builds a logger from options.
//
// Parameters:
//   - opts: Backend, level, format and output
//
// Returns:
//   - types.Logger: Configured logger
//   - error: ErrInvalidLogging (wrapped) for unknown values
func New(opts Options) (types.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("%w: format %q", ErrInvalidLogging, opts.Format)
	}

	level := strings.ToLower(opts.Level)
	if level == "" {
		level = "info"
	}

	switch strings.ToLower(opts.Backend) {
	case "", BackendSlog:
		var sl slog.Level
		if err := sl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("%w: level %q", ErrInvalidLogging, opts.Level)
		}

		return newSlogFromOptions(out, sl, format), nil

	case BackendLogrus:
		ll, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("%w: level %q", ErrInvalidLogging, opts.Level)
		}

		l := logrus.New()
		l.SetOutput(out)
		l.SetLevel(ll)
		if format == FormatJSON {
			l.SetFormatter(&logrus.JSONFormatter{})
		} else {
			l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
		}

		return NewLogrus(l), nil

	default:
		return nil, fmt.Errorf("%w: backend %q", ErrInvalidLogging, opts.Backend)
	}
}
