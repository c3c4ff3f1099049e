package types

import (
	"fmt"
	"strings"
)

// FlushState represents the state of the flush coordinator.
//
// The coordinator transitions through these states:
//
//	Idle → Pending → Flushing → Idle
//	                         ↘ Pending (writes arrived during the flush, or the flush failed)
type FlushState int

const (
	// FlushStateIdle indicates no buffered writes since the last successful flush.
	FlushStateIdle FlushState = iota

	// FlushStatePending indicates buffered writes are waiting for the next tick.
	FlushStatePending

	// FlushStateFlushing indicates a flush is in progress.
	// At most one flush runs at a time.
	FlushStateFlushing
)

// String returns the string representation of the flush state.
func (s FlushState) String() string {
	switch s {
	case FlushStateIdle:
		return "Idle"
	case FlushStatePending:
		return "Pending"
	case FlushStateFlushing:
		return "Flushing"
	default:
		return "Unknown"
	}
}

// FlushMode selects how assignment writes are committed.
type FlushMode string

const (
	// FlushModeAuto commits every write synchronously on the request path.
	// Flush errors propagate to the caller of Resolve.
	FlushModeAuto FlushMode = "auto"

	// FlushModeDebounced buffers writes and lets the flush coordinator
	// commit them in batches on a timer.
	FlushModeDebounced FlushMode = "debounced"
)

// ParseFlushMode parses a flush mode name (case-insensitive).
//
// Parameters:
//   - s: Mode name ("auto" or "debounced")
//
// Returns:
//   - FlushMode: Parsed mode
//   - error: Error for unknown names
func ParseFlushMode(s string) (FlushMode, error) {
	switch FlushMode(strings.ToLower(strings.TrimSpace(s))) {
	case FlushModeAuto:
		return FlushModeAuto, nil
	case FlushModeDebounced:
		return FlushModeDebounced, nil
	default:
		return FlushModeAuto, fmt.Errorf("unknown flush mode %q", s)
	}
}
