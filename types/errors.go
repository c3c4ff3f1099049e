package types

import "errors"

// Sentinel errors for the peerrouter library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components should use these sentinel errors for known error conditions
// and wrap external errors with context using fmt.Errorf("%s: %w", msg, err).

// Router errors - Public API errors returned by the Router.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNATSConnectionRequired is returned when the NATS connection is nil and no store was injected.
	ErrNATSConnectionRequired = errors.New("NATS connection is required")

	// ErrPeerSourceRequired is returned when the peer source is nil.
	ErrPeerSourceRequired = errors.New("peer source is required")

	// ErrPeerSelectorRequired is returned when the peer selector is nil.
	ErrPeerSelectorRequired = errors.New("peer selector is required")

	// ErrEmptyPeerPool is returned when the peer source yields no peers.
	// This is a fatal configuration error reported before the router becomes ready.
	ErrEmptyPeerPool = errors.New("at least one peer is required")

	// ErrAlreadyOpen is returned when Open is called on an open router.
	ErrAlreadyOpen = errors.New("router already open")

	// ErrNotOpen is returned when an operation requires an open router.
	ErrNotOpen = errors.New("router not open")

	// ErrClosed is returned when Open is called on a closed router.
	ErrClosed = errors.New("router closed")

	// ErrInvalidKey is returned when a key cannot be decoded.
	ErrInvalidKey = errors.New("invalid key")
)

// Store errors - Assignment store errors.
var (
	// ErrStoreRead is returned when an assignment cannot be read.
	// Read failures are never swallowed.
	ErrStoreRead = errors.New("assignment store read failed")

	// ErrFlushFailed is returned when buffered writes cannot be committed.
	ErrFlushFailed = errors.New("assignment store flush failed")

	// ErrStoreClosed is returned when a closed store is used.
	ErrStoreClosed = errors.New("assignment store closed")

	// ErrConnectivity indicates a NATS/KV connectivity issue.
	// This is used to distinguish network failures from application errors.
	ErrConnectivity = errors.New("connectivity issue")
)

// Coordinator errors - Flush coordinator errors.
var (
	// ErrCoordinatorAlreadyStarted is returned when Start is called on a running coordinator.
	ErrCoordinatorAlreadyStarted = errors.New("flush coordinator already started")

	// ErrCoordinatorNotStarted is returned when Stop is called before Start.
	ErrCoordinatorNotStarted = errors.New("flush coordinator not started")
)
