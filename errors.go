package peerrouter

import (
	"github.com/arloliu/peerrouter/strategy"
	"github.com/arloliu/peerrouter/types"
)

// Sentinel errors returned by the Router.
//
// They alias the errors defined in the types package so callers can match
// with errors.Is against either.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrNATSConnectionRequired is returned when NATS connection is nil and no store was injected.
	ErrNATSConnectionRequired = types.ErrNATSConnectionRequired

	// ErrPeerSourceRequired is returned when the peer source is nil.
	ErrPeerSourceRequired = types.ErrPeerSourceRequired

	// ErrPeerSelectorRequired is returned when the peer selector is nil.
	ErrPeerSelectorRequired = types.ErrPeerSelectorRequired

	// ErrEmptyPeerPool is returned by Open when the peer source yields no peers.
	ErrEmptyPeerPool = types.ErrEmptyPeerPool

	// ErrAlreadyOpen is returned when Open is called on an open router.
	ErrAlreadyOpen = types.ErrAlreadyOpen

	// ErrNotOpen is returned when Resolve or Flush is called before Open.
	ErrNotOpen = types.ErrNotOpen

	// ErrClosed is returned when a closed router is used.
	ErrClosed = types.ErrClosed

	// ErrInvalidKey is returned when a key cannot be decoded.
	ErrInvalidKey = types.ErrInvalidKey

	// ErrStoreRead is returned when an assignment cannot be read.
	ErrStoreRead = types.ErrStoreRead

	// ErrFlushFailed is returned when buffered assignments cannot be committed.
	ErrFlushFailed = types.ErrFlushFailed

	// ErrConnectivity marks errors caused by NATS connectivity.
	ErrConnectivity = types.ErrConnectivity

	// ErrUnknownStrategy is returned for an unrecognized strategy name.
	ErrUnknownStrategy = strategy.ErrUnknownStrategy
)
