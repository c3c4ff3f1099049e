package peerrouter

import "github.com/arloliu/peerrouter/types"

// Re-export types from the types package.
//
// Internal packages depend on types only, which keeps them free of import
// cycles with the root package while callers can still write
// peerrouter.Key, peerrouter.Assignment and so on.
type (
	Key        = types.Key
	Peer       = types.Peer
	Assignment = types.Assignment
	State      = types.State
	FlushMode  = types.FlushMode
)

// Re-export interfaces from the types package for convenience.
type (
	PeerSource       = types.PeerSource
	PeerSelector     = types.PeerSelector
	AssignmentStore  = types.AssignmentStore
	Notifier         = types.Notifier
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Hooks            = types.Hooks
)

// Re-export State constants from the types package.
const (
	StateCreated = types.StateCreated
	StateOpen    = types.StateOpen
	StateClosed  = types.StateClosed
)

// Re-export FlushMode constants from the types package.
const (
	FlushModeAuto      = types.FlushModeAuto
	FlushModeDebounced = types.FlushModeDebounced
)

// ParseKey decodes a 64-character hex key or a multibase-encoded key.
func ParseKey(s string) (Key, error) {
	return types.ParseKey(s)
}
