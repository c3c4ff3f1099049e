package strategy

import (
	"sync/atomic"

	"github.com/arloliu/peerrouter/types"
)

// RoundRobin implements rotating-cursor peer selection.
//
// The cursor lives on the instance for the lifetime of the process. Each
// router owns its own instance so that independent routers do not share
// rotation state.
type RoundRobin struct {
	cursor atomic.Uint64
}

var _ types.PeerSelector = (*RoundRobin)(nil)

// NewRoundRobin creates a new round-robin strategy.
//
// The strategy spreads new assignments evenly over the pool. The result of a
// call depends on how many peers were handed out before it, so it does not
// preserve any relationship between a key and its peers.
//
// Returns:
//   - *RoundRobin: Initialized round-robin strategy with cursor at zero
//
// Example:
//
//	router, err := peerrouter.NewRouter(&cfg, conn, src, strategy.NewRoundRobin())
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Name returns the configuration name of the strategy.
func (rr *RoundRobin) Name() string {
	return NameRoundRobin
}

// Select returns n consecutive peers starting at the cursor, wrapping around
// the pool, and advances the cursor by n.
//
// The window is reserved with a single atomic add, so concurrent callers
// receive disjoint windows with no duplicated or skipped slots.
//
// Parameters:
//   - _: Content key (unused)
//   - pool: Candidate peers (never mutated)
//   - n: Number of peers wanted, clamped to len(pool)
//
// Returns:
//   - []types.Peer: Selected peers, empty for an empty pool
//
// Example:
//
//	rr := strategy.NewRoundRobin()
//	rr.Select(k1, pool, 2) // pool[0], pool[1]
//	rr.Select(k2, pool, 2) // pool[2], pool[0] (for a pool of 3)
func (rr *RoundRobin) Select(_ types.Key, pool []types.Peer, n int) []types.Peer {
	n = min(n, len(pool))
	if n <= 0 {
		return []types.Peer{}
	}

	// Reserve [start, start+n) in one step.
	start := rr.cursor.Add(uint64(n)) - uint64(n) //nolint:gosec

	size := uint64(len(pool))
	out := make([]types.Peer, n)
	for i := range out {
		out[i] = pool[(start+uint64(i))%size] //nolint:gosec
	}

	return out
}

// Cursor returns the number of slots handed out so far.
func (rr *RoundRobin) Cursor() uint64 {
	return rr.cursor.Load()
}
