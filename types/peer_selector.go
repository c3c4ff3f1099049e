package types

// PeerSelector chooses the peers responsible for a content key.
//
// Built-in selectors (see the strategy package):
//   - Proximity: nearest peers by XOR distance (content-derived)
//   - RoundRobin: cyclic rotation through the pool (not content-derived)
//   - ConsistentHash: preference list on an xxh3 hash ring (content-derived)
//
// The resolver calls Select only on a cache miss; the result is persisted and
// never recomputed for the same key.
//
// Implementations must:
//   - Return min(n, len(pool)) distinct peers taken from pool
//   - Return an empty slice for an empty pool
//   - Never mutate pool
//   - Be safe for concurrent use
type PeerSelector interface {
	// Select returns the ordered peers for key.
	//
	// Parameters:
	//   - key: Content key being assigned
	//   - pool: Candidate peers
	//   - n: Number of peers to select (clamped to len(pool))
	//
	// Returns:
	//   - []Peer: Selected peers
	Select(key Key, pool []Peer, n int) []Peer
}
