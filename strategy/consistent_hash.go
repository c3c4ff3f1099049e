package strategy

import (
	"sync/atomic"

	"github.com/arloliu/peerrouter/internal/hash"
	"github.com/arloliu/peerrouter/types"
)

// ConsistentHash implements preference-list selection on a consistent hash
// ring with virtual nodes.
type ConsistentHash struct {
	virtualNodes int
	hashSeed     uint64

	// cached ring for the last seen pool
	cached atomic.Pointer[ringCache]
}

type ringCache struct {
	fingerprint uint64
	ring        *hash.Ring
	peers       []types.Peer // deduplicated, aligned with ring.Peers()
}

var _ types.PeerSelector = (*ConsistentHash)(nil)

// ConsistentHashOption configures a ConsistentHash strategy.
type ConsistentHashOption func(*ConsistentHash)

// NewConsistentHash creates a new consistent hash strategy.
//
// The strategy places every peer on an xxh3 hash ring many times and picks
// the first distinct peers found clockwise from the key. Placement is
// deterministic for a given pool and seed.
//
// Parameters:
//   - opts: Optional configuration (WithVirtualNodes, WithHashSeed)
//
// Returns:
//   - *ConsistentHash: Initialized consistent hash strategy
//
// Example:
//
//	selector := strategy.NewConsistentHash(
//	    strategy.WithVirtualNodes(300),
//	)
//	router, err := peerrouter.NewRouter(&cfg, conn, src, selector)
func NewConsistentHash(opts ...ConsistentHashOption) *ConsistentHash {
	ch := &ConsistentHash{
		virtualNodes: 150, // default
		hashSeed:     0,
	}

	for _, opt := range opts {
		opt(ch)
	}

	return ch
}

// WithVirtualNodes sets the number of virtual nodes per peer.
//
// Higher values provide better distribution but increase memory usage.
// Recommended range: 100-300 (default: 150).
//
// Parameters:
//   - nodes: Number of virtual nodes per peer
//
// Returns:
//   - ConsistentHashOption: Configuration option
func WithVirtualNodes(nodes int) ConsistentHashOption {
	return func(ch *ConsistentHash) {
		ch.virtualNodes = nodes
	}
}

// WithHashSeed sets a custom hash seed for consistent hashing.
//
// Parameters:
//   - seed: Hash seed value
//
// Returns:
//   - ConsistentHashOption: Configuration option
func WithHashSeed(seed uint64) ConsistentHashOption {
	return func(ch *ConsistentHash) {
		ch.hashSeed = seed
	}
}

// Name returns the configuration name of the strategy.
func (ch *ConsistentHash) Name() string {
	return NameConsistentHash
}

// Select returns the first n distinct peers found walking the ring clockwise
// from the key's position.
//
// The ring is cached and rebuilt only when the pool fingerprint changes.
// Duplicate peer identities in the pool are collapsed, so the result never
// contains the same peer twice.
//
// Parameters:
//   - key: Content key
//   - pool: Candidate peers (never mutated)
//   - n: Number of peers wanted, clamped to the number of distinct peers
//
// Returns:
//   - []types.Peer: Selected peers in preference order
func (ch *ConsistentHash) Select(key types.Key, pool []types.Peer, n int) []types.Peer {
	if len(pool) == 0 || n <= 0 {
		return []types.Peer{}
	}

	rc := ch.ringFor(pool)
	idx := rc.ring.Successors(key, n)

	out := make([]types.Peer, len(idx))
	for i, j := range idx {
		out[i] = rc.peers[j]
	}

	return out
}

// ringFor returns the cached ring for pool, rebuilding it if the pool changed.
func (ch *ConsistentHash) ringFor(pool []types.Peer) *ringCache {
	keys := types.PeerKeys(pool)
	fp := hash.Fingerprint(keys)

	if rc := ch.cached.Load(); rc != nil && rc.fingerprint == fp {
		return rc
	}

	ring := hash.NewRing(keys, ch.virtualNodes, ch.hashSeed)

	byKey := make(map[types.Key]types.Peer, len(pool))
	for _, p := range pool {
		if _, ok := byKey[p.Key]; !ok {
			byKey[p.Key] = p
		}
	}
	ringPeers := ring.Peers()
	peers := make([]types.Peer, len(ringPeers))
	for i, k := range ringPeers {
		peers[i] = byKey[k]
	}

	rc := &ringCache{fingerprint: fp, ring: ring, peers: peers}
	ch.cached.Store(rc)

	return rc
}
