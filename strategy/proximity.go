package strategy

import (
	"github.com/arloliu/peerrouter/types"
)

// Proximity selects the peers whose identity keys are closest to the content
// key by XOR distance.
type Proximity struct{}

var _ types.PeerSelector = (*Proximity)(nil)

// NewProximity creates a new proximity strategy.
//
// The strategy is stateless and deterministic: it depends only on the key
// and the pool contents.
//
// Returns:
//   - *Proximity: Initialized proximity strategy
//
// Example:
//
//	router, err := peerrouter.NewRouter(&cfg, conn, src, strategy.NewProximity())
func NewProximity() *Proximity {
	return &Proximity{}
}

// Name returns the configuration name of the strategy.
func (p *Proximity) Name() string {
	return NameProximity
}

// Select returns the n peers nearest to key, nearest first.
//
// The algorithm is a partial selection sort over a copy of the pool. For each
// output position it scans the unsorted tail and swaps in the candidate with
// the smallest XOR distance. Distances compare as big-endian unsigned
// integers. Only a strictly smaller distance replaces the current pick, so the
// first encountered candidate wins ties.
//
// Parameters:
//   - key: Content key
//   - pool: Candidate peers (never mutated)
//   - n: Number of peers wanted, clamped to len(pool)
//
// Returns:
//   - []types.Peer: Selected peers, empty for an empty pool
func (p *Proximity) Select(key types.Key, pool []types.Peer, n int) []types.Peer {
	n = min(n, len(pool))
	if n <= 0 {
		return []types.Peer{}
	}

	candidates := make([]types.Peer, len(pool))
	copy(candidates, pool)

	for i := range n {
		best := i
		bestDist := key.Xor(candidates[i].Key)
		for j := i + 1; j < len(candidates); j++ {
			dist := key.Xor(candidates[j].Key)
			if dist.Compare(bestDist) < 0 {
				best = j
				bestDist = dist
			}
		}
		candidates[i], candidates[best] = candidates[best], candidates[i]
	}

	return candidates[:n:n]
}
