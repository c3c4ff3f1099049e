package hash

import (
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"

	"github.com/arloliu/peerrouter/types"
)

// Ring implements a consistent hash ring with virtual nodes.
//
// The ring maps content keys to peers using consistent hashing. Walking the
// ring clockwise from a key's position yields a stable preference list of
// distinct peers, which is what replica selection needs.
type Ring struct {
	// nodes contains all virtual nodes on the ring, sorted by hash
	nodes []virtualNode

	// peers holds the unique peer identities present on the ring
	peers []types.Key

	// seed for hash function (0 means no seed)
	seed uint64
}

// virtualNode represents a virtual node on the hash ring.
type virtualNode struct {
	hash    uint64 // Position on the ring
	peerIdx int    // Index of the peer in peers slice
}

// NewRing creates a new consistent hash ring.
//
// Duplicate peer keys are collapsed while preserving first-seen order, so the
// indexes returned by Successors refer to the deduplicated list.
//
// Parameters:
//   - peers: Peer identity keys to place on the ring
//   - virtualNodesPerPeer: Number of virtual nodes per peer (higher = better distribution)
//   - seed: Seed for hash function (0 for the unseeded hash)
//
// Returns:
//   - *Ring: Initialized hash ring
//
// Example:
//
//	ring := hash.NewRing(types.PeerKeys(pool), 150, 0)
//	idx := ring.Successors(contentKey, 3)
func NewRing(peers []types.Key, virtualNodesPerPeer int, seed uint64) *Ring {
	if virtualNodesPerPeer < 1 {
		virtualNodesPerPeer = 1
	}

	ring := &Ring{
		nodes: make([]virtualNode, 0, len(peers)*virtualNodesPerPeer),
		peers: make([]types.Key, 0, len(peers)),
		seed:  seed,
	}

	seen := make(map[types.Key]struct{}, len(peers))
	for _, p := range peers {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		ring.peers = append(ring.peers, p)
	}

	for i, p := range ring.peers {
		ring.addPeer(p, i, virtualNodesPerPeer)
	}

	slices.SortFunc(ring.nodes, func(a, b virtualNode) int {
		if a.hash < b.hash {
			return -1
		}
		if a.hash > b.hash {
			return 1
		}

		return a.peerIdx - b.peerIdx
	})

	return ring
}

// Successors returns the indexes of up to n distinct peers found walking the
// ring clockwise from the position of key.
//
// The first index is the primary owner of the key. When n exceeds the number
// of peers on the ring, every peer is returned exactly once.
//
// Parameters:
//   - key: Content key to place on the ring
//   - n: Number of distinct peers wanted
//
// Returns:
//   - []int: Indexes into Peers(), in preference order
func (r *Ring) Successors(key types.Key, n int) []int {
	if len(r.nodes) == 0 || n <= 0 {
		return []int{}
	}
	n = min(n, len(r.peers))

	start := r.search(r.HashKey(key))
	out := make([]int, 0, n)
	picked := make([]bool, len(r.peers))

	for i := 0; i < len(r.nodes) && len(out) < n; i++ {
		node := r.nodes[(start+i)%len(r.nodes)]
		if picked[node.peerIdx] {
			continue
		}
		picked[node.peerIdx] = true
		out = append(out, node.peerIdx)
	}

	return out
}

// Owner returns the index of the peer owning key, or -1 for an empty ring.
func (r *Ring) Owner(key types.Key) int {
	if len(r.nodes) == 0 {
		return -1
	}

	return r.nodes[r.search(r.HashKey(key))].peerIdx
}

// Peers returns the unique peers on the ring.
func (r *Ring) Peers() []types.Key {
	// Return a copy to avoid external mutation
	return append([]types.Key(nil), r.peers...)
}

// Size returns the total number of virtual nodes on the ring.
func (r *Ring) Size() int {
	return len(r.nodes)
}

// HashKey computes the ring position of a key using XXH3.
func (r *Ring) HashKey(key types.Key) uint64 {
	if r.seed != 0 {
		return xxh3.HashSeed(key[:], r.seed)
	}

	return xxh3.Hash(key[:])
}

// addPeer adds virtual nodes for a peer to the ring.
func (r *Ring) addPeer(peer types.Key, peerIdx int, virtualNodes int) {
	base := r.HashKey(peer)
	for i := range virtualNodes {
		// Fold the vnode index using the peer hash as seed for stable distribution.
		var ib [8]byte
		binary.LittleEndian.PutUint64(ib[:], uint64(i)) //nolint:gosec
		r.nodes = append(r.nodes, virtualNode{
			hash:    xxh3.HashSeed(ib[:], base),
			peerIdx: peerIdx,
		})
	}
}

// search returns the index of the first virtual node whose hash is >= target,
// wrapping around to the first node.
func (r *Ring) search(target uint64) int {
	idx, _ := slices.BinarySearchFunc(r.nodes, target, func(node virtualNode, t uint64) int {
		if node.hash < t {
			return -1
		}
		if node.hash > t {
			return 1
		}

		return 0
	})
	if idx >= len(r.nodes) {
		idx = 0
	}

	return idx
}

// Fingerprint folds a list of peer keys into a single xxh3 hash.
//
// Order matters: the same peers in a different order produce a different
// fingerprint. Callers use it to detect pool changes cheaply.
func Fingerprint(peers []types.Key) uint64 {
	var h uint64
	for i := range peers {
		h = xxh3.HashSeed(peers[i][:], h)
	}

	return h ^ uint64(len(peers)) //nolint:gosec
}
