package strategy

import (
	"github.com/arloliu/peerrouter/types"
)

// makePool returns n peers whose keys differ in the first byte.
func makePool(n int) []types.Peer {
	pool := make([]types.Peer, n)
	for i := range pool {
		var k types.Key
		k[0] = byte(i * 16)
		k[31] = byte(i)
		pool[i] = types.Peer{Key: k, Location: "zone-" + string(rune('a'+i%26))}
	}

	return pool
}

func filledKey(b byte) types.Key {
	var k types.Key
	for i := range k {
		k[i] = b
	}

	return k
}

func distinct(peers []types.Peer) bool {
	seen := make(map[types.Key]struct{}, len(peers))
	for _, p := range peers {
		if _, ok := seen[p.Key]; ok {
			return false
		}
		seen[p.Key] = struct{}{}
	}

	return true
}
