package testutil

import (
	"slices"
	"testing"

	"github.com/arloliu/peerrouter/types"
)

// AssertAssignmentValid verifies the shape of one assignment: it belongs to
// key, has exactly replicas peers, every peer comes from pool and no peer
// repeats.
//
// Parameters:
//   - t: testing handle
//   - a: assignment under test
//   - key: expected content key
//   - pool: candidate peer pool
//   - replicas: expected peer count
func AssertAssignmentValid(t *testing.T, a types.Assignment, key types.Key, pool []types.Peer, replicas int) {
	t.Helper()

	if a.Key != key {
		t.Fatalf("assignment key %s does not match %s", a.Key.Short(), key.Short())
	}
	if len(a.Peers) != replicas {
		t.Fatalf("assignment for %s has %d peers, want %d", key.Short(), len(a.Peers), replicas)
	}

	seen := make(map[types.Key]struct{}, len(a.Peers))
	for _, p := range a.Peers {
		if !slices.Contains(pool, p) {
			t.Fatalf("assignment for %s contains peer %s outside the pool", key.Short(), p.Key.Short())
		}
		if _, dup := seen[p.Key]; dup {
			t.Fatalf("duplicate peer %s in assignment for %s", p.Key.Short(), key.Short())
		}
		seen[p.Key] = struct{}{}
	}
}

// AssertAgreement verifies that every observation of key reports the same peers.
func AssertAgreement(t *testing.T, key types.Key, observed ...types.Assignment) {
	t.Helper()

	for i := 1; i < len(observed); i++ {
		if !slices.Equal(observed[0].PeerKeys(), observed[i].PeerKeys()) {
			t.Fatalf("observation %d of %s disagrees: %v vs %v",
				i, key.Short(), observed[0].PeerKeys(), observed[i].PeerKeys())
		}
	}
}
