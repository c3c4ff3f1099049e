package strategy

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/peerrouter/types"
)

func TestProximity_Select(t *testing.T) {
	t.Run("orders peers by xor distance", func(t *testing.T) {
		var near, mid, far types.Key
		near[0] = 0x01
		mid[0] = 0x10
		far[0] = 0xF0
		pool := []types.Peer{{Key: far}, {Key: mid}, {Key: near}}

		got := NewProximity().Select(types.Key{}, pool, 3)

		require.Equal(t, []types.Key{near, mid, far}, types.PeerKeys(got))
	})

	t.Run("compares distances big-endian", func(t *testing.T) {
		// a differs only in the last byte, b in the first: a is nearer.
		var a, b types.Key
		a[31] = 0xFF
		b[0] = 0x01
		pool := []types.Peer{{Key: b}, {Key: a}}

		got := NewProximity().Select(types.Key{}, pool, 1)

		require.Equal(t, a, got[0].Key)
	})

	t.Run("first encountered wins ties", func(t *testing.T) {
		var k types.Key
		k[5] = 0x42
		pool := []types.Peer{{Key: k, Location: "first"}, {Key: k, Location: "second"}}

		got := NewProximity().Select(types.Key{}, pool, 1)

		require.Equal(t, "first", got[0].Location)
	})

	t.Run("is deterministic", func(t *testing.T) {
		pool := makePool(10)
		p := NewProximity()
		key := filledKey(0xaa)

		first := p.Select(key, pool, 3)
		for range 10 {
			require.Equal(t, first, p.Select(key, pool, 3))
		}
		require.Equal(t, first, NewProximity().Select(key, pool, 3))
	})

	t.Run("does not mutate the pool", func(t *testing.T) {
		pool := makePool(6)
		before := slices.Clone(pool)

		_ = NewProximity().Select(filledKey(0xff), pool, 4)

		require.Equal(t, before, pool)
	})

	t.Run("clamps n to pool size", func(t *testing.T) {
		got := NewProximity().Select(filledKey(1), makePool(1), 5)
		require.Len(t, got, 1)
	})

	t.Run("returns distinct peers", func(t *testing.T) {
		got := NewProximity().Select(filledKey(0x33), makePool(8), 5)
		require.Len(t, got, 5)
		require.True(t, distinct(got))
	})

	t.Run("empty pool yields empty result", func(t *testing.T) {
		got := NewProximity().Select(filledKey(1), nil, 3)
		require.NotNil(t, got)
		require.Empty(t, got)
	})

	t.Run("non-positive n yields empty result", func(t *testing.T) {
		require.Empty(t, NewProximity().Select(filledKey(1), makePool(3), 0))
		require.Empty(t, NewProximity().Select(filledKey(1), makePool(3), -1))
	})
}

func BenchmarkProximity_Select(b *testing.B) {
	pool := makePool(64)
	p := NewProximity()
	key := filledKey(0x5a)

	for b.Loop() {
		_ = p.Select(key, pool, 3)
	}
}
