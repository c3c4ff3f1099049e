package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/peerrouter/types"
)

func TestConsistentHash_Select(t *testing.T) {
	t.Run("is deterministic across instances", func(t *testing.T) {
		pool := makePool(8)
		a, b := NewConsistentHash(), NewConsistentHash()

		for i := range 32 {
			key := filledKey(byte(i))
			require.Equal(t, a.Select(key, pool, 3), b.Select(key, pool, 3))
		}
	})

	t.Run("returns distinct peers", func(t *testing.T) {
		ch := NewConsistentHash(WithVirtualNodes(50))
		got := ch.Select(filledKey(0x77), makePool(6), 4)

		require.Len(t, got, 4)
		require.True(t, distinct(got))
	})

	t.Run("collapses duplicate identities", func(t *testing.T) {
		pool := makePool(2)
		pool = append(pool, pool...)

		got := NewConsistentHash().Select(filledKey(9), pool, 4)

		require.Len(t, got, 2)
		require.True(t, distinct(got))
	})

	t.Run("clamps n to pool size", func(t *testing.T) {
		got := NewConsistentHash().Select(filledKey(1), makePool(1), 5)
		require.Len(t, got, 1)
	})

	t.Run("empty pool yields empty result", func(t *testing.T) {
		require.Empty(t, NewConsistentHash().Select(filledKey(1), nil, 2))
	})

	t.Run("rebuilds the ring when the pool changes", func(t *testing.T) {
		ch := NewConsistentHash()
		small := makePool(2)
		large := makePool(9)

		_ = ch.Select(filledKey(1), small, 1)
		first := ch.cached.Load()
		_ = ch.Select(filledKey(2), small, 1)
		require.Same(t, first, ch.cached.Load())

		got := ch.Select(filledKey(1), large, 9)
		require.NotSame(t, first, ch.cached.Load())
		require.ElementsMatch(t, large, got)
	})

	t.Run("keeps peer metadata", func(t *testing.T) {
		pool := makePool(3)
		got := NewConsistentHash(WithHashSeed(7)).Select(filledKey(3), pool, 3)

		byKey := make(map[types.Key]string)
		for _, p := range pool {
			byKey[p.Key] = p.Location
		}
		for _, p := range got {
			require.Equal(t, byKey[p.Key], p.Location)
		}
	})
}

func TestByName(t *testing.T) {
	t.Run("builds every built-in strategy", func(t *testing.T) {
		for _, name := range Names() {
			sel, err := ByName(name)
			require.NoError(t, err, name)
			require.NotNil(t, sel)
			require.Equal(t, name, sel.(interface{ Name() string }).Name())
		}
	})

	t.Run("is case-insensitive", func(t *testing.T) {
		sel, err := ByName(" Round-Robin ")
		require.NoError(t, err)
		require.IsType(t, &RoundRobin{}, sel)
	})

	t.Run("returns fresh instances", func(t *testing.T) {
		a, _ := ByName(NameRoundRobin)
		b, _ := ByName(NameRoundRobin)
		require.NotSame(t, a, b)
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		_, err := ByName("random")
		require.ErrorIs(t, err, ErrUnknownStrategy)
	})
}
