package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/peerrouter/types"
)

func TestNewNop(t *testing.T) {
	hooks := NewNop()

	require.NotNil(t, hooks.OnStateChanged)
	require.NotNil(t, hooks.OnError)

	ctx := context.Background()
	require.NoError(t, hooks.OnStateChanged(ctx, types.StateCreated, types.StateOpen))
	require.NoError(t, hooks.OnError(ctx, errors.New("flush failed")))
	require.NoError(t, hooks.OnError(ctx, nil))
}

func TestFill(t *testing.T) {
	t.Run("nil hooks", func(t *testing.T) {
		hooks := Fill(nil)
		require.NotNil(t, hooks.OnStateChanged)
		require.NotNil(t, hooks.OnError)
	})

	t.Run("keeps user callbacks", func(t *testing.T) {
		called := false
		user := &types.Hooks{
			OnError: func(context.Context, error) error {
				called = true
				return nil
			},
		}

		hooks := Fill(user)
		require.NotNil(t, hooks.OnStateChanged)
		require.NoError(t, hooks.OnError(context.Background(), errors.New("x")))
		require.True(t, called)
		require.Nil(t, user.OnStateChanged, "input must not be modified")
	})
}
