package natsutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/peerrouter/types"
)

func TestIsConnectivityError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", types.ErrConnectivity, true},
		{"timeout", fmt.Errorf("get: %w", nats.ErrTimeout), true},
		{"no servers", nats.ErrNoServers, true},
		{"closed", nats.ErrConnectionClosed, true},
		{"refused text", errors.New("dial tcp: connection refused"), true},
		{"key not found", jetstream.ErrKeyNotFound, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, IsConnectivityError(tc.err))
		})
	}
}

func TestIsKeyExists(t *testing.T) {
	require.True(t, IsKeyExists(fmt.Errorf("create: %w", jetstream.ErrKeyExists)))
	require.False(t, IsKeyExists(jetstream.ErrKeyNotFound))
	require.False(t, IsKeyExists(nil))
}
