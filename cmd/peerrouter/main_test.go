package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/peerrouter"
	routertest "github.com/arloliu/peerrouter/testing"
)

const testPeerKey = "0101010101010101010101010101010101010101010101010101010101010101"

func TestRun_UnknownCommand(t *testing.T) {
	require.Equal(t, 1, run([]string{"bogus"}))
}

func TestLoadServeConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "replicaCount: 2\nstrategy: proximity\npeers:\n  - key: \"" + testPeerKey + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Run("file values without overrides", func(t *testing.T) {
		f, set, err := parseServeFlags([]string{"-config", path})
		require.NoError(t, err)

		cfg, err := loadServeConfig(f, set)
		require.NoError(t, err)
		require.Equal(t, 2, cfg.ReplicaCount)
		require.Equal(t, "proximity", cfg.Strategy)
		require.Equal(t, peerrouter.FlushModeAuto, cfg.FlushMode())
	})

	t.Run("explicit flags win", func(t *testing.T) {
		f, set, err := parseServeFlags([]string{
			"-config", path,
			"-r", "3",
			"-flush-mode", "debounced",
			"-metrics-addr", ":9191",
		})
		require.NoError(t, err)

		cfg, err := loadServeConfig(f, set)
		require.NoError(t, err)
		require.Equal(t, 3, cfg.ReplicaCount)
		require.Equal(t, "proximity", cfg.Strategy)
		require.Equal(t, peerrouter.FlushModeDebounced, cfg.FlushMode())
		require.True(t, cfg.Metrics.Enabled)
		require.Equal(t, ":9191", cfg.Metrics.Address)
	})

	t.Run("invalid override", func(t *testing.T) {
		f, set, err := parseServeFlags([]string{"-config", path, "-strategy", "random"})
		require.NoError(t, err)

		_, err = loadServeConfig(f, set)
		require.ErrorIs(t, err, peerrouter.ErrInvalidConfig)
	})
}

func TestConnectNATS_Embedded(t *testing.T) {
	nc, shutdown, err := connectNATS(peerrouter.NATSConfig{
		Embedded: true,
		StoreDir: t.TempDir(),
	}, routertest.NewTestLogger(t))
	require.NoError(t, err)
	defer shutdown()

	require.True(t, nc.IsConnected())
	require.NoError(t, nc.FlushTimeout(time.Second))
}

func TestParseKeyArg(t *testing.T) {
	_, err := parseKeyArg(testPeerKey)
	require.NoError(t, err)

	_, err = parseKeyArg("xyz")
	require.ErrorIs(t, err, peerrouter.ErrInvalidKey)
}

func TestPeerSource(t *testing.T) {
	_, nc := routertest.StartEmbeddedNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("static pool from configuration", func(t *testing.T) {
		cfg := peerrouter.DefaultConfig()
		cfg.Peers = []peerrouter.PeerConfig{{Key: testPeerKey, Location: "eu-west"}}

		src, err := openPeerSource(ctx, cfg, nc)
		require.NoError(t, err)

		peers, err := src.ListPeers(ctx)
		require.NoError(t, err)
		require.Len(t, peers, 1)
		require.Equal(t, "eu-west", peers[0].Location)
	})

	t.Run("registered peers from KV", func(t *testing.T) {
		second := "0202020202020202020202020202020202020202020202020202020202020202"
		require.NoError(t, registerPeers(ctx, nc, "cli-peers", "peer", "memory", "us-east",
			[]string{second, testPeerKey}))

		cfg := peerrouter.DefaultConfig()
		cfg.KV.Storage = "memory"
		cfg.PeerSource = peerrouter.PeerSourceConfig{Type: peerrouter.PeerSourceKV, Bucket: "cli-peers", KeyPrefix: "peer"}
		// Ignored with the kv source
		cfg.Peers = []peerrouter.PeerConfig{{Key: "0303030303030303030303030303030303030303030303030303030303030303"}}

		src, err := openPeerSource(ctx, cfg, nc)
		require.NoError(t, err)

		peers, err := src.ListPeers(ctx)
		require.NoError(t, err)
		require.Len(t, peers, 2)
		require.Equal(t, testPeerKey, peers[0].Key.String())
		require.Equal(t, second, peers[1].Key.String())
		require.Equal(t, "us-east", peers[1].Location)
	})

	t.Run("register rejects bad keys before writing", func(t *testing.T) {
		err := registerPeers(ctx, nc, "cli-peers-bad", "peer", "memory", "", []string{"xyz"})
		require.ErrorIs(t, err, peerrouter.ErrInvalidKey)
	})
}

func TestRun_RegisterUsage(t *testing.T) {
	require.Equal(t, 1, run([]string{"register"}))
}
