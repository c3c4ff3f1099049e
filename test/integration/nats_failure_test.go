package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/peerrouter"
	"github.com/arloliu/peerrouter/source"
	"github.com/arloliu/peerrouter/strategy"
	routertest "github.com/arloliu/peerrouter/testing"
	"github.com/arloliu/peerrouter/test/testutil"
)

// TestNATSFailure_ResolveReportsStoreErrors verifies behavior when NATS goes
// away while a router is open.
//
// Scenario:
//  1. Open a router and resolve one key
//  2. Shut the NATS server down
//  3. Resolve a new key
//
// Expected: The resolve fails with ErrStoreRead instead of inventing an
// unpersisted assignment, and Close still completes.
func TestNATSFailure_ResolveReportsStoreErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	t.Parallel()

	srv, nc := routertest.StartEmbeddedNATS(t)

	cfg := testutil.IntegrationTestConfig()
	router, err := peerrouter.NewRouter(&cfg, nc, source.NewStatic(testutil.CreateTestPeers(4)), strategy.NewRoundRobin())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, router.Open(ctx))

	keys := testutil.CreateTestKeys(2)
	_, err = router.Resolve(ctx, keys[0])
	require.NoError(t, err)

	t.Log("Shutting down NATS server")
	srv.Shutdown()
	srv.WaitForShutdown()

	resolveCtx, resolveCancel := context.WithTimeout(ctx, 2*time.Second)
	defer resolveCancel()
	_, err = router.Resolve(resolveCtx, keys[1])
	require.ErrorIs(t, err, peerrouter.ErrStoreRead)
	require.Equal(t, peerrouter.StateOpen, router.State(), "store failures do not change lifecycle state")

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	require.NoError(t, router.Close(closeCtx))
	require.Equal(t, peerrouter.StateClosed, router.State())
}

// TestNATSFailure_OpenWithoutServer verifies that Open surfaces bucket
// provisioning failures and leaves the router reusable.
func TestNATSFailure_OpenWithoutServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	t.Parallel()

	srv, nc := routertest.StartEmbeddedNATS(t)
	srv.Shutdown()
	srv.WaitForShutdown()

	cfg := testutil.IntegrationTestConfig()
	router, err := peerrouter.NewRouter(&cfg, nc, source.NewStatic(testutil.CreateTestPeers(2)), strategy.NewRoundRobin())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.Error(t, router.Open(ctx))
	require.Equal(t, peerrouter.StateCreated, router.State())
}
