package testutil

import (
	"context"
	"crypto/sha256"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/peerrouter"
	"github.com/arloliu/peerrouter/source"
	"github.com/arloliu/peerrouter/strategy"
	routertest "github.com/arloliu/peerrouter/testing"
	"github.com/arloliu/peerrouter/types"
)

// StartEmbeddedNATS starts an embedded NATS server for integration tests.
// It wraps the peerrouter/testing package function for convenience.
func StartEmbeddedNATS(t *testing.T) (*nats.Conn, func()) {
	t.Helper()
	srv, nc := routertest.StartEmbeddedNATS(t)
	cleanup := func() {
		nc.Close()
		srv.Shutdown()
		srv.WaitForShutdown()
	}

	return nc, cleanup
}

// IntegrationTestConfig provides default configuration for integration tests.
//
// The RPC service is disabled so that several routers can share one
// connection without competing for requests; tests that need it enable it.
func IntegrationTestConfig() peerrouter.Config {
	cfg := peerrouter.TestConfig()
	cfg.ReplicaCount = 3
	cfg.RPC.Disabled = true
	cfg.Mirror.Subject = ""
	cfg.KV.Bucket = "it-assignments"
	cfg.OperationTimeout = 5 * time.Second

	return cfg
}

// CreateTestPeers builds n peers with deterministic identities.
func CreateTestPeers(n int) []types.Peer {
	peers := make([]types.Peer, n)
	for i := range peers {
		peers[i] = types.Peer{
			Key:      types.Key(sha256.Sum256(fmt.Appendf(nil, "peer-%d", i))),
			Location: fmt.Sprintf("zone-%d", i%3),
		}
	}

	return peers
}

// CreateTestKeys builds n distinct content keys.
func CreateTestKeys(n int) []types.Key {
	keys := make([]types.Key, n)
	for i := range keys {
		keys[i] = types.Key(sha256.Sum256(fmt.Appendf(nil, "content-%d", i)))
	}

	return keys
}

// RouterCluster manages several routers sharing one assignment bucket.
type RouterCluster struct {
	Routers []*peerrouter.Router
	Config  peerrouter.Config
	Peers   []types.Peer
	NC      *nats.Conn
	T       *testing.T

	// NewSelector builds the selector for each router. Defaults to round-robin,
	// which gives every router its own cursor.
	NewSelector func() types.PeerSelector
}

// NewRouterCluster creates a router cluster for testing.
func NewRouterCluster(t *testing.T, nc *nats.Conn, numPeers int) *RouterCluster {
	return &RouterCluster{
		Routers:     make([]*peerrouter.Router, 0),
		Config:      IntegrationTestConfig(),
		Peers:       CreateTestPeers(numPeers),
		NC:          nc,
		T:           t,
		NewSelector: func() types.PeerSelector { return strategy.NewRoundRobin() },
	}
}

// AddRouter creates and opens a router on the cluster bucket.
//
// Parameters:
//   - ctx: Context for Open
//   - opts: Extra router options
//
// Returns:
//   - *peerrouter.Router: The opened router
func (rc *RouterCluster) AddRouter(ctx context.Context, opts ...peerrouter.Option) *peerrouter.Router {
	idx := len(rc.Routers)
	cfg := rc.Config

	router, err := peerrouter.NewRouter(&cfg, rc.NC, source.NewStatic(rc.Peers), rc.NewSelector(), opts...)
	require.NoError(rc.T, err, "failed to create router %d", idx)
	require.NoError(rc.T, router.Open(ctx), "router %d failed to open", idx)

	rc.Routers = append(rc.Routers, router)

	return router
}

// CloseRouters closes all routers. Close errors are logged, not fatal.
func (rc *RouterCluster) CloseRouters() {
	for i, router := range rc.Routers {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := router.Close(closeCtx); err != nil {
			rc.T.Logf("Router %d close error (non-fatal): %v", i, err)
		}
		cancel()
	}
}

// FlushAll requests a flush on every router.
func (rc *RouterCluster) FlushAll(ctx context.Context) {
	for i, router := range rc.Routers {
		_, err := router.Flush(ctx)
		require.NoError(rc.T, err, "router %d flush failed", i)
	}
}
