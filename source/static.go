package source

import (
	"context"
	"sync"

	"github.com/arloliu/peerrouter/types"
)

// Static implements a peer source with a fixed list of peers.
type Static struct {
	mu    sync.RWMutex
	peers []types.Peer
}

var _ types.PeerSource = (*Static)(nil)

// NewStatic creates a new static peer source.
//
// Parameters:
//   - peers: Fixed list of peers, copied
//
// Returns:
//   - *Static: Initialized static source
//
// Example:
//
//	src := source.NewStatic([]types.Peer{
//	    {Key: types.MustParseKey("9c0f...e1"), Location: "eu-west"},
//	    {Key: types.MustParseKey("41d2...7a"), Location: "us-east"},
//	})
//	router, err := peerrouter.NewRouter(&cfg, nc, src, strategy.NewRoundRobin())
func NewStatic(peers []types.Peer) *Static {
	s := &Static{}
	s.Update(peers)

	return s
}

// ListPeers returns a copy of the peer list.
//
// Returns:
//   - []types.Peer: The fixed list of peers
//   - error: Always nil (never fails)
func (s *Static) ListPeers(_ context.Context) ([]types.Peer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.Peer, len(s.peers))
	copy(result, s.peers)

	return result, nil
}

// Update replaces the peer list.
//
// A router reads its pool once on Open, so updates only affect routers
// opened afterwards.
func (s *Static) Update(peers []types.Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.peers = make([]types.Peer, len(peers))
	copy(s.peers, peers)
}
