package types

import "context"

// PeerSource provides the candidate peer pool.
//
// The router calls ListPeers once while opening. The returned pool is fixed
// for the lifetime of the router: existing assignments are never recomputed.
type PeerSource interface {
	// ListPeers returns all candidate peers in a stable order.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - []Peer: Candidate peers
	//   - error: Discovery error (nil on success)
	ListPeers(ctx context.Context) ([]Peer, error)
}
