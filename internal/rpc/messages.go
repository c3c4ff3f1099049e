package rpc

import "github.com/arloliu/peerrouter/types"

// Endpoint names.
const (
	EndpointGetPeers     = "get-peers"
	EndpointResolvePeers = "resolve-peers"
)

// Service error codes.
const (
	CodeBadRequest = "400"
	CodeInternal   = "500"
)

// KeyRequest is the request body of both endpoints.
//
// Key accepts hex or any multibase encoding of a 32-byte key.
type KeyRequest struct {
	Key string `json:"key"`
}

// GetPeersResponse carries bare peer identities.
type GetPeersResponse struct {
	Peers []types.Key `json:"peers"`
}

// ResolvePeersResponse carries full peer descriptors.
type ResolvePeersResponse struct {
	Key   types.Key    `json:"key"`
	Peers []types.Peer `json:"peers"`
}
