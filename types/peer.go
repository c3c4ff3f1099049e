package types

import "slices"

// Peer describes a candidate storage peer.
//
// Peers are constructed once at startup from configuration and never mutated.
// Identity uniqueness is assumed but not enforced.
type Peer struct {
	// Key is the peer's identity (public) key.
	Key Key `json:"key" yaml:"key"`

	// Location is optional free-form placement metadata (region, rack, host).
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// String returns the peer identity in hex form.
func (p Peer) String() string {
	return p.Key.String()
}

// PeerKeys returns the identity keys of peers, preserving order.
func PeerKeys(peers []Peer) []Key {
	keys := make([]Key, len(peers))
	for i, p := range peers {
		keys[i] = p.Key
	}

	return keys
}

// Assignment is the permanent mapping from a content key to its chosen peers.
//
// Created exactly once per distinct key, on first resolution, and never
// mutated afterwards.
type Assignment struct {
	// Key is the content key this assignment belongs to.
	Key Key `json:"key"`

	// Peers is the ordered set of responsible peers.
	Peers []Peer `json:"peers"`
}

// PeerKeys returns the identity keys of the assigned peers.
func (a Assignment) PeerKeys() []Key {
	return PeerKeys(a.Peers)
}

// Clone returns a deep copy of the assignment.
func (a Assignment) Clone() Assignment {
	return Assignment{Key: a.Key, Peers: slices.Clone(a.Peers)}
}
