package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/peerrouter/types"
)

// DefaultPeerKeyPrefix is the KV key prefix for registered peers.
const DefaultPeerKeyPrefix = "peer"

// KV reads peers registered in a JetStream KV bucket.
//
// Each peer is stored under "<prefix>.<hex peer key>" as a JSON Peer. The
// list is ordered by peer key so every router reading the same bucket sees
// the same pool order.
type KV struct {
	kv     jetstream.KeyValue
	prefix string
}

var _ types.PeerSource = (*KV)(nil)

// NewKV creates a KV-backed peer source.
//
// Parameters:
//   - kv: Bucket holding peer registrations
//   - prefix: Key prefix (DefaultPeerKeyPrefix if empty)
//
// Returns:
//   - *KV: Peer source
func NewKV(kv jetstream.KeyValue, prefix string) *KV {
	if prefix == "" {
		prefix = DefaultPeerKeyPrefix
	}

	return &KV{kv: kv, prefix: prefix}
}

// Register stores a peer in the bucket, replacing any previous entry.
func (s *KV) Register(ctx context.Context, p types.Peer) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode peer %s: %w", p.Key.Short(), err)
	}

	if _, err := s.kv.Put(ctx, s.prefix+"."+p.Key.String(), data); err != nil {
		return fmt.Errorf("failed to register peer %s: %w", p.Key.Short(), err)
	}

	return nil
}

// ListPeers returns every registered peer ordered by key.
func (s *KV) ListPeers(ctx context.Context) ([]types.Peer, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list peers: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	peers := []types.Peer{}
	for key := range lister.Keys() {
		if !strings.HasPrefix(key, s.prefix+".") {
			continue
		}

		entry, err := s.kv.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue // deleted between list and get
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read peer %s: %w", key, err)
		}

		var p types.Peer
		if err := json.Unmarshal(entry.Value(), &p); err != nil {
			return nil, fmt.Errorf("failed to decode peer %s: %w", key, err)
		}
		peers = append(peers, p)
	}

	slices.SortFunc(peers, func(a, b types.Peer) int {
		return a.Key.Compare(b.Key)
	})

	return peers, nil
}
