package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arloliu/peerrouter/types"
)

// record is the persisted form of an assignment.
type record struct {
	Key       types.Key    `json:"key"`
	Peers     []types.Peer `json:"peers"`
	CreatedAt time.Time    `json:"createdAt"`
}

func encodeRecord(a types.Assignment, createdAt time.Time) ([]byte, error) {
	data, err := json.Marshal(record{Key: a.Key, Peers: a.Peers, CreatedAt: createdAt.UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode assignment %s: %w", a.Key.Short(), err)
	}

	return data, nil
}

func decodeRecord(key types.Key, data []byte) (types.Assignment, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.Assignment{}, fmt.Errorf("failed to decode assignment %s: %w", key.Short(), err)
	}
	if rec.Key != key {
		return types.Assignment{}, fmt.Errorf("assignment record for %s holds key %s", key.Short(), rec.Key.Short())
	}

	return types.Assignment{Key: rec.Key, Peers: rec.Peers}, nil
}
