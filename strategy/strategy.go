package strategy

import (
	"fmt"
	"strings"

	"github.com/arloliu/peerrouter/types"
)

// Strategy names accepted by ByName and the configuration file.
const (
	NameProximity      = "proximity"
	NameRoundRobin     = "round-robin"
	NameConsistentHash = "consistent-hash"
)

// Names returns all built-in strategy names.
func Names() []string {
	return []string{NameProximity, NameRoundRobin, NameConsistentHash}
}

// ByName builds a fresh strategy instance from its configuration name.
//
// Names are matched case-insensitively. Each call returns a new instance, so
// round-robin cursors are never shared between callers.
//
// Parameters:
//   - name: One of "proximity", "round-robin", "consistent-hash"
//
// Returns:
//   - types.PeerSelector: New strategy instance
//   - error: ErrUnknownStrategy if the name is not recognized
func ByName(name string) (types.PeerSelector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameProximity:
		return NewProximity(), nil
	case NameRoundRobin, "roundrobin":
		return NewRoundRobin(), nil
	case NameConsistentHash, "consistenthash":
		return NewConsistentHash(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}
