// Package keylock provides striped per-key mutual exclusion.
//
// Keys are hashed with xxh3 onto a fixed set of mutexes. Two different keys
// may share a stripe, which only costs some parallelism; the same key always
// maps to the same stripe.
package keylock

import (
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/arloliu/peerrouter/types"
)

// Striped is a fixed set of mutexes indexed by key hash.
//
// The zero stripe count disables locking: Lock returns a no-op unlock
// function. A nil *Striped behaves the same way.
type Striped struct {
	stripes []sync.Mutex
}

// New creates a striped lock set.
//
// Parameters:
//   - stripes: Number of mutexes (0 disables locking)
//
// Returns:
//   - *Striped: Lock set
//
// Example:
//
//	locks := keylock.New(256)
//	unlock := locks.Lock(key)
//	defer unlock()
func New(stripes int) *Striped {
	if stripes <= 0 {
		return &Striped{}
	}

	return &Striped{stripes: make([]sync.Mutex, stripes)}
}

// Lock acquires the stripe for key and returns its unlock function.
func (s *Striped) Lock(key types.Key) func() {
	if s == nil || len(s.stripes) == 0 {
		return func() {}
	}

	mu := &s.stripes[s.index(key)]
	mu.Lock()

	return mu.Unlock
}

// Stripes returns the number of stripes.
func (s *Striped) Stripes() int {
	if s == nil {
		return 0
	}

	return len(s.stripes)
}

func (s *Striped) index(key types.Key) int {
	return int(xxh3.Hash(key[:]) % uint64(len(s.stripes))) //nolint:gosec
}
