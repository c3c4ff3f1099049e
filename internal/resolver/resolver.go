// Package resolver implements get-or-create resolution of content keys to
// their assigned peers.
package resolver

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/arloliu/peerrouter/internal/keylock"
	"github.com/arloliu/peerrouter/internal/logging"
	"github.com/arloliu/peerrouter/internal/metrics"
	"github.com/arloliu/peerrouter/internal/mirror"
	"github.com/arloliu/peerrouter/types"
)

// Resolve outcomes, used as metric labels.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Pender is notified after a buffered write in debounced mode.
//
// The flush coordinator implements it.
type Pender interface {
	MarkPending()
}

// Config configures a Resolver.
type Config struct {
	// ReplicaCount is the configured number of peers per key. It is clamped
	// to the pool size.
	ReplicaCount int

	// FlushMode selects synchronous (auto) or deferred (debounced) commits.
	FlushMode types.FlushMode

	// Coordinator is required in debounced mode and ignored in auto mode.
	Coordinator Pender

	// KeyLockStripes serializes concurrent resolutions of the same key.
	// Zero disables per-key locking.
	KeyLockStripes int

	// StrategyName labels selection metrics. Derived from the selector when empty.
	StrategyName string

	Notifier types.Notifier
	Logger   types.Logger
	Metrics  types.ResolverMetrics
}

// Resolver maps content keys to peers, creating and persisting the
// assignment on first sight.
type Resolver struct {
	store    types.AssignmentStore
	selector types.PeerSelector
	pool     []types.Peer
	replicas int

	mode        types.FlushMode
	coordinator Pender
	locks       *keylock.Striped
	strategy    string

	notifier types.Notifier
	logger   types.Logger
	metrics  types.ResolverMetrics
}

// New creates a resolver over a fixed peer pool.
//
// Parameters:
//   - store: Assignment store
//   - selector: Selection strategy used on first resolution
//   - pool: Candidate peers, copied; must not be empty
//   - cfg: Resolver configuration
//
// Returns:
//   - *Resolver: Ready resolver
//   - error: types.ErrEmptyPeerPool, or types.ErrInvalidConfig for a
//     missing store, selector or debounced-mode coordinator
//
// Example:
//
//	r, err := resolver.New(st, strategy.NewRoundRobin(), pool, resolver.Config{
//	    ReplicaCount: 2,
//	    FlushMode:    types.FlushModeAuto,
//	})
func New(store types.AssignmentStore, selector types.PeerSelector, pool []types.Peer, cfg Config) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: assignment store is required", types.ErrInvalidConfig)
	}
	if selector == nil {
		return nil, types.ErrPeerSelectorRequired
	}
	if len(pool) == 0 {
		return nil, types.ErrEmptyPeerPool
	}

	mode := cfg.FlushMode
	if mode == "" {
		mode = types.FlushModeAuto
	}
	if mode == types.FlushModeDebounced && cfg.Coordinator == nil {
		return nil, fmt.Errorf("%w: debounced flush mode requires a coordinator", types.ErrInvalidConfig)
	}

	replicas := max(cfg.ReplicaCount, 1)
	replicas = min(replicas, len(pool))

	name := cfg.StrategyName
	if name == "" {
		if n, ok := selector.(interface{ Name() string }); ok {
			name = n.Name()
		} else {
			name = fmt.Sprintf("%T", selector)
		}
	}

	r := &Resolver{
		store:       store,
		selector:    selector,
		pool:        slices.Clone(pool),
		replicas:    replicas,
		mode:        mode,
		coordinator: cfg.Coordinator,
		locks:       keylock.New(cfg.KeyLockStripes),
		strategy:    name,
		notifier:    cfg.Notifier,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
	if r.notifier == nil {
		r.notifier = mirror.Nop{}
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	if r.metrics == nil {
		r.metrics = metrics.NewNop()
	}

	if cfg.ReplicaCount > len(pool) {
		r.logger.Warn("replica count exceeds peer pool, clamping",
			"configured", cfg.ReplicaCount,
			"pool", len(pool),
			"effective", replicas,
		)
	}

	return r, nil
}

// Resolve returns the assignment for key, creating it on first call.
//
// On a hit nothing is written, selected or notified. On a miss the selector
// picks ReplicaCount peers, the assignment is buffered, then either flushed
// synchronously (auto mode) or marked pending (debounced mode), and finally
// the notifier is told about it.
//
// In auto mode a failed flush discards the buffered assignment and returns
// the error, so a later call selects again. After a successful flush the
// committed record is read back: if another process committed the key
// first, its record is returned and nothing is notified.
//
// Parameters:
//   - ctx: Context for store calls
//   - key: Content key
//
// Returns:
//   - types.Assignment: The assignment, never mutated afterwards
//   - error: Store read, write or (auto mode) flush error
func (r *Resolver) Resolve(ctx context.Context, key types.Key) (types.Assignment, error) {
	start := time.Now()

	unlock := r.locks.Lock(key)
	defer unlock()

	a, found, err := r.store.Get(ctx, key)
	if err != nil {
		r.record(ResultError, start)
		return types.Assignment{}, err
	}
	if found {
		r.record(ResultHit, start)
		return a, nil
	}

	peers := r.selector.Select(key, r.pool, r.replicas)
	r.metrics.RecordSelection(r.strategy, len(peers))
	a = types.Assignment{Key: key, Peers: peers}

	if err := r.store.Put(ctx, a); err != nil {
		r.record(ResultError, start)
		return types.Assignment{}, fmt.Errorf("failed to store assignment for %s: %w", key.Short(), err)
	}

	if r.mode == types.FlushModeAuto {
		if err := r.store.Flush(ctx); err != nil {
			if derr := r.store.Discard(ctx, key); derr != nil {
				r.logger.Warn("failed to discard uncommitted assignment", "key", key.Short(), "error", derr)
			}
			r.record(ResultError, start)

			return types.Assignment{}, err
		}

		if stored, lost := r.committed(ctx, a); lost {
			r.logger.Debug("assignment committed elsewhere first", "key", key.Short())
			r.record(ResultHit, start)

			return stored, nil
		}
	} else {
		r.coordinator.MarkPending()
	}

	r.notifier.NotifyAssigned(a.Clone())
	r.record(ResultMiss, start)

	r.logger.Debug("assignment created", "key", key.Short(), "peers", len(peers), "strategy", r.strategy)

	return a, nil
}

// committed re-reads key after a successful auto flush.
//
// The create-once commit keeps the first record written by any process. When
// that record is not a, it is returned with lost set. A failed or empty read
// keeps a.
func (r *Resolver) committed(ctx context.Context, a types.Assignment) (types.Assignment, bool) {
	stored, found, err := r.store.Get(ctx, a.Key)
	if err != nil {
		r.logger.Warn("failed to re-read committed assignment", "key", a.Key.Short(), "error", err)
		return a, false
	}
	if !found || slices.Equal(stored.PeerKeys(), a.PeerKeys()) {
		return a, false
	}

	return stored, true
}

// GetPeers resolves key and returns only the peer identities.
func (r *Resolver) GetPeers(ctx context.Context, key types.Key) ([]types.Key, error) {
	a, err := r.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	return a.PeerKeys(), nil
}

// Pool returns a copy of the candidate peers.
func (r *Resolver) Pool() []types.Peer {
	return slices.Clone(r.pool)
}

// ReplicaCount returns the effective (clamped) replica count.
func (r *Resolver) ReplicaCount() int {
	return r.replicas
}

// FlushMode returns the configured flush mode.
func (r *Resolver) FlushMode() types.FlushMode {
	return r.mode
}

func (r *Resolver) record(result string, start time.Time) {
	r.metrics.RecordResolve(result, time.Since(start).Seconds())
}
