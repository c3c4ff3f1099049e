package peerrouter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/peerrouter/internal/flush"
	"github.com/arloliu/peerrouter/internal/hooks"
	"github.com/arloliu/peerrouter/internal/kvutil"
	"github.com/arloliu/peerrouter/internal/logging"
	"github.com/arloliu/peerrouter/internal/metrics"
	"github.com/arloliu/peerrouter/internal/mirror"
	"github.com/arloliu/peerrouter/internal/resolver"
	"github.com/arloliu/peerrouter/internal/rpc"
	"github.com/arloliu/peerrouter/internal/store"
)

// bucketRetries is the number of attempts to create or open the KV bucket.
const bucketRetries = 5

// Router assigns storage peers to content keys.
//
// Router is the main entry point of the library. It handles:
//   - Reading the candidate peer pool once on Open
//   - Get-or-create resolution of content keys
//   - Durable storage of assignments in a JetStream KV bucket
//   - Debounced background flushing (debounced flush mode)
//   - Serving resolution over NATS and announcing new assignments
//
// Thread Safety:
//   - All public methods are safe for concurrent use
//   - Close waits for in-flight resolutions before tearing down
//
// Lifecycle:
//   - Create with NewRouter()
//   - Call Open() to read the pool and start the components
//   - Call Resolve() or GetPeers() any number of times
//   - Call Close() to flush and release resources
type Router struct {
	cfg      Config
	conn     *nats.Conn
	source   PeerSource
	selector PeerSelector

	// Optional dependencies
	hooks         *Hooks
	metrics       MetricsCollector
	logger        Logger
	extraNotifier Notifier
	injectedStore AssignmentStore

	// Components built by Open
	store       AssignmentStore
	coordinator *flush.Coordinator
	resolver    *resolver.Resolver
	rpcServer   *rpc.Server

	state atomic.Int32 // State
	mu    sync.RWMutex
}

// NewRouter creates a new Router instance with the provided configuration.
//
// Missing configuration values are filled with defaults, then the
// configuration is validated. No I/O happens until Open.
//
// Parameters:
//   - cfg: Router configuration
//   - conn: NATS connection (may be nil when WithStore is used)
//   - source: Peer source for the candidate pool
//   - selector: Selection strategy (e.g. strategy.NewRoundRobin())
//   - opts: Optional configuration (hooks, metrics, logger, notifier, store)
//
// Returns:
//   - *Router: Initialized router in StateCreated
//   - error: Validation error if configuration is invalid
//
// Example:
//
//	cfg := peerrouter.DefaultConfig()
//	src := source.NewStatic(peers)
//	router, err := peerrouter.NewRouter(&cfg, natsConn, src, strategy.NewProximity())
func NewRouter(cfg *Config, conn *nats.Conn, source PeerSource, selector PeerSelector, opts ...Option) (*Router, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if source == nil {
		return nil, ErrPeerSourceRequired
	}
	if selector == nil {
		return nil, ErrPeerSelectorRequired
	}

	options := &routerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if conn == nil && options.store == nil {
		return nil, ErrNATSConnectionRequired
	}

	// Fill in missing configuration values with defaults
	SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Provide safe defaults for optional dependencies to avoid nil checks everywhere
	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	// Validate with warnings after logger is available
	cfg.ValidateWithWarnings(loggerInstance)

	r := &Router{
		cfg:           *cfg,
		conn:          conn,
		source:        source,
		selector:      selector,
		hooks:         hooks.Fill(options.hooks),
		metrics:       metricsCollector,
		logger:        loggerInstance,
		extraNotifier: options.notifier,
		injectedStore: options.store,
	}
	r.state.Store(int32(StateCreated))

	return r, nil
}

// Open reads the peer pool and starts the router components.
//
// A failed Open leaves the router in StateCreated with nothing running, so
// Open may be retried.
//
// Parameters:
//   - ctx: Context for peer discovery and bucket creation
//
// Returns:
//   - error: ErrEmptyPeerPool, ErrAlreadyOpen, ErrClosed or a component startup error
func (r *Router) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.State() {
	case StateOpen:
		return ErrAlreadyOpen
	case StateClosed:
		return ErrClosed
	}

	peers, err := r.source.ListPeers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list peers: %w", err)
	}
	if len(peers) == 0 {
		return ErrEmptyPeerPool
	}
	r.metrics.RecordPeerPoolSize(len(peers))

	st, err := r.openStore(ctx)
	if err != nil {
		return err
	}

	mode := r.cfg.FlushMode()

	var coordinator *flush.Coordinator
	if mode == FlushModeDebounced {
		coordinator = flush.New(st, flush.Config{
			Interval:         r.cfg.Flush.Interval,
			MinBatchSize:     r.cfg.Flush.MinBatchSize,
			OperationTimeout: r.cfg.OperationTimeout,
			Logger:           r.logger,
			Metrics:          r.metrics,
			Hooks:            r.hooks,
		})
	}

	resolverCfg := resolver.Config{
		ReplicaCount:   r.cfg.ReplicaCount,
		FlushMode:      mode,
		KeyLockStripes: max(r.cfg.KeyLockStripes, 0),
		Notifier:       r.notifier(),
		Logger:         r.logger,
		Metrics:        r.metrics,
	}
	if coordinator != nil {
		resolverCfg.Coordinator = coordinator
	}

	res, err := resolver.New(st, r.selector, peers, resolverCfg)
	if err != nil {
		r.closeOwnedStore(ctx, st)
		return fmt.Errorf("failed to create resolver: %w", err)
	}

	if coordinator != nil {
		if err := coordinator.Start(ctx); err != nil {
			r.closeOwnedStore(ctx, st)
			return fmt.Errorf("failed to start flush coordinator: %w", err)
		}
	}

	r.store = st
	r.coordinator = coordinator
	r.resolver = res

	if r.conn != nil && !r.cfg.RPC.Disabled {
		srv, err := rpc.Start(r.conn, r, rpc.Config{
			SubjectPrefix: r.cfg.RPC.SubjectPrefix,
			QueueGroup:    r.cfg.RPC.QueueGroup,
			Timeout:       r.cfg.OperationTimeout,
			Logger:        r.logger,
		})
		if err != nil {
			if coordinator != nil {
				_ = coordinator.Stop(ctx)
			}
			r.closeOwnedStore(ctx, st)
			r.store, r.coordinator, r.resolver = nil, nil, nil

			return fmt.Errorf("failed to start RPC service: %w", err)
		}
		r.rpcServer = srv
	}

	r.transitionState(StateCreated, StateOpen)
	r.logger.Info("router opened",
		"peers", len(peers),
		"replicaCount", res.ReplicaCount(),
		"flushMode", string(mode),
	)

	return nil
}

// Close stops the RPC service, flushes buffered assignments and closes the store.
//
// A failed final flush is logged and reported through the OnError hook but
// does not fail Close: the store is closed regardless. Calling Close again,
// or on a router that was never opened, returns nil.
//
// Parameters:
//   - ctx: Context bounding the final flush
//
// Returns:
//   - error: Error stopping the RPC service or closing the store
func (r *Router) Close(ctx context.Context) error {
	// Waits for in-flight resolutions, which hold the read lock
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.State()
	switch current {
	case StateClosed:
		return nil
	case StateCreated:
		r.transitionState(current, StateClosed)
		return nil
	}

	r.transitionState(current, StateClosed)

	err := r.teardown(ctx)
	if err == nil {
		r.logger.Info("router closed")
	}

	return err
}

// teardown releases components in reverse start order. The caller holds mu.
func (r *Router) teardown(ctx context.Context) error {
	var errs []error

	if r.rpcServer != nil {
		if err := r.rpcServer.Stop(); err != nil {
			r.logger.Error("failed to stop RPC service", "error", err)
			errs = append(errs, fmt.Errorf("RPC service stop failed: %w", err))
		}
		r.rpcServer = nil
	}

	if r.coordinator != nil {
		// Best effort: the failure was already logged and emitted by the coordinator
		if err := r.coordinator.Stop(ctx); err != nil {
			r.logger.Warn("assignments left unflushed at shutdown",
				"pending", r.store.PendingCount(),
				"error", err,
			)
		}
		r.coordinator = nil
	} else if r.store != nil && r.store.HasPendingWrites() {
		// Auto mode normally leaves nothing buffered; an injected store may
		if err := r.store.Flush(ctx); err != nil {
			r.logger.Warn("assignments left unflushed at shutdown",
				"pending", r.store.PendingCount(),
				"error", err,
			)
		}
	}

	if r.store != nil {
		if err := r.store.Close(ctx); err != nil {
			r.logger.Error("failed to close assignment store", "error", err)
			errs = append(errs, fmt.Errorf("store close failed: %w", err))
		}
		r.store = nil
	}

	r.resolver = nil

	return errors.Join(errs...)
}

// Resolve returns the peers assigned to key, creating the assignment on first use.
//
// Parameters:
//   - ctx: Context for store I/O
//   - key: Content key
//
// Returns:
//   - Assignment: Assignment with exactly ReplicaCount() peers
//   - error: ErrNotOpen/ErrClosed, a store read error, or in auto flush
//     mode a flush error
//
// Example:
//
//	a, err := router.Resolve(ctx, key)
//	if err != nil {
//	    return err
//	}
//	for _, p := range a.Peers {
//	    mirrorTo(p.Key, key)
//	}
func (r *Router) Resolve(ctx context.Context, key Key) (Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkOpen(); err != nil {
		return Assignment{}, err
	}

	return r.resolver.Resolve(ctx, key)
}

// GetPeers returns only the identity keys of the peers assigned to key.
//
// Parameters:
//   - ctx: Context for store I/O
//   - key: Content key
//
// Returns:
//   - []Key: Assigned peer keys
//   - error: Same as Resolve
func (r *Router) GetPeers(ctx context.Context, key Key) ([]Key, error) {
	a, err := r.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	return a.PeerKeys(), nil
}

// Flush requests an immediate commit of buffered assignments.
//
// In debounced mode the request is single-flight: if a flush is already
// running it is coalesced and Flush returns false without error. In auto
// mode the store is flushed directly.
//
// Returns:
//   - bool: true if a flush ran
//   - error: Flush error or ErrNotOpen/ErrClosed
func (r *Router) Flush(ctx context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkOpen(); err != nil {
		return false, err
	}

	if r.coordinator != nil {
		return r.coordinator.RequestFlush(ctx)
	}

	if err := r.store.Flush(ctx); err != nil {
		return true, err
	}

	return true, nil
}

// FlushErrors subscribes to background flush errors.
//
// Only debounced mode has background flushes. In auto mode, or when the
// router is not open, the returned channel is already closed. The channel
// is closed when the router closes or cancel is called.
//
// Returns:
//   - <-chan error: Error stream (buffered; errors are dropped when full)
//   - func(): Unsubscribe function
//
// Example:
//
//	errs, cancel := router.FlushErrors()
//	defer cancel()
//	go func() {
//	    for err := range errs {
//	        log.Printf("background flush failed: %v", err)
//	    }
//	}()
func (r *Router) FlushErrors() (<-chan error, func()) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.State() == StateOpen && r.coordinator != nil {
		return r.coordinator.Subscribe()
	}

	ch := make(chan error)
	close(ch)

	return ch, func() {}
}

// Peers returns a copy of the candidate pool read on Open.
//
// Returns:
//   - []Peer: Peer pool (nil before Open)
func (r *Router) Peers() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.resolver == nil {
		return nil
	}

	return slices.Clone(r.resolver.Pool())
}

// ReplicaCount returns the effective number of peers per assignment.
//
// Before Open it returns the configured value; afterwards the value clamped
// to the pool size.
func (r *Router) ReplicaCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.resolver == nil {
		return r.cfg.ReplicaCount
	}

	return r.resolver.ReplicaCount()
}

// State returns the current lifecycle state.
//
// Returns:
//   - State: Current state
func (r *Router) State() State {
	return State(r.state.Load())
}

// Config returns a copy of the effective configuration.
func (r *Router) Config() Config {
	return r.cfg
}

// checkOpen maps the lifecycle state to an error for request paths.
func (r *Router) checkOpen() error {
	switch r.State() {
	case StateOpen:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotOpen
	}
}

// openStore returns the injected store or opens the JetStream KV store.
func (r *Router) openStore(ctx context.Context) (AssignmentStore, error) {
	if r.injectedStore != nil {
		return r.injectedStore, nil
	}

	js, err := jetstream.New(r.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bucketCfg, err := kvutil.AssignmentBucketConfig(kvutil.BucketOptions{
		Bucket:   r.cfg.KV.Bucket,
		Replicas: r.cfg.KV.Replicas,
		Storage:  r.cfg.KV.Storage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, bucketCfg, bucketRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to create/open KV bucket %s: %w", r.cfg.KV.Bucket, err)
	}

	return store.New(kv, store.Config{
		KeyPrefix: r.cfg.KV.KeyPrefix,
		Logger:    r.logger,
		Metrics:   r.metrics,
	}), nil
}

// closeOwnedStore closes st after a failed Open unless the caller injected it.
func (r *Router) closeOwnedStore(ctx context.Context, st AssignmentStore) {
	if st == r.injectedStore {
		return
	}
	if err := st.Close(ctx); err != nil {
		r.logger.Warn("failed to close store after open failure", "error", err)
	}
}

// notifier combines the NATS mirror publisher with the caller's notifier.
func (r *Router) notifier() Notifier {
	var notifiers mirror.Multi

	if r.conn != nil && r.cfg.Mirror.Subject != "" {
		notifiers = append(notifiers, mirror.NewPublisher(r.conn, r.cfg.Mirror.Subject, r.logger))
	}
	if r.extraNotifier != nil {
		notifiers = append(notifiers, r.extraNotifier)
	}

	switch len(notifiers) {
	case 0:
		return mirror.Nop{}
	case 1:
		return notifiers[0]
	default:
		return notifiers
	}
}

// transitionState transitions to a new state and triggers hooks.
func (r *Router) transitionState(from, to State) {
	if !isValidTransition(from, to) {
		r.logger.Error("invalid state transition attempted",
			"from", from.String(),
			"to", to.String(),
		)

		return
	}

	r.state.Store(int32(to)) //nolint:gosec // State values are controlled enum

	r.logger.Info("state transition", "from", from.String(), "to", to.String())

	// Run hook in background to avoid blocking the lifecycle
	onStateChanged := r.hooks.OnStateChanged
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.OperationTimeout)
		defer cancel()
		if err := onStateChanged(ctx, from, to); err != nil {
			r.logger.Error("state change hook error", "from", from, "to", to, "error", err)
		}
	}()

	r.metrics.RecordStateTransition(from, to)
}

// isValidTransition validates that a state transition is allowed.
func isValidTransition(from, to State) bool {
	validTransitions := map[State][]State{
		StateCreated: {StateOpen, StateClosed},
		StateOpen:    {StateClosed},
		StateClosed:  {}, // Terminal state - no transitions allowed
	}

	return slices.Contains(validTransitions[from], to)
}

// shutdownContext returns a context bounded by the configured shutdown timeout.
func (r *Router) shutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.cfg.ShutdownTimeout)
}

// CloseWithTimeout closes the router with a context bounded by
// Config.ShutdownTimeout.
func (r *Router) CloseWithTimeout() error {
	ctx, cancel := r.shutdownContext()
	defer cancel()

	return r.Close(ctx)
}

// Compile-time assertion that Router can back the RPC service.
var _ rpc.Resolver = (*Router)(nil)
