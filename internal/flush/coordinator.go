package flush

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/peerrouter/types"
)

// Flush triggers, used as metric labels.
const (
	TriggerTick     = "tick"
	TriggerManual   = "manual"
	TriggerShutdown = "shutdown"
)

// Coordinator schedules debounced flushes of an assignment store.
type Coordinator struct {
	store types.AssignmentStore
	cfg   Config

	pending  atomic.Bool
	flushing atomic.Bool
	flushMu  sync.Mutex // held for the duration of a flush

	lifeMu  sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	doneCh  chan struct{}

	subscribers      *xsync.Map[uint64, *errorSubscriber]
	nextSubscriberID atomic.Uint64
}

// New creates a coordinator for store. Call Start to begin ticking.
//
// Parameters:
//   - store: Store whose buffer is flushed
//   - cfg: Coordinator configuration (zero values take defaults)
//
// Returns:
//   - *Coordinator: Idle coordinator
//
// Example:
//
//	c := flush.New(st, flush.Config{Interval: time.Second, MinBatchSize: 1000})
//	_ = c.Start(ctx)
//	defer c.Stop(ctx)
func New(store types.AssignmentStore, cfg Config) *Coordinator {
	cfg.setDefaults()

	return &Coordinator{
		store:       store,
		cfg:         cfg,
		subscribers: xsync.NewMap[uint64, *errorSubscriber](),
	}
}

// Start launches the background ticker.
//
// Returns:
//   - error: types.ErrCoordinatorAlreadyStarted on a second call
func (c *Coordinator) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.started {
		return types.ErrCoordinatorAlreadyStarted
	}
	c.started = true

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.doneCh = make(chan struct{})

	go c.loop(loopCtx)

	c.cfg.Logger.Debug("flush coordinator started",
		"interval", c.cfg.Interval,
		"minBatchSize", c.cfg.MinBatchSize,
	)

	return nil
}

// Stop cancels the ticker, waits for any in-flight flush, then flushes
// whatever is still buffered.
//
// The final flush error is logged and returned. The store is left open; the
// caller closes it afterwards regardless of the error. Stop is idempotent
// after the first call.
//
// Returns:
//   - error: types.ErrCoordinatorNotStarted before Start, or the final flush error
func (c *Coordinator) Stop(ctx context.Context) error {
	c.lifeMu.Lock()
	if !c.started {
		c.lifeMu.Unlock()
		return types.ErrCoordinatorNotStarted
	}
	if c.stopped {
		c.lifeMu.Unlock()
		return nil
	}
	c.stopped = true
	c.cancel()
	c.lifeMu.Unlock()

	<-c.doneCh

	// Wait for an in-flight flush to finish
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	var err error
	if c.store.HasPendingWrites() {
		if err = c.flushLocked(ctx, TriggerShutdown); err != nil {
			c.cfg.Logger.Error("final flush failed", "pending", c.store.PendingCount(), "error", err)
		}
	}

	c.subscribers.Range(func(id uint64, _ *errorSubscriber) bool {
		c.removeSubscriber(id)
		return true
	})
	c.cfg.Logger.Debug("flush coordinator stopped")

	return err
}

// MarkPending records that the store has new buffered writes.
//
// It never flushes; the next tick decides.
func (c *Coordinator) MarkPending() {
	c.pending.Store(true)
	c.cfg.Metrics.RecordPendingWrites(c.store.PendingCount())
}

// RequestFlush flushes now unless a flush is already running.
//
// A request that finds a flush in progress is coalesced: it re-arms the
// pending flag and returns immediately with flushed=false and a nil error.
//
// Returns:
//   - bool: true if this call performed a flush
//   - error: Flush error when this call performed the flush
func (c *Coordinator) RequestFlush(ctx context.Context) (bool, error) {
	return c.tryFlush(ctx, TriggerManual)
}

// State returns the current coordinator state.
func (c *Coordinator) State() types.FlushState {
	switch {
	case c.flushing.Load():
		return types.FlushStateFlushing
	case c.pending.Load():
		return types.FlushStatePending
	default:
		return types.FlushStateIdle
	}
}

// IsPending reports whether the pending flag is set.
func (c *Coordinator) IsPending() bool {
	return c.pending.Load()
}

// Subscribe returns a channel receiving flush errors and an unsubscribe function.
//
// Delivery is non-blocking: a subscriber that falls more than a few errors
// behind misses the overflow. The channel is closed by unsubscribe or Stop.
//
// Example:
//
//	errs, unsubscribe := c.Subscribe()
//	defer unsubscribe()
//	for err := range errs {
//	    log.Printf("flush failed: %v", err)
//	}
func (c *Coordinator) Subscribe() (<-chan error, func()) {
	id := c.nextSubscriberID.Add(1)
	sub := &errorSubscriber{ch: make(chan error, subscriberBuffer)}
	c.subscribers.Store(id, sub)

	return sub.ch, func() { c.removeSubscriber(id) }
}

func (c *Coordinator) removeSubscriber(id uint64) {
	if sub, ok := c.subscribers.LoadAndDelete(id); ok {
		sub.close()
	}
}

// loop checks the pending flag on every tick.
func (c *Coordinator) loop(ctx context.Context) {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick flushes when pending and at least MinBatchSize writes are buffered.
func (c *Coordinator) tick(ctx context.Context) {
	if !c.pending.Load() {
		return
	}
	if c.store.PendingCount() < c.cfg.MinBatchSize {
		return
	}

	// Stop cancels ctx; a flush that already started runs to completion
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.OperationTimeout)
	defer cancel()

	_, _ = c.tryFlush(flushCtx, TriggerTick)
}

// tryFlush runs a flush unless one is already running.
func (c *Coordinator) tryFlush(ctx context.Context, trigger string) (bool, error) {
	if !c.flushMu.TryLock() {
		c.pending.Store(true)
		c.cfg.Metrics.RecordFlushCoalesced()

		return false, nil
	}
	defer c.flushMu.Unlock()

	return true, c.flushLocked(ctx, trigger)
}

// flushLocked performs one flush. The caller holds flushMu.
func (c *Coordinator) flushLocked(ctx context.Context, trigger string) error {
	c.flushing.Store(true)
	defer c.flushing.Store(false)

	c.pending.Store(false)
	entries := c.store.PendingCount()

	start := time.Now()
	err := c.store.Flush(ctx)
	elapsed := time.Since(start)

	c.cfg.Metrics.RecordFlush(trigger, entries, elapsed.Seconds(), err == nil)
	c.cfg.Metrics.RecordPendingWrites(c.store.PendingCount())

	if err != nil {
		// Retry on a later tick
		c.pending.Store(true)
		c.emitError(err)
		c.cfg.Logger.Warn("flush failed",
			"trigger", trigger,
			"entries", entries,
			"remaining", c.store.PendingCount(),
			"error", err,
		)

		return err
	}

	c.cfg.Logger.Debug("flush completed", "trigger", trigger, "entries", entries, "duration", elapsed)

	return nil
}

// emitError fans err out to subscribers and the OnError hook.
func (c *Coordinator) emitError(err error) {
	c.subscribers.Range(func(_ uint64, sub *errorSubscriber) bool {
		sub.trySend(err, c.cfg.Metrics)
		return true
	})

	onError := c.cfg.Hooks.OnError
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OperationTimeout)
		defer cancel()
		if hookErr := onError(ctx, err); hookErr != nil {
			c.cfg.Logger.Warn("error hook failed", "error", hookErr)
		}
	}()
}
