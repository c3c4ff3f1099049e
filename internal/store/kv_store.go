package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/peerrouter/internal/logging"
	"github.com/arloliu/peerrouter/internal/metrics"
	"github.com/arloliu/peerrouter/internal/natsutil"
	"github.com/arloliu/peerrouter/types"
)

// DefaultKeyPrefix is the KV key prefix used when Config.KeyPrefix is empty.
const DefaultKeyPrefix = "assignment"

// Config configures a KVStore.
type Config struct {
	// KeyPrefix is prepended to the hex content key, separated by a dot.
	KeyPrefix string

	// Logger receives store diagnostics. Defaults to a no-op logger.
	Logger types.Logger

	// Metrics receives KV latency observations. Defaults to no-op metrics.
	Metrics types.StoreMetrics
}

// KVStore implements types.AssignmentStore on a JetStream KV bucket.
type KVStore struct {
	kv        jetstream.KeyValue
	keyPrefix string
	logger    types.Logger
	metrics   types.StoreMetrics

	buffer  *xsync.Map[types.Key, pendingWrite]
	seq     atomic.Uint64
	flushMu sync.Mutex
	closed  atomic.Bool

	now func() time.Time
}

// pendingWrite is a buffered assignment waiting for Flush.
type pendingWrite struct {
	assignment types.Assignment
	createdAt  time.Time
	seq        uint64
}

// Compile-time assertion that KVStore implements AssignmentStore.
var _ types.AssignmentStore = (*KVStore)(nil)

// New creates a store on top of an existing KV bucket.
//
// Parameters:
//   - kv: Assignment bucket (see kvutil.AssignmentBucketConfig)
//   - cfg: Store configuration
//
// Returns:
//   - *KVStore: Ready-to-use store with an empty write buffer
//
// Example:
//
//	kv, _ := kvutil.EnsureKVBucketWithRetry(ctx, js, bucketCfg, 3)
//	st := store.New(kv, store.Config{Logger: logger})
func New(kv jetstream.KeyValue, cfg Config) *KVStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNop()
	}

	return &KVStore{
		kv:        kv,
		keyPrefix: cfg.KeyPrefix,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		buffer:    xsync.NewMap[types.Key, pendingWrite](),
		now:       time.Now,
	}
}

// Get looks up the assignment for key.
//
// A buffered write wins over the bucket. A missing bucket entry is reported
// as found=false with a nil error; every other failure is returned wrapped in
// types.ErrStoreRead, and additionally in types.ErrConnectivity when NATS is
// unreachable.
func (s *KVStore) Get(ctx context.Context, key types.Key) (types.Assignment, bool, error) {
	if s.closed.Load() {
		return types.Assignment{}, false, types.ErrStoreClosed
	}

	if w, ok := s.buffer.Load(key); ok {
		return w.assignment.Clone(), true, nil
	}

	start := time.Now()
	entry, err := s.kv.Get(ctx, s.kvKey(key))
	s.metrics.RecordKVOperationDuration("get", time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return types.Assignment{}, false, nil
		}
		if natsutil.IsConnectivityError(err) {
			return types.Assignment{}, false, fmt.Errorf("%w: %w: %w", types.ErrStoreRead, types.ErrConnectivity, err)
		}

		return types.Assignment{}, false, fmt.Errorf("%w: %w", types.ErrStoreRead, err)
	}

	a, err := decodeRecord(key, entry.Value())
	if err != nil {
		return types.Assignment{}, false, fmt.Errorf("%w: %w", types.ErrStoreRead, err)
	}

	return a, true, nil
}

// Put buffers an assignment for the next Flush.
//
// Buffering is last-write-wins per key. Nothing is committed durably until
// Flush succeeds for that key.
func (s *KVStore) Put(_ context.Context, a types.Assignment) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}

	s.buffer.Store(a.Key, pendingWrite{
		assignment: a.Clone(),
		createdAt:  s.now(),
		seq:        s.seq.Add(1),
	})

	return nil
}

// Flush commits a snapshot of the buffered writes in insertion order.
//
// Each entry is committed with a create-once write. An entry leaves the
// buffer once committed, or once the bucket reports the key already exists:
// the stored record is authoritative and the buffered one is discarded.
// The first other failure stops the flush; that entry and every later one
// stay buffered, and the error is returned wrapped in types.ErrFlushFailed.
//
// Concurrent Flush calls are serialized.
func (s *KVStore) Flush(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	batch := s.snapshot()
	if len(batch) == 0 {
		return nil
	}

	committed := 0
	for _, w := range batch {
		if err := s.commit(ctx, w); err != nil {
			s.logger.Warn("assignment flush stopped",
				"committed", committed,
				"remaining", len(batch)-committed,
				"key", w.assignment.Key.Short(),
				"error", err,
			)

			if natsutil.IsConnectivityError(err) {
				return fmt.Errorf("%w: %w: %w", types.ErrFlushFailed, types.ErrConnectivity, err)
			}

			return fmt.Errorf("%w: %w", types.ErrFlushFailed, err)
		}
		s.buffer.Delete(w.assignment.Key)
		committed++
	}

	s.logger.Debug("assignments flushed", "count", committed)

	return nil
}

// commit writes one buffered entry. A lost create-once race is not an error.
func (s *KVStore) commit(ctx context.Context, w pendingWrite) error {
	data, err := encodeRecord(w.assignment, w.createdAt)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = s.kv.Create(ctx, s.kvKey(w.assignment.Key), data)
	s.metrics.RecordKVOperationDuration("create", time.Since(start).Seconds())

	if natsutil.IsKeyExists(err) {
		s.logger.Debug("assignment already committed, keeping stored record", "key", w.assignment.Key.Short())
		return nil
	}

	return err
}

// Discard drops the buffered write for key without committing it.
//
// A Put whose commit failed in auto flush mode is discarded so that it can
// neither be served as an assignment nor committed later by an unrelated
// flush.
func (s *KVStore) Discard(_ context.Context, key types.Key) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}

	if _, ok := s.buffer.LoadAndDelete(key); ok {
		s.logger.Debug("buffered assignment discarded", "key", key.Short())
	}

	return nil
}

// snapshot returns the buffered writes ordered by insertion.
func (s *KVStore) snapshot() []pendingWrite {
	batch := make([]pendingWrite, 0, s.buffer.Size())
	s.buffer.Range(func(_ types.Key, w pendingWrite) bool {
		batch = append(batch, w)
		return true
	})
	slices.SortFunc(batch, func(a, b pendingWrite) int {
		return cmp.Compare(a.seq, b.seq)
	})

	return batch
}

// PendingCount returns the number of buffered writes.
func (s *KVStore) PendingCount() int {
	return s.buffer.Size()
}

// HasPendingWrites reports whether any write is waiting for Flush.
func (s *KVStore) HasPendingWrites() bool {
	return s.buffer.Size() > 0
}

// Close marks the store closed. Buffered writes are not flushed; callers
// flush first (the flush coordinator does so on Stop). Close is idempotent.
func (s *KVStore) Close(_ context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	if n := s.buffer.Size(); n > 0 {
		s.logger.Warn("assignment store closed with unflushed writes", "pending", n)
	}

	return nil
}

func (s *KVStore) kvKey(key types.Key) string {
	return s.keyPrefix + "." + key.String()
}
