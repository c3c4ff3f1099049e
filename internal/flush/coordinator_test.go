package flush

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	routertest "github.com/arloliu/peerrouter/testing"
	"github.com/arloliu/peerrouter/types"
)

// fakeStore is an in-memory AssignmentStore with controllable Flush.
type fakeStore struct {
	mu      sync.Mutex
	pending map[types.Key]types.Assignment
	durable map[types.Key]types.Assignment

	flushes atomic.Int32
	failErr atomic.Pointer[error]
	block   chan struct{} // when non-nil, Flush waits for it to close
	entered chan struct{} // signalled when Flush starts
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pending: make(map[types.Key]types.Assignment),
		durable: make(map[types.Key]types.Assignment),
	}
}

func (s *fakeStore) Get(_ context.Context, key types.Key) (types.Assignment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.pending[key]; ok {
		return a, true, nil
	}
	a, ok := s.durable[key]

	return a, ok, nil
}

func (s *fakeStore) Put(_ context.Context, a types.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[a.Key] = a

	return nil
}

func (s *fakeStore) Flush(ctx context.Context) error {
	s.flushes.Add(1)
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p := s.failErr.Load(); p != nil {
		return *p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range s.pending {
		s.durable[k] = a
		delete(s.pending, k)
	}

	return nil
}

func (s *fakeStore) Discard(_ context.Context, key types.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)

	return nil
}

func (s *fakeStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

func (s *fakeStore) HasPendingWrites() bool { return s.PendingCount() > 0 }

func (s *fakeStore) Close(context.Context) error { return nil }

func (s *fakeStore) fail(err error) { s.failErr.Store(&err) }

func (s *fakeStore) recover() { s.failErr.Store(nil) }

func (s *fakeStore) putN(t *testing.T, n int) {
	t.Helper()
	for i := range n {
		var k types.Key
		k[0] = byte(i)
		k[1] = byte(i >> 8)
		require.NoError(t, s.Put(t.Context(), types.Assignment{Key: k}))
	}
}

func TestCoordinator_Lifecycle(t *testing.T) {
	ctx := t.Context()

	t.Run("start twice", func(t *testing.T) {
		c := New(newFakeStore(), Config{Interval: time.Hour})
		require.NoError(t, c.Start(ctx))
		require.ErrorIs(t, c.Start(ctx), types.ErrCoordinatorAlreadyStarted)
		require.NoError(t, c.Stop(ctx))
	})

	t.Run("stop before start", func(t *testing.T) {
		c := New(newFakeStore(), Config{})
		require.ErrorIs(t, c.Stop(ctx), types.ErrCoordinatorNotStarted)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		c := New(newFakeStore(), Config{Interval: time.Hour})
		require.NoError(t, c.Start(ctx))
		require.NoError(t, c.Stop(ctx))
		require.NoError(t, c.Stop(ctx))
	})

	t.Run("defaults", func(t *testing.T) {
		c := New(newFakeStore(), Config{})
		require.Equal(t, DefaultInterval, c.cfg.Interval)
		require.Equal(t, DefaultMinBatchSize, c.cfg.MinBatchSize)
		require.Equal(t, DefaultOperationTimeout, c.cfg.OperationTimeout)
		require.Equal(t, types.FlushStateIdle, c.State())
	})
}

func TestCoordinator_MarkPending(t *testing.T) {
	st := newFakeStore()
	c := New(st, Config{Interval: time.Hour, Logger: routertest.NewTestLogger(t)})

	st.putN(t, 3)
	c.MarkPending()

	require.True(t, c.IsPending())
	require.Equal(t, types.FlushStatePending, c.State())
	require.Zero(t, st.flushes.Load(), "marking pending never flushes")
}

func TestCoordinator_Tick(t *testing.T) {
	ctx := t.Context()

	t.Run("flushes pending writes", func(t *testing.T) {
		st := newFakeStore()
		c := New(st, Config{Interval: 10 * time.Millisecond})
		require.NoError(t, c.Start(ctx))
		defer func() { _ = c.Stop(ctx) }()

		st.putN(t, 2)
		c.MarkPending()

		require.Eventually(t, func() bool {
			return st.PendingCount() == 0
		}, 2*time.Second, 5*time.Millisecond)
		require.Eventually(t, func() bool {
			return c.State() == types.FlushStateIdle
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("does not flush when not pending", func(t *testing.T) {
		st := newFakeStore()
		c := New(st, Config{Interval: 5 * time.Millisecond})
		require.NoError(t, c.Start(ctx))

		st.putN(t, 2) // buffered, but nobody marked pending
		time.Sleep(50 * time.Millisecond)
		require.Zero(t, st.flushes.Load())

		c.cancel() // stop ticking without the shutdown flush
		<-c.doneCh
	})

	t.Run("waits for the minimum batch", func(t *testing.T) {
		st := newFakeStore()
		c := New(st, Config{Interval: 5 * time.Millisecond, MinBatchSize: 1000})
		require.NoError(t, c.Start(ctx))

		st.putN(t, 5)
		c.MarkPending()
		time.Sleep(60 * time.Millisecond)

		require.Zero(t, st.flushes.Load(), "5 writes stay buffered below a batch of 1000")
		require.Equal(t, 5, st.PendingCount())
		require.True(t, c.IsPending())

		st.putN(t, 1000)
		c.MarkPending()
		require.Eventually(t, func() bool {
			return st.PendingCount() == 0
		}, 2*time.Second, 5*time.Millisecond)

		require.NoError(t, c.Stop(ctx))
	})
}

func TestCoordinator_RequestFlush(t *testing.T) {
	ctx := t.Context()

	t.Run("flushes immediately", func(t *testing.T) {
		st := newFakeStore()
		c := New(st, Config{Interval: time.Hour})
		st.putN(t, 4)
		c.MarkPending()

		flushed, err := c.RequestFlush(ctx)
		require.NoError(t, err)
		require.True(t, flushed)
		require.Zero(t, st.PendingCount())
		require.False(t, c.IsPending())
	})

	t.Run("coalesces while a flush is running", func(t *testing.T) {
		st := newFakeStore()
		st.block = make(chan struct{})
		st.entered = make(chan struct{}, 1)
		c := New(st, Config{Interval: time.Hour})
		st.putN(t, 1)

		done := make(chan error, 1)
		go func() {
			_, err := c.RequestFlush(ctx)
			done <- err
		}()
		<-st.entered
		require.Equal(t, types.FlushStateFlushing, c.State())

		flushed, err := c.RequestFlush(ctx)
		require.NoError(t, err)
		require.False(t, flushed)
		require.True(t, c.IsPending(), "coalesced request re-arms pending")

		close(st.block)
		require.NoError(t, <-done)
		require.Equal(t, int32(1), st.flushes.Load(), "only one flush ran")
		require.Equal(t, types.FlushStatePending, c.State())
	})

	t.Run("never runs two flushes at once", func(t *testing.T) {
		st := &concurrencyStore{fakeStore: newFakeStore()}
		c := New(st, Config{Interval: time.Hour})

		var wg sync.WaitGroup
		for range 20 {
			wg.Go(func() {
				_, _ = c.RequestFlush(ctx)
			})
		}
		wg.Wait()

		require.Equal(t, int32(1), st.maxActive.Load())
	})
}

// concurrencyStore tracks how many Flush calls overlap.
type concurrencyStore struct {
	*fakeStore
	active    atomic.Int32
	maxActive atomic.Int32
}

func (s *concurrencyStore) Flush(ctx context.Context) error {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		cur := s.maxActive.Load()
		if n <= cur || s.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	return s.fakeStore.Flush(ctx)
}

func TestCoordinator_Errors(t *testing.T) {
	ctx := t.Context()

	t.Run("failure re-arms pending and notifies", func(t *testing.T) {
		st := newFakeStore()
		boom := errors.New("engine unavailable")
		st.fail(boom)

		hookErr := make(chan error, 1)
		c := New(st, Config{
			Interval: time.Hour,
			Hooks: &types.Hooks{OnError: func(_ context.Context, err error) error {
				hookErr <- err
				return nil
			}},
		})
		errs, unsubscribe := c.Subscribe()
		defer unsubscribe()

		st.putN(t, 2)
		c.MarkPending()

		flushed, err := c.RequestFlush(ctx)
		require.True(t, flushed)
		require.ErrorIs(t, err, boom)
		require.True(t, c.IsPending())
		require.Equal(t, 2, st.PendingCount())

		require.ErrorIs(t, <-errs, boom)
		select {
		case got := <-hookErr:
			require.ErrorIs(t, got, boom)
		case <-time.After(time.Second):
			t.Fatal("OnError hook not called")
		}
	})

	t.Run("tick retries after failure", func(t *testing.T) {
		st := newFakeStore()
		st.fail(errors.New("transient"))
		c := New(st, Config{Interval: 5 * time.Millisecond})
		errs, unsubscribe := c.Subscribe()
		defer unsubscribe()

		require.NoError(t, c.Start(ctx))
		defer func() { _ = c.Stop(ctx) }()

		st.putN(t, 1)
		c.MarkPending()

		select {
		case <-errs:
		case <-time.After(2 * time.Second):
			t.Fatal("no flush error delivered")
		}

		st.recover()
		require.Eventually(t, func() bool {
			return st.PendingCount() == 0
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("slow subscriber does not block", func(t *testing.T) {
		st := newFakeStore()
		st.fail(errors.New("x"))
		c := New(st, Config{Interval: time.Hour})
		_, unsubscribe := c.Subscribe()
		defer unsubscribe()

		for range subscriberBuffer * 3 {
			_, err := c.RequestFlush(ctx)
			require.Error(t, err)
		}
	})

	t.Run("unsubscribe closes the channel", func(t *testing.T) {
		c := New(newFakeStore(), Config{})
		errs, unsubscribe := c.Subscribe()
		unsubscribe()
		unsubscribe()

		_, ok := <-errs
		require.False(t, ok)
	})
}

func TestCoordinator_Stop(t *testing.T) {
	ctx := t.Context()

	t.Run("final flush commits the buffer", func(t *testing.T) {
		st := newFakeStore()
		c := New(st, Config{Interval: time.Hour, MinBatchSize: 1000})
		require.NoError(t, c.Start(ctx))

		st.putN(t, 5)
		c.MarkPending()

		require.NoError(t, c.Stop(ctx))
		require.Zero(t, st.PendingCount())
		require.Equal(t, int32(1), st.flushes.Load())
	})

	t.Run("nothing buffered skips the final flush", func(t *testing.T) {
		st := newFakeStore()
		c := New(st, Config{Interval: time.Hour})
		require.NoError(t, c.Start(ctx))
		require.NoError(t, c.Stop(ctx))
		require.Zero(t, st.flushes.Load())
	})

	t.Run("final flush error is returned", func(t *testing.T) {
		st := newFakeStore()
		boom := errors.New("engine down")
		st.fail(boom)
		c := New(st, Config{Interval: time.Hour})
		require.NoError(t, c.Start(ctx))
		st.putN(t, 1)

		require.ErrorIs(t, c.Stop(ctx), boom)
		require.Equal(t, 1, st.PendingCount())
	})

	t.Run("waits for the in-flight flush", func(t *testing.T) {
		st := newFakeStore()
		st.block = make(chan struct{})
		st.entered = make(chan struct{}, 2)
		c := New(st, Config{Interval: time.Hour})
		require.NoError(t, c.Start(ctx))
		st.putN(t, 1)

		go func() { _, _ = c.RequestFlush(ctx) }()
		<-st.entered

		stopped := make(chan error, 1)
		go func() { stopped <- c.Stop(ctx) }()

		select {
		case <-stopped:
			t.Fatal("Stop returned while a flush was running")
		case <-time.After(30 * time.Millisecond):
		}

		close(st.block)
		require.NoError(t, <-stopped)
		require.Zero(t, st.PendingCount())
	})

	t.Run("lets a tick flush finish", func(t *testing.T) {
		st := newFakeStore()
		st.block = make(chan struct{})
		st.entered = make(chan struct{}, 4)
		c := New(st, Config{Interval: 10 * time.Millisecond})
		errs, unsubscribe := c.Subscribe()
		defer unsubscribe()
		require.NoError(t, c.Start(ctx))

		st.putN(t, 2)
		c.MarkPending()
		<-st.entered

		stopped := make(chan error, 1)
		go func() { stopped <- c.Stop(ctx) }()

		select {
		case <-stopped:
			t.Fatal("Stop returned while a tick flush was running")
		case <-time.After(30 * time.Millisecond):
		}

		close(st.block)
		require.NoError(t, <-stopped)
		require.Zero(t, st.PendingCount())
		require.Equal(t, int32(1), st.flushes.Load(), "the tick flush committed everything")

		for err := range errs {
			t.Fatalf("unexpected flush error: %v", err)
		}
	})

	t.Run("closes subscriber channels", func(t *testing.T) {
		c := New(newFakeStore(), Config{Interval: time.Hour})
		errs, _ := c.Subscribe()
		require.NoError(t, c.Start(ctx))
		require.NoError(t, c.Stop(ctx))

		_, ok := <-errs
		require.False(t, ok)
	})
}
