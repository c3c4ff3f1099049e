package flush

import (
	"sync"

	"github.com/arloliu/peerrouter/types"
)

// errorSubscriber receives flush errors on a buffered channel.
type errorSubscriber struct {
	ch     chan error
	mu     sync.Mutex
	closed bool
}

// trySend delivers err without blocking. A full channel drops the error.
func (s *errorSubscriber) trySend(err error, m types.FlushMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- err:
	default:
		m.RecordFlushErrorDropped()
	}
}

// close safely closes the subscriber's channel.
func (s *errorSubscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
