// Package flush implements the debounced, single-flight flush coordinator.
//
// In debounced mode the resolver only marks the coordinator pending after a
// buffered write. A background ticker commits the buffer once enough writes
// have accumulated, and at most one flush runs at any time. Requests that
// arrive while a flush is running are coalesced: they re-arm the pending flag
// and are served by a later tick.
//
// States:
//
//	Idle → Pending      (MarkPending)
//	Pending → Flushing  (tick with enough writes, RequestFlush, Stop)
//	Flushing → Idle     (success, nothing new pending)
//	Flushing → Pending  (failure, or writes marked during the flush)
package flush
