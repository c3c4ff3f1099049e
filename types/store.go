package types

import "context"

// AssignmentStore is the durable mapping from content keys to assignments.
//
// Consistency contract:
//   - Get reflects every flushed write and, within the same process, every
//     buffered write that has not been flushed yet (read-your-own-write)
//   - A Put followed by a successful Flush survives process restart
//   - Once a key is committed, later commits for that key are ignored: the
//     first committed assignment is authoritative
type AssignmentStore interface {
	// Get looks up the assignment for key.
	//
	// Returns:
	//   - Assignment: Stored assignment (zero value when not found)
	//   - bool: true if an assignment exists
	//   - error: Read error (wraps ErrStoreRead)
	Get(ctx context.Context, key Key) (Assignment, bool, error)

	// Put buffers an assignment. It does not commit it durably.
	Put(ctx context.Context, a Assignment) error

	// Flush commits all buffered writes durably.
	//
	// On failure the uncommitted writes stay buffered so a later Flush can retry.
	Flush(ctx context.Context) error

	// Discard drops the buffered write for key, if any. Committed records are
	// never affected.
	Discard(ctx context.Context, key Key) error

	// PendingCount returns the number of buffered writes.
	PendingCount() int

	// HasPendingWrites reports whether anything is waiting to be flushed.
	HasPendingWrites() bool

	// Close releases the store. Buffered writes are not flushed by Close.
	Close(ctx context.Context) error
}

// Notifier receives newly created assignments.
//
// It is the hand-off point to the mirroring side effect that copies the
// content to its assigned peers. Calls are fire-and-forget: implementations
// must not block the resolve path and the resolver never retries.
type Notifier interface {
	// NotifyAssigned is called once per newly created assignment, after it was stored.
	NotifyAssigned(a Assignment)
}
