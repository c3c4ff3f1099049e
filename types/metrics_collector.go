package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from request handlers and background goroutines
// and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	RouterMetrics
	ResolverMetrics
	FlushMetrics
	StoreMetrics
}

// RouterMetrics defines metrics for router lifecycle operations.
type RouterMetrics interface {
	// RecordStateTransition records a router lifecycle transition.
	RecordStateTransition(from, to State)

	// RecordPeerPoolSize sets the size of the candidate peer pool (gauge metric).
	RecordPeerPoolSize(size int)
}

// ResolverMetrics defines metrics for key resolution.
type ResolverMetrics interface {
	// RecordResolve records a completed resolve call.
	//
	// Parameters:
	//   - result: "hit", "miss" or "error"
	//   - duration: Time taken in seconds
	RecordResolve(result string, duration float64)

	// RecordSelection records one invocation of the selection strategy.
	//
	// Parameters:
	//   - strategy: Strategy name
	//   - peers: Number of peers selected
	RecordSelection(strategy string, peers int)
}

// FlushMetrics defines metrics for the flush coordinator.
type FlushMetrics interface {
	// RecordFlush records a flush attempt.
	//
	// Parameters:
	//   - trigger: "auto", "tick", "manual" or "shutdown"
	//   - entries: Buffered entries at the start of the flush
	//   - duration: Time taken in seconds
	//   - success: true if the flush committed everything
	RecordFlush(trigger string, entries int, duration float64, success bool)

	// RecordFlushCoalesced records a flush request merged into an in-flight flush.
	RecordFlushCoalesced()

	// RecordPendingWrites sets the number of buffered writes (gauge metric).
	RecordPendingWrites(count int)

	// RecordFlushErrorDropped records a flush error not delivered to a slow subscriber.
	RecordFlushErrorDropped()
}

// StoreMetrics defines metrics for the durable engine.
type StoreMetrics interface {
	// RecordKVOperationDuration records NATS KV operation latency.
	//
	// Parameters:
	//   - operation: Operation type ("get", "create")
	//   - duration: Time taken in seconds
	RecordKVOperationDuration(operation string, duration float64)
}
