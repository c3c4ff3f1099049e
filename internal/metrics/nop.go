// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/arloliu/peerrouter/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A new no-op metrics collector instance
//
// Example:
//
//	router, _ := peerrouter.NewRouter(&cfg, nc, src, sel, peerrouter.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RouterMetrics implementation

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.State) {}

// RecordPeerPoolSize discards the pool size metric.
func (n *NopMetrics) RecordPeerPoolSize(_ /* size */ int) {}

// ResolverMetrics implementation

// RecordResolve discards the resolve metric.
func (n *NopMetrics) RecordResolve(_ /* result */ string, _ /* duration */ float64) {}

// RecordSelection discards the selection metric.
func (n *NopMetrics) RecordSelection(_ /* strategy */ string, _ /* peers */ int) {}

// FlushMetrics implementation

// RecordFlush discards the flush metric.
func (n *NopMetrics) RecordFlush(_ /* trigger */ string, _ /* entries */ int, _ /* duration */ float64, _ /* success */ bool) {
}

// RecordFlushCoalesced discards the coalesced flush metric.
func (n *NopMetrics) RecordFlushCoalesced() {}

// RecordPendingWrites discards the pending writes gauge.
func (n *NopMetrics) RecordPendingWrites(_ /* count */ int) {}

// RecordFlushErrorDropped discards the dropped error metric.
func (n *NopMetrics) RecordFlushErrorDropped() {}

// StoreMetrics implementation

// RecordKVOperationDuration discards the KV latency metric.
func (n *NopMetrics) RecordKVOperationDuration(_ /* operation */ string, _ /* duration */ float64) {}
