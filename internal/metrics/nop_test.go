package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/peerrouter/types"
)

func TestNopMetrics(t *testing.T) {
	metrics := NewNop()
	require.IsType(t, &NopMetrics{}, metrics)

	// Should not panic with any input
	require.NotPanics(t, func() {
		metrics.RecordStateTransition(types.StateCreated, types.StateOpen)
		metrics.RecordStateTransition(types.State(99), types.State(100))
		metrics.RecordPeerPoolSize(-1)
		metrics.RecordResolve("hit", 0.01)
		metrics.RecordSelection("", 0)
		metrics.RecordFlush("tick", 5, 0.2, false)
		metrics.RecordFlushCoalesced()
		metrics.RecordPendingWrites(3)
		metrics.RecordFlushErrorDropped()
		metrics.RecordKVOperationDuration("get", 0.001)
	})
}
