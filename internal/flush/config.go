package flush

import (
	"time"

	"github.com/arloliu/peerrouter/internal/hooks"
	"github.com/arloliu/peerrouter/internal/logging"
	"github.com/arloliu/peerrouter/internal/metrics"
	"github.com/arloliu/peerrouter/types"
)

// Default coordinator settings.
const (
	DefaultInterval         = time.Second
	DefaultMinBatchSize     = 1
	DefaultOperationTimeout = 10 * time.Second

	// subscriberBuffer is the per-subscriber error channel capacity.
	subscriberBuffer = 8
)

// Config configures a Coordinator.
type Config struct {
	// Interval between pending checks.
	Interval time.Duration

	// MinBatchSize is the buffered write count a tick needs before it flushes.
	MinBatchSize int

	// OperationTimeout bounds each background flush.
	OperationTimeout time.Duration

	Logger  types.Logger
	Metrics types.FlushMetrics
	Hooks   *types.Hooks
}

// setDefaults fills zero values.
func (c *Config) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MinBatchSize <= 0 {
		c.MinBatchSize = DefaultMinBatchSize
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = DefaultOperationTimeout
	}
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NewNop()
	}
	c.Hooks = hooks.Fill(c.Hooks)
}
