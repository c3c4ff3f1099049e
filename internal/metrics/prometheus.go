package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/peerrouter/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing
// a PrometheusCollector never panics on duplicate registration until it is
// actually used.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Router metrics
	stateTransitions *prometheus.CounterVec
	poolSize         prometheus.Gauge

	// Resolver metrics
	resolves       *prometheus.CounterVec
	resolveLatency *prometheus.HistogramVec
	selections     *prometheus.CounterVec
	selectedPeers  *prometheus.HistogramVec

	// Flush metrics
	flushes          *prometheus.CounterVec
	flushLatency     *prometheus.HistogramVec
	flushEntries     prometheus.Histogram
	flushCoalesced   prometheus.Counter
	pendingWrites    prometheus.Gauge
	flushErrsDropped prometheus.Counter

	// Store metrics
	kvLatency *prometheus.HistogramVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "peerrouter" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "peerrouter"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "router",
			Name:      "state_transitions_total",
			Help:      "Total router lifecycle transitions by source and target state.",
		}, []string{"from", "to"})

		p.poolSize = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "router",
			Name:      "peer_pool_size",
			Help:      "Number of candidate peers in the pool.",
		})

		p.resolves = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "resolver",
			Name:      "resolves_total",
			Help:      "Total resolve calls by result (hit, miss, error).",
		}, []string{"result"})

		p.resolveLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "resolver",
			Name:      "resolve_duration_seconds",
			Help:      "Latency of resolve calls in seconds by result.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2.5, 12), // 100us .. ~6s
		}, []string{"result"})

		p.selections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "resolver",
			Name:      "selections_total",
			Help:      "Total selection strategy invocations by strategy.",
		}, []string{"strategy"})

		p.selectedPeers = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "resolver",
			Name:      "selected_peers",
			Help:      "Number of peers returned per selection.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		}, []string{"strategy"})

		p.flushes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "flush",
			Name:      "flushes_total",
			Help:      "Total flush attempts by trigger and outcome.",
		}, []string{"trigger", "success"})

		p.flushLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "flush",
			Name:      "flush_duration_seconds",
			Help:      "Latency of flush attempts in seconds by trigger.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		}, []string{"trigger"})

		p.flushEntries = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "flush",
			Name:      "entries",
			Help:      "Buffered entries at the start of each flush.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1 .. 16384
		})

		p.flushCoalesced = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "flush",
			Name:      "coalesced_total",
			Help:      "Flush requests merged into an in-flight flush.",
		})

		p.pendingWrites = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "flush",
			Name:      "pending_writes",
			Help:      "Buffered assignment writes not yet committed.",
		})

		p.flushErrsDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "flush",
			Name:      "errors_dropped_total",
			Help:      "Flush errors not delivered to a slow subscriber.",
		})

		p.kvLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "store",
			Name:      "kv_operation_duration_seconds",
			Help:      "Latency of JetStream KV operations in seconds by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2.5, 12),
		}, []string{"operation"})

		p.reg.MustRegister(
			p.stateTransitions,
			p.poolSize,
			p.resolves,
			p.resolveLatency,
			p.selections,
			p.selectedPeers,
			p.flushes,
			p.flushLatency,
			p.flushEntries,
			p.flushCoalesced,
			p.pendingWrites,
			p.flushErrsDropped,
			p.kvLatency,
		)
	})
}

// RecordStateTransition counts a router lifecycle transition.
func (p *PrometheusCollector) RecordStateTransition(from, to types.State) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordPeerPoolSize sets the pool size gauge.
func (p *PrometheusCollector) RecordPeerPoolSize(size int) {
	p.ensureRegistered()
	p.poolSize.Set(float64(size))
}

// RecordResolve counts a resolve call and observes its latency.
func (p *PrometheusCollector) RecordResolve(result string, duration float64) {
	p.ensureRegistered()
	p.resolves.WithLabelValues(result).Inc()
	p.resolveLatency.WithLabelValues(result).Observe(duration)
}

// RecordSelection counts a strategy invocation and observes the result size.
func (p *PrometheusCollector) RecordSelection(strategy string, peers int) {
	p.ensureRegistered()
	p.selections.WithLabelValues(strategy).Inc()
	p.selectedPeers.WithLabelValues(strategy).Observe(float64(peers))
}

// RecordFlush counts a flush attempt and observes its latency and size.
func (p *PrometheusCollector) RecordFlush(trigger string, entries int, duration float64, success bool) {
	p.ensureRegistered()
	p.flushes.WithLabelValues(trigger, strconv.FormatBool(success)).Inc()
	p.flushLatency.WithLabelValues(trigger).Observe(duration)
	p.flushEntries.Observe(float64(entries))
}

// RecordFlushCoalesced counts a coalesced flush request.
func (p *PrometheusCollector) RecordFlushCoalesced() {
	p.ensureRegistered()
	p.flushCoalesced.Inc()
}

// RecordPendingWrites sets the pending writes gauge.
func (p *PrometheusCollector) RecordPendingWrites(count int) {
	p.ensureRegistered()
	p.pendingWrites.Set(float64(count))
}

// RecordFlushErrorDropped counts an undelivered flush error.
func (p *PrometheusCollector) RecordFlushErrorDropped() {
	p.ensureRegistered()
	p.flushErrsDropped.Inc()
}

// RecordKVOperationDuration observes KV operation latency.
func (p *PrometheusCollector) RecordKVOperationDuration(operation string, duration float64) {
	p.ensureRegistered()
	p.kvLatency.WithLabelValues(operation).Observe(duration)
}
