package peerrouter

// Option configures a Router with optional dependencies.
type Option func(*routerOptions)

// routerOptions holds optional Router configuration.
type routerOptions struct {
	hooks    *Hooks
	metrics  MetricsCollector
	logger   Logger
	notifier Notifier
	store    AssignmentStore
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewRouter
//
// Example:
//
//	hooks := &peerrouter.Hooks{
//	    OnError: func(ctx context.Context, err error) error {
//	        alerts.Notify("peerrouter", err)
//	        return nil
//	    },
//	}
//	router, err := peerrouter.NewRouter(&cfg, conn, src, sel, peerrouter.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *routerOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewRouter
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *routerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewRouter
//
// Example:
//
//	logger := logging.NewSlogDefault()
//	router, err := peerrouter.NewRouter(&cfg, conn, src, sel, peerrouter.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *routerOptions) {
		o.logger = logger
	}
}

// WithNotifier receives every newly created assignment.
//
// The notifier is called in addition to the NATS mirror publisher configured
// by Config.Mirror. It must not block.
//
// Parameters:
//   - notifier: Notifier implementation
//
// Returns:
//   - Option: Functional option for NewRouter
func WithNotifier(notifier Notifier) Option {
	return func(o *routerOptions) {
		o.notifier = notifier
	}
}

// WithStore replaces the JetStream KV assignment store.
//
// With an injected store the NATS connection may be nil, in which case
// neither the RPC service nor the mirror publisher is started. The router
// closes the store on Close.
//
// Parameters:
//   - store: AssignmentStore implementation
//
// Returns:
//   - Option: Functional option for NewRouter
func WithStore(store AssignmentStore) Option {
	return func(o *routerOptions) {
		o.store = store
	}
}
