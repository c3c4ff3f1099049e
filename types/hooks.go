package types

import "context"

// Hooks defines callbacks for router lifecycle events.
//
// All hooks are optional and called asynchronously in background goroutines
// so they never block resolution or flushing. Hook errors are logged but
// don't fail router operations.
//
// Example:
//
//	hooks := &peerrouter.Hooks{
//	    OnError: func(ctx context.Context, err error) error {
//	        alerts.Notify("peerrouter", err)
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnStateChanged is called when the router lifecycle state transitions.
	OnStateChanged func(ctx context.Context, from, to State) error

	// OnError is called when a recoverable background error occurs,
	// such as a failed debounced flush.
	OnError func(ctx context.Context, err error) error
}
