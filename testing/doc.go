// Package testing provides test utilities for the peerrouter library.
//
// This package offers helpers for setting up test environments, particularly
// embedded NATS servers with JetStream for store and RPC tests. It follows
// Go's convention of providing testing utilities in a dedicated package
// (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - CreateJetStreamKV: Assignment-shaped KV bucket (history 1, no TTL)
//   - NewTestLogger: types.Logger writing to t.Logf
//
// Example usage:
//
//	import (
//	    "testing"
//	    routertest "github.com/arloliu/peerrouter/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := routertest.StartEmbeddedNATS(t)
//	    kv := routertest.CreateJetStreamKV(t, nc, "assignments")
//	}
package testing
