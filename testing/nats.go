package testing

import (
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StartEmbeddedNATS starts an embedded NATS server with JetStream enabled for testing.
//
// The server runs in-process with JetStream enabled and stores data in a temporary
// directory that is automatically cleaned up when the test completes. The server
// uses a random available port to avoid conflicts in parallel tests.
//
// Parameters:
//   - t: Testing context for logging and cleanup
//
// Returns:
//   - *server.Server: The embedded NATS server instance
//   - *nats.Conn: Connected NATS client (closed automatically on test completion)
//
// Example:
//
//	func TestStore(t *testing.T) {
//	    _, nc := routertest.StartEmbeddedNATS(t)
//	    // Server and connection are automatically cleaned up
//	}
func StartEmbeddedNATS(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	ns := StartEmbeddedServer(t, t.TempDir())
	nc := Connect(t, ns)

	return ns, nc
}

// StartEmbeddedServer starts an embedded JetStream server using storeDir.
//
// Reusing the same storeDir across two servers in one test simulates a
// process restart with durable state.
//
// Parameters:
//   - t: Testing context for logging and cleanup
//   - storeDir: JetStream storage directory
//
// Returns:
//   - *server.Server: Running server, shut down on test cleanup
func StartEmbeddedServer(t *testing.T, storeDir string) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,       // Use random available port
		JetStream: true,     // Enable JetStream for KV stores
		StoreDir:  storeDir, // Caller owns the directory lifetime
		NoLog:     true,     // Suppress all server logs in tests
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("Failed to create embedded NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("Embedded NATS server not ready within timeout")
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns
}

// Connect opens a client connection to ns, closed on test cleanup.
func Connect(t *testing.T, ns *server.Server) *nats.Conn {
	t.Helper()

	nc, err := nats.Connect(ns.ClientURL(),
		nats.Timeout(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(3),
	)
	if err != nil {
		t.Fatalf("Failed to connect to embedded NATS server: %v", err)
	}

	// Registered after the server cleanup, so it runs first.
	t.Cleanup(nc.Close)

	return nc
}

// CreateJetStreamKV creates an assignment-shaped KV bucket for testing.
//
// The bucket keeps one revision per key, never expires entries and lives in
// memory.
//
// Parameters:
//   - t: Testing context
//   - nc: NATS connection (from StartEmbeddedNATS)
//   - bucketName: Name of the KV bucket to create
//
// Returns:
//   - jetstream.KeyValue: The created KV bucket interface
//
// Example:
//
//	func TestStore(t *testing.T) {
//	    _, nc := routertest.StartEmbeddedNATS(t)
//	    kv := routertest.CreateJetStreamKV(t, nc, "assignments")
//	}
func CreateJetStreamKV(t *testing.T, nc *nats.Conn, bucketName string) jetstream.KeyValue {
	t.Helper()

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("Failed to get JetStream context: %v", err)
	}

	kv, err := js.CreateKeyValue(t.Context(), jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Test KV bucket: %s", bucketName),
		History:     1,
		Storage:     jetstream.MemoryStorage,
		Replicas:    1,
	})
	if err != nil {
		t.Fatalf("Failed to create KV bucket %s: %v", bucketName, err)
	}

	return kv
}
