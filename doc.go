// Package peerrouter assigns storage peers to content keys and remembers the
// assignment forever.
//
// On the first lookup of a 32-byte content key the router selects a fixed
// number of peers from a configured pool, stores the choice durably in a NATS
// JetStream KV bucket and announces it. Every later lookup of the same key,
// from any router sharing the bucket, returns the same peers.
//
// # Quick Start
//
//	import (
//	    "github.com/arloliu/peerrouter"
//	    "github.com/arloliu/peerrouter/source"
//	    "github.com/arloliu/peerrouter/strategy"
//	)
//
//	cfg := peerrouter.DefaultConfig()
//	cfg.ReplicaCount = 2
//
//	src := source.NewStatic(peers)
//	router, err := peerrouter.NewRouter(&cfg, natsConn, src, strategy.NewRoundRobin())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := router.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer router.Close(context.Background())
//
//	assignment, err := router.Resolve(ctx, key)
//
// # Key Features
//
//   - Get-or-create: selection runs once per key, the stored result is authoritative
//   - Strategies: round-robin rotation, XOR proximity, consistent-hash preference lists
//   - Flush modes: synchronous commit (auto) or batched background commit (debounced)
//   - NATS RPC: get-peers and resolve-peers endpoints served with NATS micro
//   - Mirroring: new assignments published on NATS for replication workers
//
// # Architecture
//
// A router progresses through a simple lifecycle:
//
//	Created → Open → Closed
//
// Resolution path for a key K:
//
//	store.Get(K) ── hit ──▶ return
//	     │
//	    miss
//	     ▼
//	selector.Select ─▶ store.Put ─▶ flush (auto) | mark pending (debounced) ─▶ notify ─▶ return
//
// In debounced mode a background coordinator commits buffered assignments
// when its timer fires and enough writes are pending. At most one flush runs
// at a time; concurrent requests are coalesced. Background flush errors are
// delivered through FlushErrors and the OnError hook.
//
// See the examples/ directory for complete working examples.
package peerrouter
