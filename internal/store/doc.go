// Package store implements the durable assignment store on NATS JetStream KV.
//
// Writes are buffered in memory and committed by Flush. Each key is committed
// with a create-once write, so the first assignment committed for a key is
// authoritative: a later commit for the same key, from this process or any
// other, is discarded.
//
// Reads consult the write buffer first (read-your-own-write), then the bucket.
package store
