// Package rpc exposes peer resolution over NATS request/reply.
//
// The server registers a NATS micro service with two endpoints under a
// configurable subject prefix:
//
//	<prefix>.get-peers      {"key":"<hex>"} → {"peers":["<hex>", ...]}
//	<prefix>.resolve-peers  {"key":"<hex>"} → {"key":"<hex>","peers":[{"key":"<hex>","location":"..."}]}
//
// Malformed requests are answered with service error 400, resolution
// failures with 500. Client wraps both calls.
package rpc
