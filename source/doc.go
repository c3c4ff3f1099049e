// Package source provides built-in peer source implementations.
//
// Peer sources supply the candidate pool the router selects from. The pool
// is read once when the router opens and is fixed afterwards. The package
// includes:
//
//   - Static: Fixed list of peers, typically from configuration
//   - KV: Peers registered in a JetStream KV bucket
//
// Custom sources can be implemented by satisfying the types.PeerSource interface.
package source
