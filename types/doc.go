// Package types provides core type definitions and interfaces for the peerrouter library.
//
// This package contains shared types that are used across multiple packages in the
// peerrouter library. By keeping these types in a separate package, we avoid import cycles
// between the main peerrouter package and its internal implementations.
//
// Key types:
//   - Key: 32-byte content key or peer identity
//   - Peer: candidate storage peer (identity plus optional location)
//   - Assignment: permanent mapping from a content key to its peers
//   - State / FlushState: router lifecycle and flush coordinator states
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
