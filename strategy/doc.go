// Package strategy provides built-in peer selection strategy implementations.
//
// A selection strategy picks which peers of the candidate pool become the
// replicas of a content key on first assignment. The package includes three
// built-in strategies:
//
//   - Proximity: XOR nearest-neighbour selection (deterministic, content addressed)
//   - RoundRobin: rotating cursor over the pool (even spread, instance stateful)
//   - ConsistentHash: preference list on an xxh3 hash ring with virtual nodes
//
// # Strategy Selection Guide
//
// Proximity:
//   - Use when replicas should be the peers "closest" to the key in XOR space
//   - Same key and same pool always yield the same peers, on every process
//   - Spread follows the key distribution, so a skewed key space skews load
//
// RoundRobin:
//   - Use for the most even spread of new assignments
//   - Result depends on call order, so it is only meaningful together with a
//     durable assignment store that remembers the first answer
//   - One cursor per instance; concurrent calls receive disjoint windows
//
// ConsistentHash:
//   - Use when placement should be deterministic but proximity is not wanted
//   - Virtual nodes smooth out the spread; the ring is rebuilt only when the
//     pool changes
//
// Custom strategies can be implemented by satisfying the types.PeerSelector interface.
package strategy
