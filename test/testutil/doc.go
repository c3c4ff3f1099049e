// Package testutil provides shared test utilities and fixtures for integration tests.
//
// This package contains common setup code, test data, and helper functions
// that are used across multiple integration and stress tests.
//
// Examples of utilities that belong here:
//   - Common test fixtures (predefined configurations, peer pools, keys)
//   - Setup helpers (several routers sharing one bucket)
//   - Assertion helpers (assignment shape, agreement between routers)
//
// Note: For NATS server setup, use the github.com/arloliu/peerrouter/testing package.
// This package is specifically for integration test scenarios and helper utilities.
package testutil
