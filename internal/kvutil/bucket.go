// Package kvutil provides utilities for working with NATS JetStream KeyValue stores.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ErrInvalidStorage is returned when a storage type name is not recognized.
var ErrInvalidStorage = errors.New("invalid KV storage type")

// BucketOptions describes the assignment bucket.
type BucketOptions struct {
	// Bucket is the KV bucket name.
	Bucket string

	// Replicas is the number of JetStream stream replicas.
	Replicas int

	// Storage is "file" or "memory".
	Storage string

	// Description is stored on the stream.
	Description string
}

// AssignmentBucketConfig builds the KV configuration for the assignment bucket.
//
// Assignments are permanent, so the bucket keeps exactly one revision per key
// and never expires entries.
//
// Parameters:
//   - opts: Bucket options
//
// Returns:
//   - jetstream.KeyValueConfig: KV configuration ready for EnsureKVBucketWithRetry
//   - error: ErrInvalidStorage (wrapped) for an unknown storage type
func AssignmentBucketConfig(opts BucketOptions) (jetstream.KeyValueConfig, error) {
	storage, err := ParseStorage(opts.Storage)
	if err != nil {
		return jetstream.KeyValueConfig{}, err
	}

	replicas := opts.Replicas
	if replicas <= 0 {
		replicas = 1
	}

	desc := opts.Description
	if desc == "" {
		desc = "peerrouter key to peer assignments"
	}

	return jetstream.KeyValueConfig{
		Bucket:      opts.Bucket,
		Description: desc,
		History:     1,
		TTL:         0,
		Storage:     storage,
		Replicas:    replicas,
	}, nil
}

// ParseStorage converts a storage name into a JetStream storage type.
//
// An empty name selects file storage.
func ParseStorage(name string) (jetstream.StorageType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "file":
		return jetstream.FileStorage, nil
	case "memory", "mem":
		return jetstream.MemoryStorage, nil
	default:
		return jetstream.FileStorage, fmt.Errorf("%w: %q", ErrInvalidStorage, name)
	}
}

// EnsureKVBucketWithRetry creates or opens a KV bucket with retry logic.
//
// This function handles races when several routers start against the same
// bucket concurrently. It will retry with exponential backoff if the creation
// fails due to transient errors.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - config: KV bucket configuration
//   - maxRetries: Maximum number of retry attempts (default: 3)
//
// Returns:
//   - jetstream.KeyValue: The KV bucket instance
//   - error: Any error that occurred after all retries
//
// Example:
//
//	cfg, _ := kvutil.AssignmentBucketConfig(kvutil.BucketOptions{Bucket: "peerrouter-assignments"})
//	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, cfg, 3)
func EnsureKVBucketWithRetry(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.KeyValueConfig,
	maxRetries int,
) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error

	for attempt := range maxRetries {
		kv, err := js.CreateKeyValue(ctx, config)
		if err == nil {
			return kv, nil
		}

		// Someone else created it first; open the existing bucket
		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err := js.KeyValue(ctx, config.Bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", err)
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during KV bucket creation: %w", ctx.Err())
		}

		// Exponential backoff: 10ms, 20ms, 40ms...
		if attempt < maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond //nolint:gosec // attempt is bounded by maxRetries
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to create/open KV bucket %s after %d attempts: %w",
		config.Bucket, maxRetries, lastErr)
}
