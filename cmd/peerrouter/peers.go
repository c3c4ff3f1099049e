package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/peerrouter"
	"github.com/arloliu/peerrouter/internal/kvutil"
	"github.com/arloliu/peerrouter/source"
	"github.com/arloliu/peerrouter/types"
)

// openPeerSource builds the peer source selected by cfg.PeerSource.
func openPeerSource(ctx context.Context, cfg peerrouter.Config, nc *nats.Conn) (types.PeerSource, error) {
	if cfg.PeerSource.Type != peerrouter.PeerSourceKV {
		peers, err := cfg.ToPeers()
		if err != nil {
			return nil, err
		}

		return source.NewStatic(peers), nil
	}

	kv, err := openPeerBucket(ctx, nc, cfg.PeerSource.Bucket, cfg.KV.Storage, cfg.KV.Replicas)
	if err != nil {
		return nil, err
	}

	return source.NewKV(kv, cfg.PeerSource.KeyPrefix), nil
}

// openPeerBucket creates or opens the peer registry bucket.
func openPeerBucket(ctx context.Context, nc *nats.Conn, bucket, storage string, replicas int) (jetstream.KeyValue, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bucketCfg, err := kvutil.AssignmentBucketConfig(kvutil.BucketOptions{
		Bucket:      bucket,
		Replicas:    replicas,
		Storage:     storage,
		Description: "peerrouter peer registry",
	})
	if err != nil {
		return nil, err
	}

	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, bucketCfg, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to open peer bucket %s: %w", bucket, err)
	}

	return kv, nil
}

// register adds peers to the KV peer registry read by "run" with peerSource.type kv.
func register(args []string) error {
	fs := flag.NewFlagSet("peerrouter register", flag.ContinueOnError)
	natsURL := fs.String("nats-url", nats.DefaultURL, "NATS server URL")
	bucket := fs.String("bucket", peerrouter.DefaultConfig().PeerSource.Bucket, "peer registry bucket")
	prefix := fs.String("prefix", source.DefaultPeerKeyPrefix, "peer key prefix")
	storage := fs.String("storage", "file", "bucket storage when it is created: file or memory")
	location := fs.String("location", "", "location of the registered peers")
	timeout := fs.Duration("timeout", 5*time.Second, "operation timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: peerrouter register [flags] <peer-key>...")
	}

	nc, err := nats.Connect(*natsURL, nats.Name("peerrouter-register"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	return registerPeers(ctx, nc, *bucket, *prefix, *storage, *location, fs.Args())
}

func registerPeers(ctx context.Context, nc *nats.Conn, bucket, prefix, storage, location string, keys []string) error {
	peers := make([]types.Peer, 0, len(keys))
	for _, s := range keys {
		key, err := parseKeyArg(s)
		if err != nil {
			return err
		}
		peers = append(peers, types.Peer{Key: key, Location: location})
	}

	kv, err := openPeerBucket(ctx, nc, bucket, storage, 1)
	if err != nil {
		return err
	}

	src := source.NewKV(kv, prefix)
	for _, p := range peers {
		if err := src.Register(ctx, p); err != nil {
			return err
		}
		fmt.Println(p.Key.String())
	}

	return nil
}
