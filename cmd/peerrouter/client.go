package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/arloliu/peerrouter"
	"github.com/arloliu/peerrouter/internal/mirror"
	"github.com/arloliu/peerrouter/internal/rpc"
)

func resolve(args []string) error {
	fs := flag.NewFlagSet("peerrouter resolve", flag.ContinueOnError)
	natsURL := fs.String("nats-url", nats.DefaultURL, "NATS server URL")
	prefix := fs.String("prefix", rpc.DefaultSubjectPrefix, "RPC subject prefix")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	full := fs.Bool("locations", false, "print peer locations too")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: peerrouter resolve [flags] <key>")
	}

	nc, err := nats.Connect(*natsURL, nats.Name("peerrouter-resolve"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := rpc.NewClient(nc, *prefix, *timeout)

	if !*full {
		peers, err := client.GetPeersRaw(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		for _, p := range peers {
			fmt.Println(p.String())
		}

		return nil
	}

	key, err := parseKeyArg(fs.Arg(0))
	if err != nil {
		return err
	}
	peers, err := client.ResolvePeers(ctx, key)
	if err != nil {
		return err
	}
	for _, p := range peers {
		fmt.Printf("%s\t%s\n", p.Key, p.Location)
	}

	return nil
}

func watch(args []string) error {
	fs := flag.NewFlagSet("peerrouter watch", flag.ContinueOnError)
	natsURL := fs.String("nats-url", nats.DefaultURL, "NATS server URL")
	subject := fs.String("subject", mirror.DefaultSubject, "assignment event subject prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}

	nc, err := nats.Connect(*natsURL, nats.Name("peerrouter-watch"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	if _, err := mirror.Subscribe(ctx, nc, *subject, func(ev mirror.Event) {
		_ = enc.Encode(ev)
	}); err != nil {
		return err
	}

	<-ctx.Done()

	return nil
}

func parseKeyArg(s string) (peerrouter.Key, error) {
	key, err := peerrouter.ParseKey(s)
	if err != nil {
		return peerrouter.Key{}, fmt.Errorf("invalid key %q: %w", s, err)
	}

	return key, nil
}
