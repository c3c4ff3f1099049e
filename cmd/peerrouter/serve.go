package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arloliu/peerrouter"
	"github.com/arloliu/peerrouter/internal/logging"
	"github.com/arloliu/peerrouter/internal/metrics"
	"github.com/arloliu/peerrouter/strategy"
	"github.com/arloliu/peerrouter/types"
)

// serveFlags are command-line overrides of the configuration file.
type serveFlags struct {
	configPath   string
	replicaCount int
	strategy     string
	flushMode    string
	natsURL      string
	embedded     bool
	storeDir     string
	metricsAddr  string
	logLevel     string
}

func parseServeFlags(args []string) (serveFlags, map[string]bool, error) {
	var f serveFlags
	fs := flag.NewFlagSet("peerrouter run", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "YAML or JSON configuration file")
	fs.IntVar(&f.replicaCount, "replica-count", 1, "peers per key")
	fs.IntVar(&f.replicaCount, "r", 1, "peers per key (shorthand)")
	fs.StringVar(&f.strategy, "strategy", strategy.NameRoundRobin, "selection strategy: "+fmt.Sprint(strategy.Names()))
	fs.StringVar(&f.flushMode, "flush-mode", string(types.FlushModeAuto), "auto or debounced")
	fs.StringVar(&f.natsURL, "nats-url", nats.DefaultURL, "NATS server URL")
	fs.BoolVar(&f.embedded, "embedded-nats", false, "run an embedded NATS server with JetStream")
	fs.StringVar(&f.storeDir, "store-dir", "", "JetStream directory of the embedded server")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return serveFlags{}, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	return f, set, nil
}

// loadServeConfig reads the configuration file and applies explicitly set flags.
func loadServeConfig(f serveFlags, set map[string]bool) (peerrouter.Config, error) {
	cfg := peerrouter.DefaultConfig()
	if f.configPath != "" {
		loaded, err := peerrouter.LoadConfig(f.configPath)
		if err != nil {
			return peerrouter.Config{}, err
		}
		cfg = loaded
	}

	if set["replica-count"] || set["r"] {
		cfg.ReplicaCount = f.replicaCount
	}
	if set["strategy"] {
		cfg.Strategy = f.strategy
	}
	if set["flush-mode"] {
		cfg.Flush.Mode = f.flushMode
	}
	if set["nats-url"] {
		cfg.NATS.URL = f.natsURL
	}
	if set["embedded-nats"] {
		cfg.NATS.Embedded = f.embedded
	}
	if set["store-dir"] {
		cfg.NATS.StoreDir = f.storeDir
	}
	if set["metrics-addr"] {
		cfg.Metrics.Enabled = f.metricsAddr != ""
		cfg.Metrics.Address = f.metricsAddr
	}
	if set["log-level"] {
		cfg.Logging.Level = f.logLevel
	}

	peerrouter.SetDefaults(&cfg)

	return cfg, cfg.Validate()
}

func serve(args []string) error {
	f, set, err := parseServeFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadServeConfig(f, set)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Backend: cfg.Logging.Backend,
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
	})
	if err != nil {
		return err
	}

	// Fail on an empty static pool before touching NATS
	if cfg.PeerSource.Type != peerrouter.PeerSourceKV {
		peers, err := cfg.ToPeers()
		if err != nil {
			return err
		}
		if len(peers) == 0 {
			return peerrouter.ErrEmptyPeerPool
		}
	}

	selector, err := strategy.ByName(cfg.Strategy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nc, shutdownNATS, err := connectNATS(cfg.NATS, logger)
	if err != nil {
		return err
	}
	defer shutdownNATS()

	opts := []peerrouter.Option{peerrouter.WithLogger(logger)}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, peerrouter.WithMetrics(metrics.NewPrometheus(reg, "")))
		metricsSrv = startMetricsServer(cfg.Metrics.Address, reg, logger)
	}

	src, err := openPeerSource(ctx, cfg, nc)
	if err != nil {
		return err
	}

	router, err := peerrouter.NewRouter(&cfg, nc, src, selector, opts...)
	if err != nil {
		return err
	}

	openCtx, cancelOpen := context.WithTimeout(ctx, cfg.OperationTimeout)
	err = router.Open(openCtx)
	cancelOpen()
	if err != nil {
		return fmt.Errorf("failed to open router: %w", err)
	}

	errs, unsubscribe := router.FlushErrors()
	go func() {
		for err := range errs {
			logger.Warn("background flush failed, will retry", "error", err)
		}
	}()

	logger.Info("peerrouter ready",
		"peers", len(router.Peers()),
		"peerSource", cfg.PeerSource.Type,
		"replicaCount", router.ReplicaCount(),
		"subjectPrefix", cfg.RPC.SubjectPrefix,
		"mirrorSubject", cfg.Mirror.Subject,
		"bucket", cfg.KV.Bucket,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	unsubscribe()
	closeErr := router.CloseWithTimeout()

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	return closeErr
}

// connectNATS connects to NATS, starting an embedded server first when configured.
func connectNATS(cfg peerrouter.NATSConfig, logger types.Logger) (*nats.Conn, func(), error) {
	url := cfg.URL

	var ns *server.Server
	if cfg.Embedded {
		var err error
		ns, err = server.NewServer(&server.Options{
			Host:      "127.0.0.1",
			Port:      -1,
			JetStream: true,
			StoreDir:  cfg.StoreDir,
			NoLog:     true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
		}

		go ns.Start()
		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return nil, nil, errors.New("embedded NATS server not ready")
		}
		url = ns.ClientURL()
		logger.Info("embedded NATS server started", "url", url, "storeDir", cfg.StoreDir)
	}

	nc, err := nats.Connect(url,
		nats.Name("peerrouter"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		if ns != nil {
			ns.Shutdown()
		}
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return nc, func() {
		nc.Close()
		if ns != nil {
			ns.Shutdown()
			ns.WaitForShutdown()
		}
	}, nil
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger types.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("metrics server listening", "address", addr)

	return srv
}
