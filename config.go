package peerrouter

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/peerrouter/internal/kvutil"
	"github.com/arloliu/peerrouter/internal/logging"
	"github.com/arloliu/peerrouter/strategy"
	"github.com/arloliu/peerrouter/types"
)

// PeerConfig describes one candidate peer in configuration.
type PeerConfig struct {
	// Key is the peer identity key, hex or multibase encoded.
	Key string `yaml:"key"`

	// Location is optional placement metadata.
	Location string `yaml:"location,omitempty"`
}

// PeerMap is the map form of the peer list, keyed by peer identity:
//
//	blindPeers:
//	  9c0f...e1: {location: eu-west}
//	  41d2...7a: {location: us-east}
//
// Entries keep the order in which they appear in the file.
type PeerMap []PeerConfig

// UnmarshalYAML decodes a mapping of key to {location} preserving document order.
func (m *PeerMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: peer map must be a mapping", node.Line)
	}

	peers := make(PeerMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var body struct {
			Location string `yaml:"location"`
		}
		if err := node.Content[i+1].Decode(&body); err != nil {
			return fmt.Errorf("peer %q: %w", node.Content[i].Value, err)
		}
		peers = append(peers, PeerConfig{Key: node.Content[i].Value, Location: body.Location})
	}
	*m = peers

	return nil
}

// Peer source types.
const (
	// PeerSourceStatic reads the pool from Peers and BlindPeers.
	PeerSourceStatic = "static"

	// PeerSourceKV reads peers registered in a JetStream KV bucket.
	PeerSourceKV = "kv"
)

// PeerSourceConfig selects where the CLI reads the peer pool from.
type PeerSourceConfig struct {
	// Type is "static" or "kv".
	Type string `yaml:"type"`

	// Bucket holds peer registrations when Type is "kv".
	Bucket string `yaml:"bucket"`

	// KeyPrefix is prepended to every registered peer key.
	KeyPrefix string `yaml:"keyPrefix"`
}

// FlushConfig controls when buffered assignments are committed.
type FlushConfig struct {
	// Mode is "auto" (commit on every new assignment) or "debounced"
	// (commit in batches from a background timer).
	Mode string `yaml:"mode"`

	// Interval is how often the debounced flusher checks for pending writes.
	Interval time.Duration `yaml:"interval"`

	// MinBatchSize is the number of buffered writes a timer tick needs
	// before it flushes. Shutdown always flushes whatever is buffered.
	MinBatchSize int `yaml:"minBatchSize"`
}

// KVConfig configures the JetStream KV bucket holding assignments.
type KVConfig struct {
	// Bucket is the KV bucket name.
	Bucket string `yaml:"bucket"`

	// KeyPrefix is prepended to every stored content key.
	KeyPrefix string `yaml:"keyPrefix"`

	// Replicas is the JetStream replication factor of the bucket.
	Replicas int `yaml:"replicas"`

	// Storage is "file" or "memory".
	Storage string `yaml:"storage"`
}

// RPCConfig configures the NATS request/reply service.
type RPCConfig struct {
	// Disabled turns the RPC service off. Resolution is still available
	// through the Router API.
	Disabled bool `yaml:"disabled"`

	// SubjectPrefix groups the service endpoints, e.g. "peerrouter.get-peers".
	SubjectPrefix string `yaml:"subjectPrefix"`

	// QueueGroup lets several routers share requests. Empty uses the NATS micro default.
	QueueGroup string `yaml:"queueGroup"`
}

// MirrorConfig configures assignment announcements.
type MirrorConfig struct {
	// Subject is the subject prefix new assignments are published under.
	// Empty disables publishing.
	Subject string `yaml:"subject"`
}

// LoggingConfig selects the logger built by the CLI.
type LoggingConfig struct {
	// Backend is "slog" or "logrus".
	Backend string `yaml:"backend"`

	// Level is "debug", "info", "warn" or "error".
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint served by the CLI.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// NATSConfig configures how the CLI reaches NATS.
type NATSConfig struct {
	// URL of the NATS server. Ignored when Embedded is set.
	URL string `yaml:"url"`

	// Embedded runs an in-process NATS server with JetStream enabled.
	Embedded bool `yaml:"embedded"`

	// StoreDir is the JetStream directory of the embedded server.
	StoreDir string `yaml:"storeDir"`
}

// Config is the configuration for the Router.
//
// All duration fields accept standard Go duration strings like "500ms", "1s", "1m".
type Config struct {
	// ReplicaCount is the number of peers assigned to each key.
	// Clamped to the peer pool size when the router opens.
	ReplicaCount int `yaml:"replicaCount"`

	// Strategy names the selection strategy the CLI builds:
	// "round-robin", "proximity" or "consistent-hash".
	Strategy string `yaml:"strategy"`

	// Peers is the candidate peer pool in list form.
	Peers []PeerConfig `yaml:"peers"`

	// BlindPeers is the candidate peer pool in map form. Appended after Peers.
	BlindPeers PeerMap `yaml:"blindPeers"`

	// PeerSource selects the pool origin. With "kv" the Peers and BlindPeers
	// lists are ignored.
	PeerSource PeerSourceConfig `yaml:"peerSource"`

	// KeyLockStripes is the number of per-key lock stripes used to serialize
	// first resolution of the same key. Negative disables key locking.
	KeyLockStripes int `yaml:"keyLockStripes"`

	// OperationTimeout bounds RPC-originated resolutions and background flushes.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// ShutdownTimeout bounds Close when called by the CLI.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	Flush   FlushConfig   `yaml:"flush"`
	KV      KVConfig      `yaml:"kv"`
	RPC     RPCConfig     `yaml:"rpc"`
	Mirror  MirrorConfig  `yaml:"mirror"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	NATS    NATSConfig    `yaml:"nats"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// The peer pool is empty and must be supplied.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		ReplicaCount:     1,
		Strategy:         strategy.NameRoundRobin,
		KeyLockStripes:   256,
		OperationTimeout: 10 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		PeerSource: PeerSourceConfig{
			Type:      PeerSourceStatic,
			Bucket:    "peerrouter-peers",
			KeyPrefix: "peer",
		},
		Flush: FlushConfig{
			Mode:         string(types.FlushModeAuto),
			Interval:     time.Second,
			MinBatchSize: 1,
		},
		KV: KVConfig{
			Bucket:    "peerrouter-assignments",
			KeyPrefix: "assignment",
			Replicas:  1,
			Storage:   "file",
		},
		RPC: RPCConfig{
			SubjectPrefix: "peerrouter",
		},
		Mirror: MirrorConfig{
			Subject: "peerrouter.assigned",
		},
		Logging: LoggingConfig{
			Backend: logging.BackendSlog,
			Level:   "info",
			Format:  logging.FormatText,
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
		NATS: NATSConfig{
			URL: "nats://127.0.0.1:4222",
		},
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.ReplicaCount == 0 {
		cfg.ReplicaCount = defaults.ReplicaCount
	}
	if cfg.Strategy == "" {
		cfg.Strategy = defaults.Strategy
	}
	if cfg.PeerSource.Type == "" {
		cfg.PeerSource.Type = defaults.PeerSource.Type
	}
	if cfg.PeerSource.Bucket == "" {
		cfg.PeerSource.Bucket = defaults.PeerSource.Bucket
	}
	if cfg.PeerSource.KeyPrefix == "" {
		cfg.PeerSource.KeyPrefix = defaults.PeerSource.KeyPrefix
	}
	if cfg.KeyLockStripes == 0 {
		cfg.KeyLockStripes = defaults.KeyLockStripes
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.Flush.Mode == "" {
		cfg.Flush.Mode = defaults.Flush.Mode
	}
	if cfg.Flush.Interval == 0 {
		cfg.Flush.Interval = defaults.Flush.Interval
	}
	if cfg.Flush.MinBatchSize == 0 {
		cfg.Flush.MinBatchSize = defaults.Flush.MinBatchSize
	}
	if cfg.KV.Bucket == "" {
		cfg.KV.Bucket = defaults.KV.Bucket
	}
	if cfg.KV.KeyPrefix == "" {
		cfg.KV.KeyPrefix = defaults.KV.KeyPrefix
	}
	if cfg.KV.Replicas == 0 {
		cfg.KV.Replicas = defaults.KV.Replicas
	}
	if cfg.KV.Storage == "" {
		cfg.KV.Storage = defaults.KV.Storage
	}
	if cfg.RPC.SubjectPrefix == "" {
		cfg.RPC.SubjectPrefix = defaults.RPC.SubjectPrefix
	}
	// Note: an empty Mirror.Subject disables publishing, so it gets no default here
	if cfg.Logging.Backend == "" {
		cfg.Logging.Backend = defaults.Logging.Backend
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = defaults.Metrics.Address
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = defaults.NATS.URL
	}
}

// Validate checks configuration constraints and returns error for invalid values.
//
// Hard Validation Rules:
//   - ReplicaCount >= 1
//   - Flush.Mode is "auto" or "debounced"
//   - Flush.Interval > 0 and Flush.MinBatchSize >= 1
//   - Strategy is a known strategy name
//   - Every configured peer key parses
//   - PeerSource.Type is "static" or "kv" (empty means static)
//   - KV.Storage is "file" or "memory"
//
// An empty peer pool is not a validation error: peers may come from a
// source other than configuration. Router.Open rejects an empty pool.
//
// Returns:
//   - error: Validation error wrapping ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	if cfg.ReplicaCount < 1 {
		return fmt.Errorf("%w: replicaCount must be >= 1, got %d", ErrInvalidConfig, cfg.ReplicaCount)
	}

	if _, err := types.ParseFlushMode(cfg.Flush.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if cfg.Flush.Interval <= 0 {
		return fmt.Errorf("%w: flush.interval must be > 0, got %v", ErrInvalidConfig, cfg.Flush.Interval)
	}

	if cfg.Flush.MinBatchSize < 1 {
		return fmt.Errorf("%w: flush.minBatchSize must be >= 1, got %d", ErrInvalidConfig, cfg.Flush.MinBatchSize)
	}

	if cfg.Strategy != "" {
		if _, err := strategy.ByName(cfg.Strategy); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	if _, err := cfg.ToPeers(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch cfg.PeerSource.Type {
	case "", PeerSourceStatic, PeerSourceKV:
	default:
		return fmt.Errorf("%w: peerSource.type must be %q or %q, got %q",
			ErrInvalidConfig, PeerSourceStatic, PeerSourceKV, cfg.PeerSource.Type)
	}

	if _, err := kvutil.ParseStorage(cfg.KV.Storage); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// ValidateWithWarnings checks configuration and logs warnings for non-recommended values.
//
// This is called after Validate() in NewRouter() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	peers, _ := cfg.ToPeers()
	if len(peers) > 0 && cfg.ReplicaCount > len(peers) {
		logger.Warn(
			"replicaCount exceeds configured peer count, assignments will be clamped",
			"replicaCount", cfg.ReplicaCount,
			"peers", len(peers),
		)
	}

	seen := make(map[types.Key]struct{}, len(peers))
	for _, p := range peers {
		if _, dup := seen[p.Key]; dup {
			logger.Warn("duplicate peer key in configuration", "peer", p.Key.Short())
		}
		seen[p.Key] = struct{}{}
	}

	mode, _ := types.ParseFlushMode(cfg.Flush.Mode)
	if mode == types.FlushModeDebounced && cfg.Flush.Interval < 10*time.Millisecond {
		logger.Warn(
			"flush interval is very short, debounced mode will flush almost continuously",
			"interval", cfg.Flush.Interval,
			"recommended", "100ms or higher",
		)
	}

	if cfg.PeerSource.Type == PeerSourceKV && len(peers) > 0 {
		logger.Warn("peerSource.type is kv, configured peers are ignored", "peers", len(peers))
	}

	if cfg.KeyLockStripes < 0 {
		logger.Warn("per-key locking disabled, concurrent first resolutions of one key may race")
	}
}

// ToPeers parses the configured peers, list form first then map form.
//
// Returns:
//   - []types.Peer: Parsed peers in configuration order
//   - error: First key that fails to parse
func (cfg *Config) ToPeers() ([]types.Peer, error) {
	peers := make([]types.Peer, 0, len(cfg.Peers)+len(cfg.BlindPeers))

	for _, list := range [][]PeerConfig{cfg.Peers, cfg.BlindPeers} {
		for _, pc := range list {
			key, err := types.ParseKey(strings.TrimSpace(pc.Key))
			if err != nil {
				return nil, fmt.Errorf("peer %q: %w", pc.Key, err)
			}
			peers = append(peers, types.Peer{Key: key, Location: pc.Location})
		}
	}

	return peers, nil
}

// FlushMode returns the parsed flush mode, defaulting to auto.
func (cfg *Config) FlushMode() FlushMode {
	mode, err := types.ParseFlushMode(cfg.Flush.Mode)
	if err != nil {
		return types.FlushModeAuto
	}

	return mode
}

// LoadConfig reads a YAML (or JSON) configuration file and applies defaults.
//
// The result is not validated; NewRouter validates it.
//
// Parameters:
//   - path: Configuration file path
//
// Returns:
//   - Config: Parsed configuration with defaults applied
//   - error: Read or parse error
//
// Example:
//
//	cfg, err := peerrouter.LoadConfig("/etc/peerrouter/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// ParseConfig decodes YAML (or JSON) configuration bytes and applies defaults.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	SetDefaults(&cfg)

	return cfg, nil
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Uses in-memory KV storage and a short flush interval. Use DefaultConfig()
// for production deployments.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := peerrouter.TestConfig()
//	cfg.Flush.Mode = "debounced"
//	router, err := peerrouter.NewRouter(&cfg, nc, src, strategy.NewProximity())
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.Flush.Interval = 20 * time.Millisecond // 50x faster
	cfg.OperationTimeout = 2 * time.Second
	cfg.ShutdownTimeout = 2 * time.Second
	cfg.KV.Storage = "memory"

	return cfg
}
