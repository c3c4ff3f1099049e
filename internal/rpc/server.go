package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/arloliu/peerrouter/internal/logging"
	"github.com/arloliu/peerrouter/types"
)

// Server defaults.
const (
	DefaultServiceName   = "peerrouter"
	DefaultVersion       = "1.0.0"
	DefaultSubjectPrefix = "peerrouter"
	DefaultTimeout       = 10 * time.Second
)

// Resolver is the resolution backend served over RPC.
type Resolver interface {
	Resolve(ctx context.Context, key types.Key) (types.Assignment, error)
}

// Config configures a Server.
type Config struct {
	// Name is the micro service name.
	Name string

	// Version is the semantic version advertised by the service.
	Version string

	// SubjectPrefix is the group subject under which endpoints live.
	SubjectPrefix string

	// Timeout bounds each resolution.
	Timeout time.Duration

	// QueueGroup lets several routers share the load. Empty uses the micro default.
	QueueGroup string

	Logger types.Logger
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = DefaultServiceName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
}

// Server serves peer resolution on NATS.
type Server struct {
	svc      micro.Service
	resolver Resolver
	cfg      Config
}

// Start registers the service and its endpoints.
//
// Parameters:
//   - conn: NATS connection
//   - resolver: Resolution backend
//   - cfg: Server configuration
//
// Returns:
//   - *Server: Running server
//   - error: Registration failure
//
// Example:
//
//	srv, err := rpc.Start(nc, router, rpc.Config{SubjectPrefix: "peerrouter"})
//	defer srv.Stop()
func Start(conn *nats.Conn, resolver Resolver, cfg Config) (*Server, error) {
	if conn == nil {
		return nil, types.ErrNATSConnectionRequired
	}
	cfg.setDefaults()

	s := &Server{resolver: resolver, cfg: cfg}

	svc, err := micro.AddService(conn, micro.Config{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: "Resolves content keys to their assigned peers",
		QueueGroup:  cfg.QueueGroup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register RPC service: %w", err)
	}

	group := svc.AddGroup(cfg.SubjectPrefix)
	if err := group.AddEndpoint(EndpointGetPeers, micro.HandlerFunc(s.handleGetPeers)); err != nil {
		_ = svc.Stop()
		return nil, fmt.Errorf("failed to add %s endpoint: %w", EndpointGetPeers, err)
	}
	if err := group.AddEndpoint(EndpointResolvePeers, micro.HandlerFunc(s.handleResolvePeers)); err != nil {
		_ = svc.Stop()
		return nil, fmt.Errorf("failed to add %s endpoint: %w", EndpointResolvePeers, err)
	}

	s.svc = svc
	cfg.Logger.Info("RPC service started", "name", cfg.Name, "prefix", cfg.SubjectPrefix)

	return s, nil
}

// Stop unregisters the service. Safe to call more than once.
func (s *Server) Stop() error {
	if s.svc.Stopped() {
		return nil
	}

	return s.svc.Stop()
}

// Info returns the micro service info (endpoints, subjects).
func (s *Server) Info() micro.Info {
	return s.svc.Info()
}

func (s *Server) handleGetPeers(req micro.Request) {
	a, ok := s.resolve(req)
	if !ok {
		return
	}

	if err := req.RespondJSON(GetPeersResponse{Peers: a.PeerKeys()}); err != nil {
		s.cfg.Logger.Warn("failed to respond", "endpoint", EndpointGetPeers, "error", err)
	}
}

func (s *Server) handleResolvePeers(req micro.Request) {
	a, ok := s.resolve(req)
	if !ok {
		return
	}

	if err := req.RespondJSON(ResolvePeersResponse{Key: a.Key, Peers: a.Peers}); err != nil {
		s.cfg.Logger.Warn("failed to respond", "endpoint", EndpointResolvePeers, "error", err)
	}
}

// resolve decodes the request and resolves its key. On failure it answers
// the request with a service error and returns ok=false.
func (s *Server) resolve(req micro.Request) (types.Assignment, bool) {
	var body KeyRequest
	if err := json.Unmarshal(req.Data(), &body); err != nil {
		s.respondError(req, CodeBadRequest, "malformed request body")
		return types.Assignment{}, false
	}

	key, err := types.ParseKey(body.Key)
	if err != nil {
		s.respondError(req, CodeBadRequest, err.Error())
		return types.Assignment{}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	a, err := s.resolver.Resolve(ctx, key)
	if err != nil {
		s.cfg.Logger.Error("resolve failed", "key", key.Short(), "error", err)
		code := CodeInternal
		if errors.Is(err, types.ErrInvalidKey) {
			code = CodeBadRequest
		}
		s.respondError(req, code, err.Error())

		return types.Assignment{}, false
	}

	return a, true
}

func (s *Server) respondError(req micro.Request, code, description string) {
	if err := req.Error(code, description, nil); err != nil {
		s.cfg.Logger.Warn("failed to send error response", "code", code, "error", err)
	}
}
