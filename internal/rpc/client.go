package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/arloliu/peerrouter/types"
)

// ErrService is wrapped by every error a server reports through the
// service error headers.
var ErrService = errors.New("peer router service error")

// ServiceError is a failure reported by the server.
type ServiceError struct {
	Code        string
	Description string
}

// Error implements error.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s (%s): %s", ErrService, e.Code, e.Description)
}

// Unwrap lets errors.Is match ErrService, and ErrInvalidKey for code 400.
func (e *ServiceError) Unwrap() []error {
	if e.Code == CodeBadRequest {
		return []error{ErrService, types.ErrInvalidKey}
	}

	return []error{ErrService}
}

// Client calls a peer router over NATS.
type Client struct {
	conn    *nats.Conn
	prefix  string
	timeout time.Duration
}

// NewClient creates an RPC client.
//
// Parameters:
//   - conn: NATS connection
//   - subjectPrefix: Server subject prefix (DefaultSubjectPrefix if empty)
//   - timeout: Applied when the caller's context has no deadline (DefaultTimeout if zero)
//
// Example:
//
//	client := rpc.NewClient(nc, "peerrouter", 0)
//	peers, err := client.GetPeers(ctx, key)
func NewClient(conn *nats.Conn, subjectPrefix string, timeout time.Duration) *Client {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{conn: conn, prefix: subjectPrefix, timeout: timeout}
}

// GetPeers returns the identities of the peers assigned to key.
func (c *Client) GetPeers(ctx context.Context, key types.Key) ([]types.Key, error) {
	var resp GetPeersResponse
	if err := c.call(ctx, EndpointGetPeers, key.String(), &resp); err != nil {
		return nil, err
	}

	return resp.Peers, nil
}

// ResolvePeers returns the full descriptors of the peers assigned to key.
func (c *Client) ResolvePeers(ctx context.Context, key types.Key) ([]types.Peer, error) {
	var resp ResolvePeersResponse
	if err := c.call(ctx, EndpointResolvePeers, key.String(), &resp); err != nil {
		return nil, err
	}

	return resp.Peers, nil
}

// GetPeersRaw sends an unparsed key string, letting the server decode it.
func (c *Client) GetPeersRaw(ctx context.Context, key string) ([]types.Key, error) {
	var resp GetPeersResponse
	if err := c.call(ctx, EndpointGetPeers, key, &resp); err != nil {
		return nil, err
	}

	return resp.Peers, nil
}

func (c *Client) call(ctx context.Context, endpoint, key string, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := json.Marshal(KeyRequest{Key: key})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	msg, err := c.conn.RequestWithContext(ctx, c.prefix+"."+endpoint, data)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}

	if code := msg.Header.Get(micro.ErrorCodeHeader); code != "" {
		return &ServiceError{Code: code, Description: msg.Header.Get(micro.ErrorHeader)}
	}

	if err := json.Unmarshal(msg.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	return nil
}
