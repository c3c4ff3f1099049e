// Package mirror publishes newly created assignments so that mirroring
// workers can start copying content to the assigned peers.
//
// Publishing is fire-and-forget. A lost event is not retried: the durable
// assignment is the source of truth and mirrors can always resolve it again.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/arloliu/peerrouter/internal/logging"
	"github.com/arloliu/peerrouter/types"
)

// DefaultSubject is the subject prefix for assignment events.
const DefaultSubject = "peerrouter.assigned"

// ErrNoSubject is returned when a subject prefix is empty.
var ErrNoSubject = errors.New("mirror subject is required")

// Event is the payload published for a new assignment.
type Event struct {
	Key        types.Key    `json:"key"`
	Peers      []types.Peer `json:"peers"`
	AssignedAt time.Time    `json:"assignedAt"`
}

// Assignment returns the assignment carried by the event.
func (e Event) Assignment() types.Assignment {
	return types.Assignment{Key: e.Key, Peers: e.Peers}
}

// Publisher sends Events over core NATS to "<subject>.<hex key>".
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  types.Logger
	now     func() time.Time
}

// Compile-time assertion that Publisher implements Notifier.
var _ types.Notifier = (*Publisher)(nil)

// NewPublisher creates a NATS notifier.
//
// Parameters:
//   - conn: NATS connection
//   - subject: Subject prefix (DefaultSubject if empty)
//   - logger: Logger for publish failures (no-op if nil)
//
// Returns:
//   - *Publisher: Notifier publishing one message per new assignment
//
// Example:
//
//	pub := mirror.NewPublisher(nc, "peerrouter.assigned", logger)
//	pub.NotifyAssigned(a) // published to peerrouter.assigned.<hex key>
func NewPublisher(conn *nats.Conn, subject string, logger types.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Publisher{
		conn:    conn,
		subject: strings.TrimSuffix(subject, "."),
		logger:  logger,
		now:     time.Now,
	}
}

// NotifyAssigned publishes the assignment. It never blocks on delivery;
// failures are logged and dropped.
func (p *Publisher) NotifyAssigned(a types.Assignment) {
	data, err := json.Marshal(Event{Key: a.Key, Peers: a.Peers, AssignedAt: p.now().UTC()})
	if err != nil {
		p.logger.Error("failed to encode assignment event", "key", a.Key.Short(), "error", err)
		return
	}

	if err := p.conn.Publish(p.subjectFor(a.Key), data); err != nil {
		p.logger.Warn("failed to publish assignment event", "key", a.Key.Short(), "error", err)
		return
	}

	p.logger.Debug("assignment event published", "key", a.Key.Short(), "peers", len(a.Peers))
}

// Subject returns the subject prefix.
func (p *Publisher) Subject() string {
	return p.subject
}

func (p *Publisher) subjectFor(key types.Key) string {
	return p.subject + "." + key.String()
}

// Subscribe delivers every assignment event published under subject.
//
// Malformed messages are skipped. The subscription lives until ctx is done
// or the returned subscription is drained.
//
// Parameters:
//   - ctx: Context bounding the subscription
//   - conn: NATS connection
//   - subject: Subject prefix used by the publisher
//   - handler: Called once per event, on the NATS dispatch goroutine
//
// Returns:
//   - *nats.Subscription: Active subscription
//   - error: ErrNoSubject or a NATS subscribe error
func Subscribe(ctx context.Context, conn *nats.Conn, subject string, handler func(Event)) (*nats.Subscription, error) {
	subject = strings.TrimSuffix(subject, ".")
	if subject == "" {
		return nil, ErrNoSubject
	}

	sub, err := conn.Subscribe(subject+".*", func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	context.AfterFunc(ctx, func() {
		_ = sub.Unsubscribe()
	})

	return sub, nil
}

// Nop discards notifications.
type Nop struct{}

// Compile-time assertion that Nop implements Notifier.
var _ types.Notifier = Nop{}

// NotifyAssigned does nothing.
func (Nop) NotifyAssigned(types.Assignment) {}

// Func adapts a function to types.Notifier.
type Func func(types.Assignment)

// NotifyAssigned calls f(a).
func (f Func) NotifyAssigned(a types.Assignment) {
	f(a)
}

// Multi fans a notification out to several notifiers, in order.
type Multi []types.Notifier

// Compile-time assertion that Multi implements Notifier.
var _ types.Notifier = Multi(nil)

// NotifyAssigned calls every notifier with its own copy of a.
func (m Multi) NotifyAssigned(a types.Assignment) {
	for _, n := range m {
		n.NotifyAssigned(a.Clone())
	}
}
