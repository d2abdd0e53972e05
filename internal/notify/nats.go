package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"multitimer/internal/store"
	"multitimer/internal/timer"
)

var ErrNATSURLRequired = errors.New("notify: nats url is required")

const DefaultSubjectPrefix = "multitimer.timer"

type NATSOptions struct {
	URL           string
	SubjectPrefix string
	// AllEvents publishes every event instead of expirations only.
	AllEvents bool
	Options   []nats.Option
}

type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATS publishes timer events as JSON to <prefix>.<event>.
type NATS struct {
	conn   *nats.Conn
	pub    publisher
	prefix string
	all    bool
	now    func() time.Time
}

// Message is the JSON body of a published event.
type Message struct {
	Event string       `json:"event"`
	Timer store.Record `json:"timer"`
	At    time.Time    `json:"at"`
}

func NewNATS(opts NATSOptions) (*NATS, error) {
	if opts.URL == "" {
		return nil, ErrNATSURLRequired
	}
	conn, err := nats.Connect(opts.URL, opts.Options...)
	if err != nil {
		return nil, fmt.Errorf("notify: nats connect: %w", err)
	}

	n := newNATS(conn, opts)
	n.conn = conn
	return n, nil
}

func newNATS(pub publisher, opts NATSOptions) *NATS {
	prefix := strings.TrimSuffix(opts.SubjectPrefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{pub: pub, prefix: prefix, all: opts.AllEvents, now: time.Now}
}

func (n *NATS) Subject(typ timer.EventType) string {
	return n.prefix + "." + typ.String()
}

func (n *NATS) Notify(ctx context.Context, ev timer.Event) error {
	if !n.all && ev.Type != timer.EventExpired {
		return nil
	}

	body, err := json.Marshal(Message{
		Event: ev.Type.String(),
		Timer: store.FromTimer(ev.Timer),
		At:    n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("notify: encode %s event: %w", ev.Type, err)
	}

	subject := n.Subject(ev.Type)
	if err := n.pub.Publish(subject, body); err != nil {
		return fmt.Errorf("notify: nats publish %s: %w", subject, err)
	}
	if err := n.pub.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("notify: nats flush: %w", err)
	}
	return nil
}

// Close drains the connection.
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	err := n.conn.Drain()
	n.conn.Close()
	return err
}
