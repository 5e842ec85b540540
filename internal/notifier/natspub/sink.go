// Package natspub publishes notifications as JSON on a NATS subject.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"wifimgr/internal/notifier"
)

const DefaultSubject = "wifimgr.events"

// Envelope is the published payload.
type Envelope struct {
	ID   string           `json:"id"`
	Host string           `json:"host,omitempty"`
	Msg  notifier.Message `json:"message"`
}

type publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

type Sink struct {
	conn    *nats.Conn
	pub     publisher
	subject string
	host    string
}

// Connect dials url and keeps reconnecting in the background.
func Connect(url, subject, hostname string) (*Sink, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("nats url is empty")
	}
	conn, err := nats.Connect(url,
		nats.Name("wifimgr"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	s := newSink(conn, subject, hostname)
	s.conn = conn
	return s, nil
}

func newSink(p publisher, subject, hostname string) *Sink {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	return &Sink{pub: p, subject: subject, host: hostname}
}

func (s *Sink) Name() string { return "nats" }

func (s *Sink) Send(ctx context.Context, m notifier.Message) error {
	b, err := json.Marshal(Envelope{ID: uuid.NewString(), Host: s.host, Msg: m})
	if err != nil {
		return err
	}
	if err := s.pub.Publish(s.subject, b); err != nil {
		return err
	}
	timeout := time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	return s.pub.FlushTimeout(timeout)
}

// Close drains pending publishes.
func (s *Sink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
