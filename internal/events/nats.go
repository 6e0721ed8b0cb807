package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	connName      = "suicounter"
	subscriberBuf = 64
)

func connect(url, role string, opts ...nats.Option) (*nats.Conn, error) {
	opts = append([]nats.Option{nats.Name(connName + "-" + role)}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %s to NATS %s: %w", role, url, err)
	}
	return nc, nil
}

// NATSPublisher sends each event as JSON on the subject equal to its topic.
type NATSPublisher struct {
	conn *nats.Conn
}

var _ Publisher = (*NATSPublisher)(nil)

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := connect(url, "publisher")
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	return p.conn.Publish(topic, data)
}

// Close flushes pending messages before disconnecting.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
	return nil
}

// NATSSubscriber reads events back off NATS. It reconnects forever, so a
// watcher survives a broker restart.
type NATSSubscriber struct {
	conn *nats.Conn
}

var _ Subscriber = (*NATSSubscriber)(nil)

// NewNATSSubscriber connects to url. opts are applied after the reconnect
// defaults and may override them.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	opts = append([]nats.Option{nats.MaxReconnects(-1), nats.ReconnectWait(time.Second)}, opts...)
	nc, err := connect(url, "subscriber", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// subscription bridges a NATS callback onto a channel that closes exactly
// once.
type subscription struct {
	mu     sync.Mutex
	ch     chan Message
	done   bool
	natSub *nats.Subscription
}

func (s *subscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	select {
	case s.ch <- Message{Topic: msg.Subject, Data: msg.Data}:
	default:
		// full; the dispatcher must not block
	}
}

func (s *subscription) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	if s.natSub != nil {
		_ = s.natSub.Unsubscribe()
	}
	close(s.ch)
}

// Subscribe delivers messages whose subject matches topic, which may use
// NATS wildcards. The subscription is registered with the server before
// Subscribe returns.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	sub := &subscription{ch: make(chan Message, subscriberBuf)}
	natSub, err := s.conn.Subscribe(topic, sub.deliver)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	sub.natSub = natSub
	if err := s.conn.Flush(); err != nil {
		sub.cancel()
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return sub.ch, sub.cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
