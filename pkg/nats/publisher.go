package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"discovery-client/pkg/events"

	"github.com/nats-io/nats.go"
)

// Publisher handles sending events to the NATS bus.
type Publisher struct {
	nc *nats.Conn
}

func connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(url string) (*Publisher, error) {
	nc, err := connect(url, "discovery-client-publisher")
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc}, nil
}

// Subject maps an event type to its NATS subject.
func Subject(eventType string) string {
	return fmt.Sprintf("events.%s", eventType)
}

// Publish sends an event to NATS. Invalidation signals are fan-out and
// short-lived, so plain subjects are used rather than a stream.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	subject := Subject(event.EventType())
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
