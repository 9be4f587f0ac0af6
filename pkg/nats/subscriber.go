package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"discovery-client/internal/pkg/logger"
	"discovery-client/pkg/events"

	"github.com/nats-io/nats.go"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber handles listening for events from NATS.
type Subscriber struct {
	nc     *nats.Conn
	logger logger.ILogger
	subs   []*nats.Subscription
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(url string, logger logger.ILogger) (*Subscriber, error) {
	nc, err := connect(url, "discovery-client-subscriber")
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, logger: logger}, nil
}

// Subscribe registers a handler for a subject pattern.
func (s *Subscriber) Subscribe(subject string, handler EventHandler) error {
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			s.logger.Warn("NATS", "Error unmarshalling event data", map[string]interface{}{"subject": msg.Subject, "error": err.Error()})
			return
		}

		event := events.BaseEvent{
			Type:       msg.Subject,
			Data:       payload,
			OccurredAt: time.Now(),
		}

		if err := handler(context.Background(), event); err != nil {
			s.logger.Warn("NATS", "Handler failed", map[string]interface{}{"subject": msg.Subject, "error": err.Error()})
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.subs = append(s.subs, sub)
	s.logger.Info("NATS", "Subscribed", map[string]interface{}{"subject": subject})
	return nil
}

// Close closes the connection.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
