package nats

import (
	"context"

	"discovery-client/internal/pkg/logger"
	"discovery-client/pkg/events"
)

// EventPublisher pushes an event onto a NATS subject.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// EventSubscriber registers a handler for a NATS subject.
type EventSubscriber interface {
	Subscribe(subject string, handler EventHandler) error
}

// Relay mirrors candidate-decided events between the local bus and NATS so
// a decision taken in another process (another app surface on the same
// device) still invalidates live sessions here.
type Relay struct {
	instanceID string
	bus        *events.Bus
	publisher  EventPublisher
	subscriber EventSubscriber
	logger     logger.ILogger
}

func NewRelay(instanceID string, bus *events.Bus, publisher EventPublisher, subscriber EventSubscriber, logger logger.ILogger) *Relay {
	return &Relay{
		instanceID: instanceID,
		bus:        bus,
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger,
	}
}

// Run forwards in both directions until ctx is cancelled. Events are only
// pushed out when this instance is their source, and only pulled in when it
// is not, so nothing loops.
func (r *Relay) Run(ctx context.Context) error {
	local, err := r.bus.SubscribeCandidateDecided(ctx)
	if err != nil {
		return err
	}

	err = r.subscriber.Subscribe(Subject(events.EventCandidateDecided), func(ctx context.Context, evt events.Event) error {
		decided, err := events.CandidateDecidedFromEvent(evt)
		if err != nil {
			return err
		}
		if decided.Source == r.instanceID {
			return nil
		}
		return r.bus.PublishCandidateDecided(ctx, decided)
	})
	if err != nil {
		return err
	}

	for evt := range local {
		if evt.Source != r.instanceID {
			continue
		}
		if err := r.publisher.Publish(ctx, evt); err != nil {
			r.logger.Warn("NATS", "Failed to relay candidate decided", map[string]interface{}{
				"candidate_id": evt.CandidateID,
				"error":        err.Error(),
			})
		}
	}
	return nil
}
