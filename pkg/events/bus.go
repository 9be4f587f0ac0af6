package events

import (
	"context"
	"encoding/json"

	"discovery-client/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is the in-process invalidation channel between independently
// lifecycled screens.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewBus(pubSub *gochannel.GoChannel, logger logger.ILogger) *Bus {
	return &Bus{pubSub: pubSub, logger: logger}
}

func (b *Bus) PublishCandidateDecided(ctx context.Context, evt CandidateDecided) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	b.logger.Debug("EVENTS", "Publishing candidate decided", map[string]interface{}{
		"candidate_id": evt.CandidateID,
		"origin":       evt.Origin,
	})
	return b.pubSub.Publish(TopicCandidateDecided, msg)
}

// SubscribeCandidateDecided delivers events until ctx is cancelled, then
// closes the returned channel.
func (b *Bus) SubscribeCandidateDecided(ctx context.Context) (<-chan CandidateDecided, error) {
	messages, err := b.pubSub.Subscribe(ctx, TopicCandidateDecided)
	if err != nil {
		return nil, err
	}

	out := make(chan CandidateDecided)
	go func() {
		defer close(out)
		for msg := range messages {
			var evt CandidateDecided
			if err := json.Unmarshal(msg.Payload, &evt); err != nil {
				b.logger.Error("EVENTS", "Dropping malformed candidate event", map[string]interface{}{"error": err.Error()})
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
