package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"discovery-client/internal/dto"
	"discovery-client/internal/entity"
	"discovery-client/internal/pkg/logger"
	"discovery-client/pkg/matchapi"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/patrickmn/go-cache"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService is the decision dispatcher. Each command reaches the
// remote API at most once: it is never retried and a redelivered command id
// is skipped.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	api       matchapi.API
	seen      *cache.Cache
	logger    logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	api matchapi.API,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		api:       api,
		seen:      cache.New(30*time.Minute, 10*time.Minute),
		logger:    logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Ack in every path: failures are logged, not redelivered
	defer msg.Ack()

	var payload dto.PublishDecisionMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("DISPATCH", "Failed to unmarshal decision command", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := cs.seen.Add(payload.CommandID, struct{}{}, cache.DefaultExpiration); err != nil {
		cs.logger.Warn("DISPATCH", "Skipping duplicate decision command", map[string]interface{}{
			"command_id":   payload.CommandID,
			"candidate_id": payload.CandidateID,
		})
		return
	}

	start := time.Now()
	err := cs.send(ctx, payload)
	details := map[string]interface{}{
		"command_id":   payload.CommandID,
		"session_id":   payload.SessionID,
		"candidate_id": payload.CandidateID,
		"kind":         payload.Kind,
		"elapsed":      time.Since(start).String(),
	}
	if err != nil {
		details["error"] = err.Error()
		cs.logger.Error("DISPATCH", "Decision call failed", details)
		return
	}
	cs.logger.Info("DISPATCH", "Decision confirmed", details)
}

func (cs *consumerService) send(ctx context.Context, payload dto.PublishDecisionMessage) error {
	switch payload.Kind {
	case entity.DecisionLike:
		return cs.api.SendLike(ctx, payload.CandidateID)
	case entity.DecisionCompliment:
		return cs.api.SendLikeWithMessage(ctx, payload.CandidateID, payload.Message)
	case entity.DecisionHide:
		return cs.api.SendHide(ctx, payload.CandidateID)
	default:
		return fmt.Errorf("unknown decision kind %q", payload.Kind)
	}
}
