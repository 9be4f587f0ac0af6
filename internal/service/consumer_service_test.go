package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"discovery-client/internal/dto"
	"discovery-client/internal/entity"
	"discovery-client/internal/pkg/logger"
	"discovery-client/pkg/matchapi"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishCommand(t *testing.T, publisher IPublisherService, msg dto.PublishDecisionMessage) {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(context.Background(), payload))
}

func TestConsumerDispatchesEachCommandOnce(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	api := matchapi.NewMockAPI(matchapi.DemoPool(3), 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, NewConsumerService(pubSub, TopicDecisionCommands, api, logger.NewNopLogger()).Consume(ctx))

	publisher := NewPublisherService(pubSub, TopicDecisionCommands)
	like := dto.PublishDecisionMessage{CommandID: "cmd-1", Kind: entity.DecisionLike, CandidateID: "cand-001", IssuedAt: time.Now()}

	publishCommand(t, publisher, like)
	publishCommand(t, publisher, like)
	publishCommand(t, publisher, dto.PublishDecisionMessage{
		CommandID:   "cmd-2",
		Kind:        entity.DecisionCompliment,
		CandidateID: "cand-002",
		Message:     "hi",
	})

	assert.Eventually(t, func() bool {
		return api.CountCalls(matchapi.OpLikeMessage, "cand-002") == 1 &&
			api.CountCalls(matchapi.OpLike, "cand-001") == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	calls := api.Calls()
	require.Len(t, calls, 2)
	for _, c := range calls {
		if c.Op == matchapi.OpLikeMessage {
			assert.Equal(t, "hi", c.Message)
		}
	}
}

func TestConsumerSurvivesBadCommands(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	api := matchapi.NewMockAPI(matchapi.DemoPool(3), 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, NewConsumerService(pubSub, TopicDecisionCommands, api, logger.NewNopLogger()).Consume(ctx))

	publisher := NewPublisherService(pubSub, TopicDecisionCommands)
	require.NoError(t, publisher.Publish(ctx, []byte("not json")))
	publishCommand(t, publisher, dto.PublishDecisionMessage{CommandID: "cmd-x", Kind: "superlike", CandidateID: "cand-001"})
	publishCommand(t, publisher, dto.PublishDecisionMessage{CommandID: "cmd-y", Kind: entity.DecisionHide, CandidateID: "cand-003"})

	assert.Eventually(t, func() bool {
		return api.CountCalls(matchapi.OpHide, "cand-003") == 1
	}, time.Second, 5*time.Millisecond)
}
