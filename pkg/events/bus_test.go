package events

import (
	"context"
	"testing"
	"time"

	"discovery-client/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	return NewBus(gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}), logger.NewNopLogger())
}

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.SubscribeCandidateDecided(ctx)
	require.NoError(t, err)
	second, err := bus.SubscribeCandidateDecided(ctx)
	require.NoError(t, err)

	sent := CandidateDecided{CandidateID: "c1", Kind: "like", Origin: OriginProfileDetail, OccurredAt: time.Now()}
	require.NoError(t, bus.PublishCandidateDecided(ctx, sent))

	for _, ch := range []<-chan CandidateDecided{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, "c1", got.CandidateID)
			assert.Equal(t, OriginProfileDetail, got.Origin)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBusClosesOnCancel(t *testing.T) {
	bus := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.SubscribeCandidateDecided(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestCandidateDecidedFromEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	original := CandidateDecided{CandidateID: "c7", Kind: "hide", Origin: "s1", Source: "proc-a", OccurredAt: now}

	generic := BaseEvent{Type: "events." + EventCandidateDecided, Data: original.Payload(), OccurredAt: time.Now()}
	got, err := CandidateDecidedFromEvent(generic)

	require.NoError(t, err)
	assert.Equal(t, original.CandidateID, got.CandidateID)
	assert.Equal(t, original.Source, got.Source)
	assert.True(t, now.Equal(got.OccurredAt))

	_, err = CandidateDecidedFromEvent(BaseEvent{Type: "x", Data: map[string]interface{}{}})
	assert.Error(t, err)
}
