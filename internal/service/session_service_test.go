package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"discovery-client/internal/config"
	"discovery-client/internal/entity"
	"discovery-client/internal/pkg/logger"
	"discovery-client/internal/repository/contract"
	"discovery-client/internal/repository/implementation"
	"discovery-client/internal/repository/memory"
	"discovery-client/pkg/device"
	"discovery-client/pkg/events"
	"discovery-client/pkg/matchapi"
	"discovery-client/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	kv        *memory.KeyValueRepository
	coords    contract.CoordinatesRepository
	gps       *device.MockLocationProvider
	api       *matchapi.MockAPI
	hints     IHintService
	decisions IDecisionService
	sessions  ISessionService
}

func testDiscoveryConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		LocationShortTimeout:  60 * time.Millisecond,
		LocationLongTimeout:   120 * time.Millisecond,
		SafetyReportThreshold: 3,
		ComplimentMaxLength:   40,
		SessionIdleTTL:        time.Hour,
	}
}

func newHarness(t *testing.T, pool []entity.Candidate, pageSize int) *harness {
	t.Helper()
	log := logger.NewNopLogger()
	cfg := testDiscoveryConfig()

	kv, err := memory.NewKeyValueRepository("")
	require.NoError(t, err)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	bus := events.NewBus(pubSub, log)
	api := matchapi.NewMockAPI(pool, pageSize)
	gps := device.NewMockLocationProvider(berlin, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, NewConsumerService(pubSub, TopicDecisionCommands, api, log).Consume(ctx))

	coords := implementation.NewCoordinatesRepository(kv)
	hints := NewHintService(kv, log)
	decisions := NewDecisionService(NewPublisherService(pubSub, TopicDecisionCommands), bus, validator.New(), cfg.ComplimentMaxLength, "test-instance", log)

	sessions := NewSessionService(
		NewLocationService(gps, coords, cfg, log),
		hints,
		NewProfileService(api, implementation.NewSearchParametersRepository(kv), log),
		decisions,
		api,
		bus,
		memory.NewSessionRepository(cfg.SessionIdleTTL),
		cfg.SafetyReportThreshold,
		log,
	)

	return &harness{
		kv:        kv,
		coords:    coords,
		gps:       gps,
		api:       api,
		hints:     hints,
		decisions: decisions,
		sessions:  sessions,
	}
}

func (h *harness) waitFor(t *testing.T, sessionID string, want store.SessionState) store.Snapshot {
	t.Helper()
	var snap store.Snapshot
	require.Eventually(t, func() bool {
		s, err := h.sessions.Snapshot(context.Background(), sessionID)
		if err != nil {
			return false
		}
		snap = s
		return s.State == want
	}, 2*time.Second, 5*time.Millisecond, "session never reached %s", want)
	return snap
}

func (h *harness) fetchCalls() []matchapi.Call {
	var out []matchapi.Call
	for _, c := range h.api.Calls() {
		if c.Op == matchapi.OpFetchBatch {
			out = append(out, c)
		}
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	states []store.SessionState
	last   store.Snapshot
}

func (r *recorder) listen(snap store.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, snap.State)
	r.last = snap
}

func (r *recorder) seen() []store.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.SessionState, len(r.states))
	copy(out, r.states)
	return out
}

func TestSessionLoadsFirstBatch(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(5), 10)
	ctx := context.Background()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.StateResolvingLocation, started.State)

	snap := h.waitFor(t, started.SessionID, store.StateReady)
	require.NotNil(t, snap.Front)
	assert.Equal(t, "cand-001", snap.Front.ID)
	assert.Equal(t, 5, snap.Remaining)
	assert.Empty(t, snap.Notice)

	calls := h.fetchCalls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Coordinates)
	assert.InDelta(t, berlin.Latitude, calls[0].Coordinates.Latitude, 0.01)

	stored, err := h.coords.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestSessionFirstRunTooltip(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(5), 10)
	ctx := context.Background()

	first, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	snap := h.waitFor(t, first.SessionID, store.StateReady)

	assert.True(t, snap.ShowLikeTooltip)
	assert.True(t, h.hints.ShouldShow(ctx, HintSearchLike))

	snap, err = h.sessions.MarkHintShown(ctx, first.SessionID, HintSearchLike)
	require.NoError(t, err)
	assert.False(t, snap.ShowLikeTooltip)
	require.NoError(t, h.sessions.Close(ctx, first.SessionID))

	second, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	snap = h.waitFor(t, second.SessionID, store.StateReady)
	assert.False(t, snap.ShowLikeTooltip)
}

func TestSessionTooltipClearsAfterFirstDecision(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(5), 10)
	ctx := context.Background()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	h.waitFor(t, started.SessionID, store.StateReady)

	snap, err := h.sessions.Submit(ctx, started.SessionID, entity.Like("cand-001"))
	require.NoError(t, err)
	assert.False(t, snap.ShowLikeTooltip)
	assert.False(t, h.hints.ShouldShow(ctx, HintSearchLike))
}

func TestSessionTooltipStaysWithFirstCandidate(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(5), 10)
	ctx := context.Background()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	snap := h.waitFor(t, started.SessionID, store.StateReady)
	require.Equal(t, "cand-001", snap.Front.ID)
	require.True(t, snap.ShowLikeTooltip)

	require.NoError(t, h.decisions.ApplyDetached(ctx, entity.Hide("cand-001")))

	require.Eventually(t, func() bool {
		snap, err = h.sessions.Snapshot(ctx, started.SessionID)
		return err == nil && snap.Front != nil && snap.Front.ID == "cand-002"
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, snap.ShowLikeTooltip)

	// nothing was decided in the session, so the hint is still unconsumed
	snap, err = h.sessions.Submit(ctx, started.SessionID, entity.Like("cand-002"))
	require.NoError(t, err)
	assert.False(t, snap.ShowLikeTooltip)
	assert.True(t, h.hints.ShouldShow(ctx, HintSearchLike))
}

// readOnlyKV serves reads but rejects every write.
type readOnlyKV struct {
	contract.KeyValueRepository
}

func (readOnlyKV) Set(ctx context.Context, key, value string) error {
	return errors.New("storage is read-only")
}

func TestSessionDecisionSurvivesTooltipPersistFailure(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	ctx := context.Background()
	hints := NewHintService(readOnlyKV{h.kv}, logger.NewNopLogger())
	h.sessions.(*sessionService).hints = hints

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	snap := h.waitFor(t, started.SessionID, store.StateReady)
	require.True(t, snap.ShowLikeTooltip)

	snap, err = h.sessions.Submit(ctx, started.SessionID, entity.Like("cand-001"))
	require.NoError(t, err)
	assert.Equal(t, "cand-002", snap.Front.ID)
	assert.False(t, snap.ShowLikeTooltip)
	assert.True(t, hints.ShouldShow(ctx, HintSearchLike))
}

func TestSessionFallsBackToCachedCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{
			name:  "read fails",
			setup: func(h *harness) { h.gps.SetFailing(true) },
		},
		{
			name:  "read slower than the short timeout",
			setup: func(h *harness) { h.gps.SetDelay(200 * time.Millisecond) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, matchapi.DemoPool(3), 10)
			ctx := context.Background()

			cached := entity.Coordinates{Latitude: 48.8566, Longitude: 2.3522}
			_, err := h.coords.Save(ctx, cached, time.Now().Add(-time.Hour))
			require.NoError(t, err)

			tt.setup(h)
			h.api.SetLatency(100 * time.Millisecond)

			started, err := h.sessions.Start(ctx)
			require.NoError(t, err)

			snap := h.waitFor(t, started.SessionID, store.StateLoadingBatch)
			assert.Equal(t, noticeSignalUnavailable, snap.Notice)

			h.waitFor(t, started.SessionID, store.StateReady)
			calls := h.fetchCalls()
			require.Len(t, calls, 1)
			require.NotNil(t, calls[0].Coordinates)
			assert.Equal(t, cached, *calls[0].Coordinates)

			// the late read must not replace the pair the session used
			time.Sleep(250 * time.Millisecond)
			stored, err := h.coords.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, cached, *stored)
		})
	}
}

func TestSessionFallsBackToProfileCoordinates(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	ctx := context.Background()

	home := entity.Coordinates{Latitude: 41.9028, Longitude: 12.4964}
	h.api.SetProfile(entity.OwnProfile{
		ID:               "me",
		Coordinates:      &home,
		Complete:         true,
		SearchParameters: DefaultSearchParameters,
	})
	h.gps.SetGranted(false)

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)

	snap := h.waitFor(t, started.SessionID, store.StateReady)
	assert.Equal(t, noticePermissionDenied, snap.Notice)

	calls := h.fetchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, home, *calls[0].Coordinates)
}

func TestSessionWithoutAnyCoordinatesIsEmpty(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	h.gps.SetGranted(false)

	started, err := h.sessions.Start(context.Background())
	require.NoError(t, err)

	snap := h.waitFor(t, started.SessionID, store.StateEmpty)
	assert.Equal(t, store.EmptyReasonNoLocation, snap.EmptyReason)
	assert.NotEmpty(t, snap.Message)
	assert.Empty(t, h.fetchCalls())
}

func TestSessionIncompatibleProfile(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	h.api.SetIncompatible(true)

	started, err := h.sessions.Start(context.Background())
	require.NoError(t, err)

	snap := h.waitFor(t, started.SessionID, store.StateEmpty)
	assert.Equal(t, store.EmptyReasonIncompatible, snap.EmptyReason)
	assert.Contains(t, snap.Message, "Complete your profile")
}

func TestSessionNoCandidates(t *testing.T) {
	h := newHarness(t, nil, 10)

	started, err := h.sessions.Start(context.Background())
	require.NoError(t, err)

	snap := h.waitFor(t, started.SessionID, store.StateEmpty)
	assert.Equal(t, store.EmptyReasonNoCandidates, snap.EmptyReason)
	assert.NotContains(t, snap.Message, "Complete your profile")
}

func TestSessionDecisionOrdering(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	ctx := context.Background()
	h.api.HoldDecisions()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	h.waitFor(t, started.SessionID, store.StateReady)

	_, err = h.sessions.Submit(ctx, started.SessionID, entity.Hide("cand-001"))
	require.NoError(t, err)
	snap, err := h.sessions.Submit(ctx, started.SessionID, entity.Like("cand-002"))
	require.NoError(t, err)

	require.NotNil(t, snap.Front)
	assert.Equal(t, "cand-003", snap.Front.ID)
	assert.Equal(t, 0, h.api.CountCalls(matchapi.OpHide, ""))
	assert.Equal(t, 0, h.api.CountCalls(matchapi.OpLike, ""))

	h.api.ReleaseDecisions()

	assert.Eventually(t, func() bool {
		return h.api.CountCalls(matchapi.OpHide, "cand-001") == 1 &&
			h.api.CountCalls(matchapi.OpLike, "cand-002") == 1
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.api.CountCalls(matchapi.OpHide, ""))
	assert.Equal(t, 1, h.api.CountCalls(matchapi.OpLike, ""))
}

func TestSessionExhaustionRefillsToEmpty(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(1), 10)
	ctx := context.Background()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	h.waitFor(t, started.SessionID, store.StateReady)

	snap, err := h.sessions.Submit(ctx, started.SessionID, entity.Like("cand-001"))
	require.NoError(t, err)
	assert.Equal(t, store.StateRefilling, snap.State)
	assert.Nil(t, snap.Front)

	snap = h.waitFor(t, started.SessionID, store.StateEmpty)
	assert.Equal(t, store.EmptyReasonNoCandidates, snap.EmptyReason)
	assert.Len(t, h.fetchCalls(), 2)
}

func TestSessionRefillReusesCachedCoordinates(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 2)
	ctx := context.Background()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	h.waitFor(t, started.SessionID, store.StateReady)

	_, err = h.sessions.Submit(ctx, started.SessionID, entity.Hide("cand-001"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return h.api.CountCalls(matchapi.OpHide, "cand-001") == 1
	}, 2*time.Second, 5*time.Millisecond)

	snap, err := h.sessions.Submit(ctx, started.SessionID, entity.Hide("cand-002"))
	require.NoError(t, err)
	assert.Equal(t, store.StateRefilling, snap.State)

	snap = h.waitFor(t, started.SessionID, store.StateReady)
	require.NotNil(t, snap.Front)
	assert.Equal(t, "cand-003", snap.Front.ID)

	assert.Equal(t, 1, h.gps.Reads())
	calls := h.fetchCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, *calls[0].Coordinates, *calls[1].Coordinates)
}

func TestSessionRefreshForcesFreshFix(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	ctx := context.Background()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	h.waitFor(t, started.SessionID, store.StateReady)

	snap, err := h.sessions.Refresh(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, store.StateResolvingLocation, snap.State)

	h.waitFor(t, started.SessionID, store.StateReady)
	assert.Equal(t, 2, h.gps.Reads())
}

func TestSessionBatchFailureWaitsForRefresh(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	ctx := context.Background()
	h.api.SetBatchError(errors.New("connection reset"))

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := h.sessions.Snapshot(ctx, started.SessionID)
		return err == nil && snap.Notice == noticeBatchFailed
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	snap, err := h.sessions.Snapshot(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, store.StateLoadingBatch, snap.State)
	assert.Len(t, h.fetchCalls(), 1)

	h.api.SetBatchError(nil)
	_, err = h.sessions.Refresh(ctx, started.SessionID)
	require.NoError(t, err)

	snap = h.waitFor(t, started.SessionID, store.StateReady)
	assert.Empty(t, snap.Notice)
}

func TestSessionExternalInvalidation(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(4), 10)
	ctx := context.Background()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	h.waitFor(t, started.SessionID, store.StateReady)

	require.NoError(t, h.decisions.ApplyDetached(ctx, entity.Like("cand-003")))

	var snap store.Snapshot
	require.Eventually(t, func() bool {
		snap, _ = h.sessions.Snapshot(ctx, started.SessionID)
		return snap.Remaining == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, store.StateReady, snap.State)
	assert.Equal(t, "cand-001", snap.Front.ID)

	_, err = h.sessions.Submit(ctx, started.SessionID, entity.Hide("cand-001"))
	require.NoError(t, err)
	snap, err = h.sessions.Submit(ctx, started.SessionID, entity.Hide("cand-002"))
	require.NoError(t, err)
	assert.Equal(t, "cand-004", snap.Front.ID)

	assert.ErrorIs(t, func() error {
		_, err := h.sessions.Submit(ctx, started.SessionID, entity.Like("cand-003"))
		return err
	}(), ErrAlreadyDecided)
}

func TestSessionRejectsDecisionBehindFront(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	ctx := context.Background()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	h.waitFor(t, started.SessionID, store.StateReady)

	_, err = h.sessions.Submit(ctx, started.SessionID, entity.Hide("cand-003"))
	assert.ErrorIs(t, err, ErrNotFront)

	snap, err := h.sessions.Snapshot(ctx, started.SessionID)
	require.NoError(t, err)
	require.NotNil(t, snap.Front)
	assert.Equal(t, "cand-001", snap.Front.ID)
	assert.Equal(t, 3, snap.Remaining)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, h.api.CountCalls(matchapi.OpHide, ""))
}

func TestSessionComplimentGate(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	ctx := context.Background()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	h.waitFor(t, started.SessionID, store.StateReady)

	snap, err := h.sessions.BeginCompliment(ctx, started.SessionID, "cand-001")
	require.NoError(t, err)
	assert.Equal(t, "cand-001", snap.ComplimentOpen)

	_, err = h.sessions.Submit(ctx, started.SessionID, entity.Hide("cand-001"))
	assert.ErrorIs(t, err, ErrComplimentPending)

	snap, err = h.sessions.Submit(ctx, started.SessionID, entity.Compliment("cand-001", "that trail looks amazing"))
	require.NoError(t, err)
	assert.Equal(t, "cand-002", snap.Front.ID)
	assert.Empty(t, snap.ComplimentOpen)

	assert.Eventually(t, func() bool {
		return h.api.CountCalls(matchapi.OpLikeMessage, "cand-001") == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.api.CountCalls(matchapi.OpHide, "cand-001"))
}

func TestSessionSafetyGateFlag(t *testing.T) {
	pool := matchapi.DemoPool(2)
	pool[0].ReportCount = 3
	h := newHarness(t, pool, 10)
	ctx := context.Background()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)

	snap := h.waitFor(t, started.SessionID, store.StateReady)
	assert.True(t, snap.SafetyGated)
	assert.Equal(t, "cand-001", snap.Front.ID)

	snap, err = h.sessions.Submit(ctx, started.SessionID, entity.Hide("cand-001"))
	require.NoError(t, err)
	assert.False(t, snap.SafetyGated)
}

func TestSessionTeardownDropsLateResults(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	ctx := context.Background()
	h.api.SetLatency(100 * time.Millisecond)

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)

	rec := &recorder{}
	_, err = h.sessions.Subscribe(started.SessionID, rec.listen)
	require.NoError(t, err)

	h.waitFor(t, started.SessionID, store.StateLoadingBatch)
	live, ok := h.sessions.(*sessionService).sessions.Get(started.SessionID)
	require.True(t, ok)
	sess := live.(*discoverySession)

	require.NoError(t, h.sessions.Close(ctx, started.SessionID))

	// the batch lands after teardown and must be dropped
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, h.fetchCalls(), 1)
	assert.NotContains(t, rec.seen(), store.StateReady)
	rec.mu.Lock()
	assert.True(t, rec.last.Closed)
	rec.mu.Unlock()

	sess.mu.Lock()
	assert.True(t, sess.state.Closed)
	assert.Equal(t, store.StateLoadingBatch, sess.state.State)
	assert.True(t, sess.queue.Exhausted())
	sess.mu.Unlock()

	_, err = h.sessions.Snapshot(ctx, started.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, h.sessions.Close(ctx, started.SessionID), ErrSessionNotFound)
}

func TestSessionDecisionBeforeTeardownIsStillSent(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	ctx := context.Background()
	h.api.HoldDecisions()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	h.waitFor(t, started.SessionID, store.StateReady)

	_, err = h.sessions.Submit(ctx, started.SessionID, entity.Hide("cand-001"))
	require.NoError(t, err)
	require.NoError(t, h.sessions.Close(ctx, started.SessionID))

	h.api.ReleaseDecisions()
	assert.Eventually(t, func() bool {
		return h.api.CountCalls(matchapi.OpHide, "cand-001") == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSessionLookupAfterDeleteIsNotFound(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	ctx := context.Background()

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	h.waitFor(t, started.SessionID, store.StateReady)

	svc := h.sessions.(*sessionService)
	live, ok := svc.sessions.Get(started.SessionID)
	require.True(t, ok)
	require.NoError(t, h.sessions.Close(ctx, started.SessionID))

	assert.False(t, svc.sessions.Touch(live))
	_, err = h.sessions.Refresh(ctx, started.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, svc.sessions.Count())
}

func TestSessionSubmitOutsideReady(t *testing.T) {
	h := newHarness(t, matchapi.DemoPool(3), 10)
	ctx := context.Background()
	h.api.SetLatency(150 * time.Millisecond)

	started, err := h.sessions.Start(ctx)
	require.NoError(t, err)
	h.waitFor(t, started.SessionID, store.StateLoadingBatch)

	_, err = h.sessions.Submit(ctx, started.SessionID, entity.Like("cand-001"))
	assert.ErrorIs(t, err, ErrNotReady)
}
