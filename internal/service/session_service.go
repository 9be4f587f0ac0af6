package service

import (
	"context"
	"errors"
	"sync"

	"discovery-client/internal/entity"
	"discovery-client/internal/pkg/logger"
	"discovery-client/internal/repository/memory"
	"discovery-client/pkg/events"
	"discovery-client/pkg/matchapi"
	"discovery-client/pkg/state"
	"discovery-client/pkg/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrSessionClosed   = errors.New("session is closed")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotReady        = errors.New("no candidate is on screen")
)

const (
	noticePermissionDenied  = "Location access is off. Showing people near your last known location."
	noticeSignalUnavailable = "We couldn't get a fresh location fix. Showing people near your last known location."
	noticeBatchFailed       = "We couldn't load new people. Pull to refresh to try again."
)

// ISessionService drives discovery sessions. Every method except Start
// addresses a session by the id Start returned.
type ISessionService interface {
	Start(ctx context.Context) (store.Snapshot, error)
	Refresh(ctx context.Context, sessionID string) (store.Snapshot, error)
	Submit(ctx context.Context, sessionID string, decision entity.Decision) (store.Snapshot, error)
	BeginCompliment(ctx context.Context, sessionID, candidateID string) (store.Snapshot, error)
	CancelCompliment(ctx context.Context, sessionID string) (store.Snapshot, error)
	MarkHintShown(ctx context.Context, sessionID, key string) (store.Snapshot, error)
	Snapshot(ctx context.Context, sessionID string) (store.Snapshot, error)
	Subscribe(sessionID string, listener func(store.Snapshot)) (func(), error)
	Close(ctx context.Context, sessionID string) error
}

type sessionService struct {
	location        ILocationService
	hints           IHintService
	profiles        IProfileService
	decisions       IDecisionService
	api             matchapi.API
	bus             *events.Bus
	sessions        *memory.SessionRepository
	stateManager    *state.Manager
	safetyThreshold int
	tracer          trace.Tracer
	logger          logger.ILogger
}

func NewSessionService(
	location ILocationService,
	hints IHintService,
	profiles IProfileService,
	decisions IDecisionService,
	api matchapi.API,
	bus *events.Bus,
	sessions *memory.SessionRepository,
	safetyThreshold int,
	logger logger.ILogger,
) ISessionService {
	return &sessionService{
		location:        location,
		hints:           hints,
		profiles:        profiles,
		decisions:       decisions,
		api:             api,
		bus:             bus,
		sessions:        sessions,
		stateManager:    state.NewManager(logger),
		safetyThreshold: safetyThreshold,
		tracer:          otel.Tracer("discovery-client/session"),
		logger:          logger,
	}
}

func (s *sessionService) Start(ctx context.Context) (store.Snapshot, error) {
	id := uuid.NewString()

	// Session work must not end with the request that started it
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	queue := store.NewCandidateQueue(s.safetyThreshold)
	sess := &discoverySession{
		svc:        s,
		id:         id,
		ctx:        runCtx,
		cancel:     cancel,
		state:      &store.Session{ID: id, State: store.StateIdle},
		queue:      queue,
		reconciler: s.decisions.NewReconciler(id, queue),
		listeners:  make(map[int]func(store.Snapshot)),
	}

	decided, err := s.bus.SubscribeCandidateDecided(runCtx)
	if err != nil {
		cancel()
		return store.Snapshot{}, err
	}
	go sess.watchInvalidations(decided)

	s.sessions.Save(sess)
	s.logger.Info("SESSION", "Session started", map[string]interface{}{"session_id": id})

	return sess.refresh()
}

func (s *sessionService) get(sessionID string) (*discoverySession, error) {
	live, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess, ok := live.(*discoverySession)
	if !ok || !s.sessions.Touch(sess) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *sessionService) Refresh(ctx context.Context, sessionID string) (store.Snapshot, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return store.Snapshot{}, err
	}
	return sess.refresh()
}

func (s *sessionService) Submit(ctx context.Context, sessionID string, decision entity.Decision) (store.Snapshot, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return store.Snapshot{}, err
	}
	return sess.submit(ctx, decision)
}

func (s *sessionService) BeginCompliment(ctx context.Context, sessionID, candidateID string) (store.Snapshot, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return store.Snapshot{}, err
	}
	return sess.beginCompliment(candidateID)
}

func (s *sessionService) CancelCompliment(ctx context.Context, sessionID string) (store.Snapshot, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return store.Snapshot{}, err
	}
	return sess.cancelCompliment()
}

func (s *sessionService) MarkHintShown(ctx context.Context, sessionID, key string) (store.Snapshot, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return store.Snapshot{}, err
	}
	return sess.markHintShown(ctx, key)
}

func (s *sessionService) Snapshot(ctx context.Context, sessionID string) (store.Snapshot, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return store.Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

func (s *sessionService) Subscribe(sessionID string, listener func(store.Snapshot)) (func(), error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.subscribe(listener)
}

// Close tears the session down. Decisions it already submitted are still
// dispatched; their results are ignored.
func (s *sessionService) Close(ctx context.Context, sessionID string) error {
	if _, err := s.get(sessionID); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	return nil
}

// discoverySession is one discovery screen activation. All state lives
// behind mu; blocking work runs in goroutines tagged with the generation
// they started under and is dropped when the generation has moved on.
type discoverySession struct {
	svc    *sessionService
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      *store.Session
	queue      *store.CandidateQueue
	reconciler *Reconciler

	profile       *entity.OwnProfile
	profileLoaded bool

	// tooltipFor is the candidate the first-run like tooltip is attached to.
	// It never moves to another candidate.
	tooltipFor     string
	tooltipChecked bool

	version      uint64
	listeners    map[int]func(store.Snapshot)
	nextListener int
}

func (d *discoverySession) ID() string {
	return d.id
}

func (d *discoverySession) Close() {
	d.mu.Lock()
	if d.state.Closed {
		d.mu.Unlock()
		return
	}
	d.state.Closed = true
	d.state.Generation++
	d.cancel()
	d.queue.Reset()
	d.reconciler.CancelCompliment()
	snap, listeners := d.changedLocked()
	d.listeners = nil
	d.mu.Unlock()

	notify(snap, listeners)

	d.svc.logger.Info("SESSION", "Session closed", map[string]interface{}{"session_id": d.id})
}

func (d *discoverySession) currentLocked(gen uint64) bool {
	return !d.state.Closed && d.state.Generation == gen
}

func (d *discoverySession) snapshotLocked() store.Snapshot {
	snap := store.Snapshot{
		SessionID:      d.id,
		State:          d.state.State,
		EmptyReason:    d.state.EmptyReason,
		Message:        d.state.Message,
		Notice:         d.state.Notice,
		Remaining:      d.queue.Len(),
		ComplimentOpen: d.reconciler.ComplimentOpen(),
		Closed:         d.state.Closed,
		Version:        d.version,
	}
	if d.state.State == store.StateReady {
		if front, ok := d.queue.Front(); ok {
			snap.Front = &front
			snap.SafetyGated = d.queue.SafetyGated(front)
			snap.ShowLikeTooltip = d.tooltipFor != "" && d.tooltipFor == front.ID
		}
	}
	return snap
}

// changedLocked bumps the version and returns the snapshot together with
// the listeners to notify once the lock is released.
func (d *discoverySession) changedLocked() (store.Snapshot, []func(store.Snapshot)) {
	d.version++
	listeners := make([]func(store.Snapshot), 0, len(d.listeners))
	for _, l := range d.listeners {
		listeners = append(listeners, l)
	}
	return d.snapshotLocked(), listeners
}

func notify(snap store.Snapshot, listeners []func(store.Snapshot)) {
	for _, l := range listeners {
		l(snap)
	}
}

func (d *discoverySession) subscribe(listener func(store.Snapshot)) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Closed {
		return nil, ErrSessionClosed
	}
	id := d.nextListener
	d.nextListener++
	d.listeners[id] = listener

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}, nil
}

// refresh starts a new generation with a fresh location attempt. Whatever
// the previous generation still has in flight is discarded on arrival.
func (d *discoverySession) refresh() (store.Snapshot, error) {
	d.mu.Lock()
	if d.state.Closed {
		d.mu.Unlock()
		return store.Snapshot{}, ErrSessionClosed
	}
	if err := d.svc.stateManager.TransitionToResolving(d.state); err != nil {
		d.mu.Unlock()
		return store.Snapshot{}, err
	}
	d.state.Generation++
	d.state.Notice = ""
	d.reconciler.CancelCompliment()
	gen := d.state.Generation
	snap, listeners := d.changedLocked()
	d.mu.Unlock()

	notify(snap, listeners)
	go d.resolveAndLoad(gen)
	return snap, nil
}

// ownProfile fetches the own profile once per session. A failed fetch is
// retried on the next refresh.
func (d *discoverySession) ownProfile(ctx context.Context) *entity.OwnProfile {
	d.mu.Lock()
	if d.profileLoaded {
		profile := d.profile
		d.mu.Unlock()
		return profile
	}
	d.mu.Unlock()

	profile, err := d.svc.profiles.FetchOwnProfile(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil && profile != nil {
		d.profile = profile
		d.profileLoaded = true
	}
	return d.profile
}

func locationNotice(condition LocationCondition) string {
	switch condition {
	case LocationPermissionDenied:
		return noticePermissionDenied
	case LocationSignalUnavailable:
		return noticeSignalUnavailable
	default:
		return ""
	}
}

func (d *discoverySession) resolveAndLoad(gen uint64) {
	ctx, span := d.svc.tracer.Start(d.ctx, "session.resolve_location",
		trace.WithAttributes(attribute.String("session.id", d.id)))

	profile := d.ownProfile(ctx)

	cached, err := d.svc.location.Cached(ctx)
	if err != nil {
		d.svc.logger.Warn("SESSION", "Failed to read cached coordinates", map[string]interface{}{
			"session_id": d.id,
			"error":      err.Error(),
		})
		cached = nil
	}

	result := d.svc.location.Resolve(ctx, cached != nil)
	span.SetAttributes(
		attribute.String("location.condition", string(result.Condition)),
		attribute.Bool("location.fresh", result.Coordinates != nil),
	)
	span.End()

	d.mu.Lock()
	if !d.currentLocked(gen) {
		d.mu.Unlock()
		return
	}

	coords := result.Coordinates
	if coords == nil && cached != nil {
		coords = cached
	}
	if coords == nil && profile != nil {
		coords = profile.Coordinates
	}

	if coords == nil {
		if err := d.svc.stateManager.TransitionToEmpty(d.state, store.EmptyReasonNoLocation); err != nil {
			d.mu.Unlock()
			d.logTransitionError(err)
			return
		}
		snap, listeners := d.changedLocked()
		d.mu.Unlock()
		notify(snap, listeners)
		return
	}

	d.state.Notice = locationNotice(result.Condition)
	d.state.Coordinates = coords
	if err := d.svc.stateManager.TransitionToLoading(d.state); err != nil {
		d.mu.Unlock()
		d.logTransitionError(err)
		return
	}
	snap, listeners := d.changedLocked()
	d.mu.Unlock()
	notify(snap, listeners)

	d.loadBatch(gen, coords)
}

// startRefillLocked moves a drained ready session to refilling. A refill
// stays in the current generation and reuses cached coordinates.
func (d *discoverySession) startRefillLocked() {
	if err := d.svc.stateManager.TransitionToRefilling(d.state); err != nil {
		d.logTransitionError(err)
		return
	}
	go d.refill(d.state.Generation)
}

func (d *discoverySession) refill(gen uint64) {
	coords, err := d.svc.location.Cached(d.ctx)
	if err != nil || coords == nil {
		d.mu.Lock()
		coords = d.state.Coordinates
		d.mu.Unlock()
	}
	d.loadBatch(gen, coords)
}

func (d *discoverySession) loadBatch(gen uint64, coords *entity.Coordinates) {
	ctx, span := d.svc.tracer.Start(d.ctx, "session.fetch_batch",
		trace.WithAttributes(attribute.String("session.id", d.id)))
	defer span.End()

	d.mu.Lock()
	profile := d.profile
	d.mu.Unlock()

	params := d.svc.profiles.SearchParameters(ctx, profile)
	batch, err := d.svc.api.FetchCandidateBatch(ctx, params, coords)

	d.mu.Lock()
	if !d.currentLocked(gen) {
		d.mu.Unlock()
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.state.Notice = noticeBatchFailed
		snap, listeners := d.changedLocked()
		d.mu.Unlock()

		d.svc.logger.Warn("SESSION", "Batch fetch failed, waiting for refresh", map[string]interface{}{
			"session_id": d.id,
			"state":      snap.State,
			"error":      err.Error(),
		})
		notify(snap, listeners)
		return
	}

	d.state.Coordinates = coords

	var terr error
	switch {
	case batch.Incompatible:
		terr = d.svc.stateManager.TransitionToEmpty(d.state, store.EmptyReasonIncompatible)
	default:
		queued := d.queue.Load(batch.Candidates)
		span.SetAttributes(attribute.Int("batch.queued", queued))
		if queued == 0 {
			terr = d.svc.stateManager.TransitionToEmpty(d.state, store.EmptyReasonNoCandidates)
			break
		}
		terr = d.svc.stateManager.TransitionToReady(d.state, queued)
		if terr == nil && !d.tooltipChecked {
			d.tooltipChecked = true
			if front, ok := d.queue.Front(); ok && d.svc.hints.ShouldShow(ctx, HintSearchLike) {
				d.tooltipFor = front.ID
			}
		}
	}
	if terr != nil {
		d.mu.Unlock()
		d.logTransitionError(terr)
		return
	}

	snap, listeners := d.changedLocked()
	d.mu.Unlock()
	notify(snap, listeners)
}

func (d *discoverySession) submit(ctx context.Context, decision entity.Decision) (store.Snapshot, error) {
	d.mu.Lock()
	if d.state.Closed {
		d.mu.Unlock()
		return store.Snapshot{}, ErrSessionClosed
	}
	if d.state.State != store.StateReady {
		d.mu.Unlock()
		return store.Snapshot{}, ErrNotReady
	}
	if err := d.reconciler.Apply(ctx, decision); err != nil {
		d.mu.Unlock()
		return store.Snapshot{}, err
	}

	tooltipSeen := d.tooltipFor == decision.CandidateID
	d.tooltipFor = ""

	if d.queue.Exhausted() {
		d.startRefillLocked()
	}
	snap, listeners := d.changedLocked()
	d.mu.Unlock()

	if tooltipSeen {
		if err := d.svc.hints.MarkShown(ctx, HintSearchLike); err != nil {
			d.svc.logger.Debug("SESSION", "Like tooltip stays unconsumed", map[string]interface{}{
				"session_id": d.id,
				"error":      err.Error(),
			})
		}
	}
	notify(snap, listeners)
	return snap, nil
}

func (d *discoverySession) beginCompliment(candidateID string) (store.Snapshot, error) {
	d.mu.Lock()
	if d.state.Closed {
		d.mu.Unlock()
		return store.Snapshot{}, ErrSessionClosed
	}
	if d.state.State != store.StateReady {
		d.mu.Unlock()
		return store.Snapshot{}, ErrNotReady
	}
	if err := d.reconciler.BeginCompliment(candidateID); err != nil {
		d.mu.Unlock()
		return store.Snapshot{}, err
	}
	snap, listeners := d.changedLocked()
	d.mu.Unlock()

	notify(snap, listeners)
	return snap, nil
}

func (d *discoverySession) cancelCompliment() (store.Snapshot, error) {
	d.mu.Lock()
	if d.state.Closed {
		d.mu.Unlock()
		return store.Snapshot{}, ErrSessionClosed
	}
	d.reconciler.CancelCompliment()
	snap, listeners := d.changedLocked()
	d.mu.Unlock()

	notify(snap, listeners)
	return snap, nil
}

func (d *discoverySession) markHintShown(ctx context.Context, key string) (store.Snapshot, error) {
	if err := d.svc.hints.MarkShown(ctx, key); err != nil {
		return store.Snapshot{}, err
	}

	d.mu.Lock()
	if d.state.Closed {
		d.mu.Unlock()
		return store.Snapshot{}, ErrSessionClosed
	}
	if key == HintSearchLike {
		d.tooltipFor = ""
	}
	snap, listeners := d.changedLocked()
	d.mu.Unlock()

	notify(snap, listeners)
	return snap, nil
}

func (d *discoverySession) watchInvalidations(decided <-chan events.CandidateDecided) {
	for evt := range decided {
		if evt.Origin == d.id {
			continue
		}
		d.invalidate(evt)
	}
}

// invalidate drops a candidate decided elsewhere. The id is remembered
// even when it is not queued so a later batch cannot bring it back.
func (d *discoverySession) invalidate(evt events.CandidateDecided) {
	d.mu.Lock()
	if d.state.Closed {
		d.mu.Unlock()
		return
	}

	err := d.queue.RemoveByID(evt.CandidateID)
	d.reconciler.Forget(evt.CandidateID)
	if errors.Is(err, store.ErrUnknownCandidate) {
		d.mu.Unlock()
		return
	}

	if d.tooltipFor == evt.CandidateID {
		d.tooltipFor = ""
	}

	d.svc.logger.Info("SESSION", "Candidate invalidated", map[string]interface{}{
		"session_id":   d.id,
		"candidate_id": evt.CandidateID,
		"origin":       evt.Origin,
	})

	if d.state.State == store.StateReady && d.queue.Exhausted() {
		d.startRefillLocked()
	}
	snap, listeners := d.changedLocked()
	d.mu.Unlock()

	notify(snap, listeners)
}

func (d *discoverySession) logTransitionError(err error) {
	d.svc.logger.Error("SESSION", "Rejected state transition", map[string]interface{}{
		"session_id": d.id,
		"error":      err.Error(),
	})
}
