package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"discovery-client/internal/dto"
	"discovery-client/internal/entity"
	"discovery-client/internal/pkg/logger"
	"discovery-client/pkg/events"
	"discovery-client/pkg/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const TopicDecisionCommands = "decision.commands"

var (
	ErrInvalidDecision   = errors.New("invalid decision")
	ErrComplimentPending = errors.New("a compliment is being composed for this candidate")
	ErrAlreadyDecided    = errors.New("candidate was already decided")
	ErrNotFront          = errors.New("candidate is not the one on screen")
)

type IDecisionService interface {
	// NewReconciler binds decisions to one session's queue.
	NewReconciler(sessionID string, queue *store.CandidateQueue) *Reconciler
	// ApplyDetached records a decision made outside any session, e.g. on the
	// profile detail screen. Live sessions drop the candidate on the event.
	ApplyDetached(ctx context.Context, decision entity.Decision) error
	Validate(decision entity.Decision) error
}

type decisionService struct {
	publisher     IPublisherService
	bus           *events.Bus
	validate      *validator.Validate
	complimentMax int
	instanceID    string
	logger        logger.ILogger
}

func NewDecisionService(
	publisher IPublisherService,
	bus *events.Bus,
	validate *validator.Validate,
	complimentMax int,
	instanceID string,
	logger logger.ILogger,
) IDecisionService {
	return &decisionService{
		publisher:     publisher,
		bus:           bus,
		validate:      validate,
		complimentMax: complimentMax,
		instanceID:    instanceID,
		logger:        logger,
	}
}

func (s *decisionService) Validate(decision entity.Decision) error {
	if err := s.validate.Struct(decision); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	if decision.Kind != entity.DecisionCompliment {
		return nil
	}
	if err := s.validate.Var(decision.Message, fmt.Sprintf("required,max=%d", s.complimentMax)); err != nil {
		return fmt.Errorf("%w: compliment message must be 1-%d characters", ErrInvalidDecision, s.complimentMax)
	}
	return nil
}

// dispatch hands the remote call to the background dispatcher and tells the
// rest of the app the candidate is gone. Neither step waits on the network.
func (s *decisionService) dispatch(ctx context.Context, sessionID, origin string, decision entity.Decision) {
	// The command outlives the caller: a decision submitted right before
	// teardown is still sent.
	ctx = context.WithoutCancel(ctx)

	msg := dto.PublishDecisionMessage{
		CommandID:   uuid.NewString(),
		SessionID:   sessionID,
		Kind:        decision.Kind,
		CandidateID: decision.CandidateID,
		Message:     decision.Message,
		IssuedAt:    time.Now(),
	}

	payload, err := json.Marshal(msg)
	if err == nil {
		err = s.publisher.Publish(ctx, payload)
	}
	if err != nil {
		s.logger.Error("DECISION", "Failed to enqueue decision", map[string]interface{}{
			"candidate_id": decision.CandidateID,
			"kind":         decision.Kind,
			"error":        err.Error(),
		})
	}

	evt := events.CandidateDecided{
		CandidateID: decision.CandidateID,
		Kind:        string(decision.Kind),
		Origin:      origin,
		Source:      s.instanceID,
		OccurredAt:  msg.IssuedAt,
	}
	if err := s.bus.PublishCandidateDecided(ctx, evt); err != nil {
		s.logger.Warn("DECISION", "Failed to publish candidate decided", map[string]interface{}{
			"candidate_id": decision.CandidateID,
			"error":        err.Error(),
		})
	}
}

func (s *decisionService) ApplyDetached(ctx context.Context, decision entity.Decision) error {
	if err := s.Validate(decision); err != nil {
		return err
	}
	s.dispatch(ctx, "", events.OriginProfileDetail, decision)
	return nil
}

func (s *decisionService) NewReconciler(sessionID string, queue *store.CandidateQueue) *Reconciler {
	return &Reconciler{
		service:   s,
		sessionID: sessionID,
		queue:     queue,
	}
}

// Reconciler applies decisions to one session's queue. The local advance
// happens before Apply returns; the remote call runs later on the
// dispatcher and its outcome never touches the queue.
type Reconciler struct {
	service   *decisionService
	sessionID string
	queue     *store.CandidateQueue

	mu         sync.Mutex
	compliment string // candidate whose compliment composer is open
}

// BeginCompliment holds back every non-compliment decision on candidateID
// until the compliment is sent or CancelCompliment is called.
func (r *Reconciler) BeginCompliment(candidateID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.queue.Decided(candidateID) {
		return ErrAlreadyDecided
	}
	if err := r.checkFront(candidateID); err != nil {
		return err
	}
	r.compliment = candidateID
	return nil
}

func (r *Reconciler) CancelCompliment() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compliment = ""
}

// ComplimentOpen returns the candidate being complimented, or "".
func (r *Reconciler) ComplimentOpen() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.compliment
}

// Forget clears the compliment gate if it was held for candidateID.
func (r *Reconciler) Forget(candidateID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.compliment == candidateID {
		r.compliment = ""
	}
}

// checkFront only lets decisions through for the presented candidate.
// Candidates further back leave the queue through invalidation.
func (r *Reconciler) checkFront(id string) error {
	if !r.queue.Contains(id) {
		return store.ErrUnknownCandidate
	}
	if front, ok := r.queue.Front(); !ok || front.ID != id {
		return ErrNotFront
	}
	return nil
}

func (r *Reconciler) Apply(ctx context.Context, decision entity.Decision) error {
	if err := r.service.Validate(decision); err != nil {
		return err
	}

	r.mu.Lock()
	id := decision.CandidateID
	if r.compliment == id && decision.Kind != entity.DecisionCompliment {
		r.mu.Unlock()
		return ErrComplimentPending
	}
	if r.queue.Decided(id) {
		r.mu.Unlock()
		return ErrAlreadyDecided
	}
	if err := r.checkFront(id); err != nil {
		r.mu.Unlock()
		return err
	}
	if err := r.queue.RemoveByID(id); err != nil {
		r.mu.Unlock()
		return err
	}
	if r.compliment == id {
		r.compliment = ""
	}
	r.mu.Unlock()

	r.service.logger.Info("DECISION", "Decision applied", map[string]interface{}{
		"session_id":   r.sessionID,
		"candidate_id": id,
		"kind":         decision.Kind,
	})

	r.service.dispatch(ctx, r.sessionID, r.sessionID, decision)
	return nil
}
