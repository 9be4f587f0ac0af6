package state

import (
	"errors"
	"fmt"

	"discovery-client/internal/pkg/logger"
	"discovery-client/pkg/store"
)

var ErrIllegalTransition = errors.New("illegal session state transition")

// transitions lists the legal targets per state. Every state may also move
// to resolving-location (explicit refresh), handled in Allowed.
var transitions = map[store.SessionState][]store.SessionState{
	store.StateIdle:              {store.StateResolvingLocation},
	store.StateResolvingLocation: {store.StateLoadingBatch, store.StateEmpty},
	store.StateLoadingBatch:      {store.StateReady, store.StateEmpty},
	store.StateReady:             {store.StateRefilling},
	store.StateRefilling:         {store.StateReady, store.StateEmpty},
	store.StateEmpty:             {},
}

// Allowed reports whether from -> to is a legal move.
func Allowed(from, to store.SessionState) bool {
	if to == store.StateResolvingLocation {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Manager handles session state transitions
type Manager struct {
	logger logger.ILogger
}

// NewManager creates a new state manager
func NewManager(logger logger.ILogger) *Manager {
	return &Manager{logger: logger}
}

func (m *Manager) transition(session *store.Session, to store.SessionState) error {
	if session.Closed {
		return fmt.Errorf("%w: session %s is closed", ErrIllegalTransition, session.ID)
	}
	if !Allowed(session.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, session.State, to)
	}
	m.logger.Info("SESSION", "State transition", map[string]interface{}{
		"session_id": session.ID,
		"from":       session.State,
		"to":         to,
	})
	session.State = to
	return nil
}

// TransitionToResolving starts a location attempt. Legal from any state.
func (m *Manager) TransitionToResolving(session *store.Session) error {
	if err := m.transition(session, store.StateResolvingLocation); err != nil {
		return err
	}
	session.EmptyReason = store.EmptyReasonNone
	session.Message = ""
	return nil
}

// TransitionToLoading records the coordinates the batch request will use.
func (m *Manager) TransitionToLoading(session *store.Session) error {
	return m.transition(session, store.StateLoadingBatch)
}

// TransitionToRefilling is taken when an advance drains the queue.
func (m *Manager) TransitionToRefilling(session *store.Session) error {
	return m.transition(session, store.StateRefilling)
}

// TransitionToReady is taken when a batch produced at least one candidate.
func (m *Manager) TransitionToReady(session *store.Session, queued int) error {
	if err := m.transition(session, store.StateReady); err != nil {
		return err
	}
	session.BatchesLoaded++
	session.EmptyReason = store.EmptyReasonNone
	session.Message = ""
	m.logger.Debug("SESSION", "Queue loaded", map[string]interface{}{"session_id": session.ID, "queued": queued})
	return nil
}

// TransitionToEmpty halts the session until an explicit refresh.
func (m *Manager) TransitionToEmpty(session *store.Session, reason store.EmptyReason) error {
	if err := m.transition(session, store.StateEmpty); err != nil {
		return err
	}
	session.EmptyReason = reason
	session.Message = EmptyMessage(reason)
	return nil
}

// EmptyMessage is the user-facing text for each terminal empty state.
func EmptyMessage(reason store.EmptyReason) string {
	switch reason {
	case store.EmptyReasonIncompatible:
		return "Your profile isn't ready to be matched yet. Complete your profile to start discovering people."
	case store.EmptyReasonNoLocation:
		return "We couldn't determine your location. Enable location access and pull to refresh."
	case store.EmptyReasonNoCandidates:
		return "There's no one new around you right now. Check back later or widen your search."
	default:
		return ""
	}
}
