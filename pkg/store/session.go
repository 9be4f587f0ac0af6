package store

import "discovery-client/internal/entity"

// SessionState is the single active phase of a discovery session.
type SessionState string

const (
	StateIdle              SessionState = "idle"
	StateResolvingLocation SessionState = "resolving-location"
	StateLoadingBatch      SessionState = "loading-batch"
	StateReady             SessionState = "ready"
	StateEmpty             SessionState = "empty"
	StateRefilling         SessionState = "refilling"
)

// EmptyReason tells the presentation layer which empty screen to draw.
type EmptyReason string

const (
	EmptyReasonNone         EmptyReason = ""
	EmptyReasonNoCandidates EmptyReason = "no-candidates"
	EmptyReasonIncompatible EmptyReason = "incompatible"
	EmptyReasonNoLocation   EmptyReason = "no-location"
)

// Session is the in-memory state of one discovery screen activation.
type Session struct {
	ID          string       `json:"id"`
	State       SessionState `json:"state"`
	EmptyReason EmptyReason  `json:"empty_reason,omitempty"`
	Message     string       `json:"message,omitempty"` // explains a terminal empty state
	Notice      string       `json:"notice,omitempty"`  // last non-fatal condition, shown as a toast

	Coordinates *entity.Coordinates `json:"coordinates,omitempty"`

	// Generation increments on every refresh and on teardown. Async work
	// carries the generation it started under and is dropped on mismatch.
	Generation uint64 `json:"generation"`

	BatchesLoaded int  `json:"batches_loaded"`
	Closed        bool `json:"closed"`
}

// Snapshot is what the presentation layer renders.
type Snapshot struct {
	SessionID       string            `json:"session_id"`
	State           SessionState      `json:"state"`
	EmptyReason     EmptyReason       `json:"empty_reason,omitempty"`
	Message         string            `json:"message,omitempty"`
	Notice          string            `json:"notice,omitempty"`
	Front           *entity.Candidate `json:"front,omitempty"`
	SafetyGated     bool              `json:"safety_gated"`
	ShowLikeTooltip bool              `json:"show_like_tooltip"`
	Remaining       int               `json:"remaining"`
	ComplimentOpen  string            `json:"compliment_open,omitempty"`
	Closed          bool              `json:"closed,omitempty"` // last snapshot a session sends

	// Version increases with every change pushed to listeners, so a
	// consumer can drop snapshots that arrive out of order.
	Version uint64 `json:"version"`
}
