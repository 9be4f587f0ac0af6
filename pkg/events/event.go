package events

import "time"

// Event defines the contract for all events crossing the local bus or the
// NATS relay.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CANDIDATE_DECIDED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent carries events whose concrete type is not known to the receiver,
// e.g. payloads decoded off the NATS relay.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
