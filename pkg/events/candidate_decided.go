package events

import (
	"fmt"
	"time"
)

const (
	EventCandidateDecided = "CANDIDATE_DECIDED"
	TopicCandidateDecided = "candidate.decided"
)

// Well-known origins. Sessions use their own id as origin.
const (
	OriginProfileDetail = "profile-detail"
)

// CandidateDecided says a decision was recorded on a candidate somewhere in
// the app. Live sessions drop the candidate from their queue unless they
// are the origin.
type CandidateDecided struct {
	CandidateID string    `json:"candidate_id"`
	Kind        string    `json:"kind"`
	Origin      string    `json:"origin"`
	Source      string    `json:"source"` // process instance that first published it
	OccurredAt  time.Time `json:"occurred_at"`
}

func (e CandidateDecided) EventType() string {
	return EventCandidateDecided
}

func (e CandidateDecided) Payload() map[string]interface{} {
	return map[string]interface{}{
		"candidate_id": e.CandidateID,
		"kind":         e.Kind,
		"origin":       e.Origin,
		"source":       e.Source,
		"occurred_at":  e.OccurredAt.Format(time.RFC3339Nano),
	}
}

func (e CandidateDecided) Timestamp() time.Time {
	return e.OccurredAt
}

// CandidateDecidedFromEvent rebuilds the typed event from a generic one.
func CandidateDecidedFromEvent(evt Event) (CandidateDecided, error) {
	data := evt.Payload()
	id, _ := data["candidate_id"].(string)
	if id == "" {
		return CandidateDecided{}, fmt.Errorf("event %s has no candidate_id", evt.EventType())
	}

	out := CandidateDecided{CandidateID: id, OccurredAt: evt.Timestamp()}
	out.Kind, _ = data["kind"].(string)
	out.Origin, _ = data["origin"].(string)
	out.Source, _ = data["source"].(string)
	if raw, ok := data["occurred_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			out.OccurredAt = ts
		}
	}
	return out, nil
}
