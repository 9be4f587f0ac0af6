package dto

import (
	"time"

	"discovery-client/internal/entity"
)

// PublishDecisionMessage is one decision command on the dispatch topic.
// CommandID is unique per user action and is what the dispatcher dedupes on.
type PublishDecisionMessage struct {
	CommandID   string              `json:"command_id"`
	SessionID   string              `json:"session_id,omitempty"` // empty for detached decisions
	Kind        entity.DecisionKind `json:"kind"`
	CandidateID string              `json:"candidate_id"`
	Message     string              `json:"message,omitempty"`
	IssuedAt    time.Time           `json:"issued_at"`
}

type SubmitDecisionRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=like compliment hide"`
	CandidateID string `json:"candidate_id" validate:"required"`
	Message     string `json:"message"`
}

type DetachedDecisionRequest struct {
	Kind    string `json:"kind" validate:"required,oneof=like compliment hide"`
	Message string `json:"message"`
}
