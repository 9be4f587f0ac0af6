package entity

type DecisionKind string

const (
	DecisionLike       DecisionKind = "like"
	DecisionCompliment DecisionKind = "compliment"
	DecisionHide       DecisionKind = "hide"
)

// Decision is a user action on a candidate. Message is only carried by
// compliments.
type Decision struct {
	Kind        DecisionKind `json:"kind" validate:"required,oneof=like compliment hide"`
	CandidateID string       `json:"candidate_id" validate:"required"`
	Message     string       `json:"message,omitempty"`
}

func Like(candidateID string) Decision {
	return Decision{Kind: DecisionLike, CandidateID: candidateID}
}

func Compliment(candidateID, message string) Decision {
	return Decision{Kind: DecisionCompliment, CandidateID: candidateID, Message: message}
}

func Hide(candidateID string) Decision {
	return Decision{Kind: DecisionHide, CandidateID: candidateID}
}
