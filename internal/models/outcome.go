package models

import "github.com/google/uuid"

// OutcomeKind discriminates the variants of a selection response.
type OutcomeKind string

const (
	OutcomeKindSingle OutcomeKind = "SINGLE"
	OutcomeKindMulti  OutcomeKind = "MULTI"
)

// SelectionOutcome is the backend's answer to a single spin request.
type SelectionOutcome struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Rigged        bool      `json:"rigged"`
}

// MultiSelectionOutcome is the backend's answer to a multi-select request.
// The order of the participant references is meaningful: it is the order the
// result set is presented in and the order external URLs are opened in.
type MultiSelectionOutcome struct {
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
}

// Outcome is the tagged union of selection responses. The suggest endpoints
// intermix payload shapes, so the API client resolves the variant exactly
// once and nothing downstream ever sees a raw map.
type Outcome struct {
	Kind   OutcomeKind
	Single *SelectionOutcome
	Multi  *MultiSelectionOutcome
}

// NewSingleOutcome wraps a single-spin response.
func NewSingleOutcome(o SelectionOutcome) Outcome {
	return Outcome{Kind: OutcomeKindSingle, Single: &o}
}

// NewMultiOutcome wraps a multi-select response.
func NewMultiOutcome(o MultiSelectionOutcome) Outcome {
	return Outcome{Kind: OutcomeKindMulti, Multi: &o}
}
