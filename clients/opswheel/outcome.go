package opswheel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aws/aws-ops-wheel-sub000/internal/models"
)

// ErrUnknownOutcomeShape means the suggest response matched neither the
// single nor the multi payload shape.
var ErrUnknownOutcomeShape = errors.New("unrecognized outcome payload shape")

// The suggest endpoints intermix single and multi payload shapes. The
// envelope captures both; decodeOutcome resolves the variant exactly once so
// nothing downstream sees untyped maps.
type outcomeEnvelope struct {
	ParticipantID *uuid.UUID        `json:"participant_id,omitempty"`
	Rigged        bool              `json:"rigged,omitempty"`
	Participants  []wireParticipant `json:"participants,omitempty"`
}

type wireParticipant struct {
	ID uuid.UUID `json:"id"`
}

func decodeOutcome(body []byte) (models.Outcome, error) {
	var env outcomeEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return models.Outcome{}, fmt.Errorf("decode outcome: %w", err)
	}

	switch {
	case env.ParticipantID != nil:
		return models.NewSingleOutcome(models.SelectionOutcome{
			ParticipantID: *env.ParticipantID,
			Rigged:        env.Rigged,
		}), nil

	case len(env.Participants) > 0:
		ids := make([]uuid.UUID, len(env.Participants))
		for i, p := range env.Participants {
			ids[i] = p.ID
		}
		return models.NewMultiOutcome(models.MultiSelectionOutcome{ParticipantIDs: ids}), nil

	default:
		return models.Outcome{}, ErrUnknownOutcomeShape
	}
}
