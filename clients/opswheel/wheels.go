package opswheel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aws/aws-ops-wheel-sub000/internal/models"
)

// GetWheel fetches a wheel, serving from cache inside the TTL.
func (c *Client) GetWheel(ctx context.Context, wheelID uuid.UUID) (models.Wheel, error) {
	cacheKey := wheelCacheKeyPrefix + wheelID.String()
	if cached, found := c.cache.Get(cacheKey); found {
		return cached.(models.Wheel), nil
	}

	body, err := c.get(ctx, fmt.Sprintf(wheelPath, wheelID))
	if err != nil {
		return models.Wheel{}, fmt.Errorf("get wheel: %w", err)
	}

	var wheel models.Wheel
	if err := json.Unmarshal(body, &wheel); err != nil {
		return models.Wheel{}, fmt.Errorf("decode wheel: %w", err)
	}

	c.cache.SetDefault(cacheKey, wheel)
	return wheel, nil
}

// ListParticipants fetches the wheel's full participant list. Always fresh;
// the view refreshes wholesale after every mutation.
func (c *Client) ListParticipants(ctx context.Context, wheelID uuid.UUID) ([]models.Participant, error) {
	body, err := c.get(ctx, fmt.Sprintf(participantsPath, wheelID))
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	var participants []models.Participant
	if err := json.Unmarshal(body, &participants); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	return participants, nil
}

// Suggest requests a single selection outcome for the next spin.
func (c *Client) Suggest(ctx context.Context, wheelID uuid.UUID) (models.SelectionOutcome, error) {
	body, err := c.post(ctx, fmt.Sprintf(suggestPath, wheelID), nil)
	if err != nil {
		return models.SelectionOutcome{}, fmt.Errorf("suggest participant: %w", err)
	}

	outcome, err := decodeOutcome(body)
	if err != nil {
		return models.SelectionOutcome{}, err
	}
	if outcome.Kind != models.OutcomeKindSingle {
		return models.SelectionOutcome{}, fmt.Errorf("suggest returned a %s outcome", outcome.Kind)
	}
	return *outcome.Single, nil
}

type multiSuggestRequest struct {
	Count  int  `json:"count"`
	Commit bool `json:"commit"`
}

// SuggestMulti requests count outcomes. With commit false the backend
// previews without touching weights; with commit true it redistributes the
// weights for the full set.
func (c *Client) SuggestMulti(ctx context.Context, wheelID uuid.UUID, count int, commit bool) (models.MultiSelectionOutcome, error) {
	payload, err := json.Marshal(multiSuggestRequest{Count: count, Commit: commit})
	if err != nil {
		return models.MultiSelectionOutcome{}, fmt.Errorf("encode multi-suggest request: %w", err)
	}

	body, err := c.post(ctx, fmt.Sprintf(multiSuggestPath, wheelID), bytes.NewReader(payload))
	if err != nil {
		return models.MultiSelectionOutcome{}, fmt.Errorf("suggest participants: %w", err)
	}

	outcome, err := decodeOutcome(body)
	if err != nil {
		return models.MultiSelectionOutcome{}, err
	}
	if outcome.Kind != models.OutcomeKindMulti {
		return models.MultiSelectionOutcome{}, fmt.Errorf("multi-suggest returned a %s outcome", outcome.Kind)
	}
	return *outcome.Multi, nil
}

// RecordSelection records that a participant was chosen.
func (c *Client) RecordSelection(ctx context.Context, wheelID, participantID uuid.UUID) error {
	if _, err := c.post(ctx, fmt.Sprintf(selectPath, wheelID, participantID), nil); err != nil {
		return fmt.Errorf("record selection: %w", err)
	}
	return nil
}

type rigRequest struct {
	Hidden bool `json:"hidden"`
}

// SetRigging rigs the wheel for a participant, replacing any existing entry.
func (c *Client) SetRigging(ctx context.Context, wheelID, participantID uuid.UUID, hidden bool) error {
	payload, err := json.Marshal(rigRequest{Hidden: hidden})
	if err != nil {
		return fmt.Errorf("encode rig request: %w", err)
	}

	if _, err := c.put(ctx, fmt.Sprintf(rigPath, wheelID, participantID), bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("set rigging: %w", err)
	}
	c.invalidateWheel(wheelID)
	return nil
}

// ClearRigging removes the wheel's rigging entry.
func (c *Client) ClearRigging(ctx context.Context, wheelID uuid.UUID) error {
	if _, err := c.delete(ctx, fmt.Sprintf(unrigPath, wheelID)); err != nil {
		return fmt.Errorf("clear rigging: %w", err)
	}
	c.invalidateWheel(wheelID)
	return nil
}

// ResetWeights resets the wheel's accumulated weights.
func (c *Client) ResetWeights(ctx context.Context, wheelID uuid.UUID) error {
	if _, err := c.post(ctx, fmt.Sprintf(resetPath, wheelID), nil); err != nil {
		return fmt.Errorf("reset weights: %w", err)
	}
	return nil
}

func (c *Client) invalidateWheel(wheelID uuid.UUID) {
	c.cache.Delete(wheelCacheKeyPrefix + wheelID.String())
	log.Debug().Str("wheel_id", wheelID.String()).Msg("wheel cache invalidated")
}
