package multiselect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/aws/aws-ops-wheel-sub000/internal/models"
)

// MaxCount caps one multi-select request.
const MaxCount = 50

// OpenStagger spaces the external URL opens so popup-blocker heuristics do
// not collapse them into one burst. The delay is real time, not ticker time.
const OpenStagger = 100 * time.Millisecond

var (
	// ErrBadCount rejects counts outside 1..min(MaxCount, N).
	ErrBadCount = errors.New("multi-select count out of range")

	// ErrNoPreview means confirm was requested without a preceding preview.
	ErrNoPreview = errors.New("no previewed result set to confirm")

	// ErrStaleParticipant means the result set references a participant no
	// longer on the wheel.
	ErrStaleParticipant = errors.New("result set references a participant not on the wheel")
)

// Client is the slice of the wheel API the coordinator needs.
type Client interface {
	SuggestMulti(ctx context.Context, wheelID uuid.UUID, count int, commit bool) (models.MultiSelectionOutcome, error)
	RecordSelection(ctx context.Context, wheelID, participantID uuid.UUID) error
}

// ParticipantSource resolves participant references against the current
// in-memory list. The sector map implements this.
type ParticipantSource interface {
	ParticipantByID(id uuid.UUID) (models.Participant, bool)
	Len() int
}

// Opener opens a participant's external URL on whatever surface hosts the
// view.
type Opener interface {
	OpenURL(url string) error
}

// Coordinator drives the non-animated multi-selection path: preview a result
// set without committing weight changes, then commit exactly once on
// confirmation. Independent of the spin animation; no wheel rotation occurs.
type Coordinator struct {
	mu           sync.Mutex
	client       Client
	participants ParticipantSource
	opener       Opener
	clock        clockwork.Clock
	wheelID      uuid.UUID

	preview []models.Participant
}

// NewCoordinator creates a coordinator for one wheel view.
func NewCoordinator(client Client, participants ParticipantSource, opener Opener, clock clockwork.Clock, wheelID uuid.UUID) *Coordinator {
	return &Coordinator{
		client:       client,
		participants: participants,
		opener:       opener,
		clock:        clock,
		wheelID:      wheelID,
	}
}

// Preview requests count outcomes without committing weight changes and
// returns the ordered result set.
func (c *Coordinator) Preview(ctx context.Context, count int) ([]models.Participant, error) {
	max := c.participants.Len()
	if max > MaxCount {
		max = MaxCount
	}
	if count < 1 || count > max {
		return nil, fmt.Errorf("%w: %d", ErrBadCount, count)
	}

	outcome, err := c.client.SuggestMulti(ctx, c.wheelID, count, false)
	if err != nil {
		return nil, fmt.Errorf("preview multi-select: %w", err)
	}

	selected := make([]models.Participant, 0, len(outcome.ParticipantIDs))
	for _, id := range outcome.ParticipantIDs {
		p, ok := c.participants.ParticipantByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrStaleParticipant, id)
		}
		selected = append(selected, p)
	}

	c.mu.Lock()
	c.preview = selected
	c.mu.Unlock()

	log.Info().
		Str("wheel_id", c.wheelID.String()).
		Int("count", len(selected)).
		Msg("multi-select previewed")
	return selected, nil
}

// Previewed returns the currently previewed result set.
func (c *Coordinator) Previewed() []models.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Participant, len(c.preview))
	copy(out, c.preview)
	return out
}

// ConfirmAll commits the weight redistribution for the previewed set with a
// single request, then opens each participant's external URL staggered by
// index × OpenStagger.
func (c *Coordinator) ConfirmAll(ctx context.Context) error {
	c.mu.Lock()
	previewed := c.preview
	c.preview = nil
	c.mu.Unlock()

	if len(previewed) == 0 {
		return ErrNoPreview
	}

	if _, err := c.client.SuggestMulti(ctx, c.wheelID, len(previewed), true); err != nil {
		// Keep the preview so the user can retry the confirmation.
		c.mu.Lock()
		c.preview = previewed
		c.mu.Unlock()
		return fmt.Errorf("commit multi-select: %w", err)
	}

	for i, p := range previewed {
		if p.URL == "" {
			continue
		}
		url := p.URL
		if i == 0 {
			c.open(url)
			continue
		}
		c.clock.AfterFunc(time.Duration(i)*OpenStagger, func() {
			c.open(url)
		})
	}

	log.Info().
		Str("wheel_id", c.wheelID.String()).
		Int("count", len(previewed)).
		Msg("multi-select confirmed")
	return nil
}

// ChooseOne records a single previewed participant's selection event. The
// confirm-time commit already redistributed weights for the full set, so no
// second redistribution happens here.
func (c *Coordinator) ChooseOne(ctx context.Context, participantID uuid.UUID) error {
	if err := c.client.RecordSelection(ctx, c.wheelID, participantID); err != nil {
		return fmt.Errorf("record selection: %w", err)
	}
	return nil
}

func (c *Coordinator) open(url string) {
	if err := c.opener.OpenURL(url); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("failed to open participant url")
	}
}
