package spin

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/aws/aws-ops-wheel-sub000/internal/models"
	"github.com/aws/aws-ops-wheel-sub000/internal/wheel"
)

var (
	// ErrParticipantNotFound means the backend's outcome references a
	// participant absent from the current list (stale cache race). Fatal to
	// that spin attempt; never silently defaults to sector zero.
	ErrParticipantNotFound = errors.New("outcome references a participant not on the wheel")

	// ErrNoParticipants means the wheel is empty and cannot spin.
	ErrNoParticipants = errors.New("wheel has no participants")
)

// DefaultRotations is how many full revolutions every spin makes before
// settling, regardless of sector count.
const DefaultRotations = 10

// Target is the geometric goal of one spin.
type Target struct {
	Index  int     // ordinal of the winning participant
	Offset float64 // fractional sector offset the pointer lands on
	Angle  float64 // final rotation angle, radians
	Rigged bool
}

// OutcomeResolver converts a server-issued selection outcome into the angle
// the animation must land on.
type OutcomeResolver interface {
	Resolve(sectors *wheel.SectorMap, outcome models.SelectionOutcome) (Target, error)
}

// LinearResolver resolves outcomes with a linear scan of the ordered
// participant list.
type LinearResolver struct {
	rng *rand.Rand
}

// NewLinearResolver creates a resolver. The random source supplies the
// landing jitter for fair spins.
func NewLinearResolver(rng *rand.Rand) *LinearResolver {
	return &LinearResolver{rng: rng}
}

// Resolve computes the fractional sector offset and final angle for an
// outcome. Fair outcomes land at a uniformly random point inside the winning
// sector, never dead center: a perfectly centered stop reads as staged.
// Rigged outcomes land dead center: the rig must look precise once settled.
func (r *LinearResolver) Resolve(sectors *wheel.SectorMap, outcome models.SelectionOutcome) (Target, error) {
	if sectors.Len() == 0 {
		return Target{}, ErrNoParticipants
	}

	idx, ok := sectors.IndexOf(outcome.ParticipantID)
	if !ok {
		return Target{}, fmt.Errorf("%w: %s", ErrParticipantNotFound, outcome.ParticipantID)
	}

	offset := float64(idx)
	if !outcome.Rigged {
		jitter := r.rng.Float64() - 0.5
		for jitter == 0 {
			jitter = r.rng.Float64() - 0.5
		}
		offset += jitter
	}

	angle := DefaultRotations*2*math.Pi - sectors.SectorSize()*offset
	return Target{Index: idx, Offset: offset, Angle: angle, Rigged: outcome.Rigged}, nil
}
