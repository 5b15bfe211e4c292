package wheel

import (
	"math"

	"github.com/google/uuid"

	"github.com/aws/aws-ops-wheel-sub000/internal/models"
)

// SelectionPercentage returns the displayed chance of selection for one
// weight against the total, rounded to two decimals. Purely informational:
// it never influences sector geometry. A zero or negative total displays as
// 0.00 rather than dividing by zero.
func SelectionPercentage(weight, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(weight/total*10000) / 100
}

// SelectionPercentages computes the chance of selection for every
// participant. The values sum to 100 within rounding whenever total weight
// is positive, and are uniformly zero otherwise.
func SelectionPercentages(participants []models.Participant) map[uuid.UUID]float64 {
	var total float64
	for _, p := range participants {
		total += p.Weight
	}

	out := make(map[uuid.UUID]float64, len(participants))
	for _, p := range participants {
		out[p.ID] = SelectionPercentage(p.Weight, total)
	}
	return out
}
