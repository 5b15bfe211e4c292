package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant represents one slot on a wheel. The weight feeds the displayed
// chance of selection only; sector geometry never consults it.
type Participant struct {
	ID        uuid.UUID `json:"id"`
	WheelID   uuid.UUID `json:"wheel_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
