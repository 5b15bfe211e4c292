package models

import (
	"time"

	"github.com/google/uuid"
)

// Rigging forces a specific participant to win the next spin. At most one
// rigging entry exists per wheel; rigging another participant replaces it.
// Hidden controls notification visibility only, never the animation.
type Rigging struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Hidden        bool      `json:"hidden"`
}

// Wheel represents a wheel instance as served by the backend.
type Wheel struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Rigging   *Rigging  `json:"rigging,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Rigged reports whether the wheel currently carries a rigging entry.
func (w *Wheel) Rigged() bool {
	return w.Rigging != nil
}
