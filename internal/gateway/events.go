package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-ops-wheel-sub000/internal/models"
	"github.com/aws/aws-ops-wheel-sub000/internal/spin"
)

// WheelEvent is the envelope for everything the gateway pushes to renderers.
type WheelEvent struct {
	ID        string          `json:"id"`        // Event UUID
	WheelID   string          `json:"wheel_id"`  // Wheel UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of wheel event.
type EventType string

const (
	EventTypeWheelState        EventType = "WheelState"
	EventTypeFrame             EventType = "Frame"
	EventTypeSpinSettled       EventType = "SpinSettled"
	EventTypeSpinFailed        EventType = "SpinFailed"
	EventTypeParticipantChosen EventType = "ParticipantChosen"
	EventTypeMultiPreview      EventType = "MultiPreview"
	EventTypeOpenURL           EventType = "OpenURL"
	EventTypeMuteChanged       EventType = "MuteChanged"
	EventTypeCommandRejected   EventType = "CommandRejected"
)

// WheelStatePayload is the snapshot sent on connect and after mutations:
// everything a renderer needs to draw the resting wheel.
type WheelStatePayload struct {
	Wheel        models.Wheel         `json:"wheel"`
	Participants []models.Participant `json:"participants"`
	Percentages  map[string]float64   `json:"percentages"`
	SectorSize   float64              `json:"sector_size"`
	BaseOffset   float64              `json:"base_offset"`
}

// FramePayload carries one animation frame.
type FramePayload struct {
	Phase     spin.Phase `json:"phase"`
	Angle     float64    `json:"angle"`
	DrawAngle float64    `json:"draw_angle"`
	Sector    int        `json:"sector"`
}

// SpinSettledPayload announces the resolved participant. Rigged is echoed
// for visible rigs only; hidden rigs animate identically and stay quiet.
type SpinSettledPayload struct {
	Participant models.Participant `json:"participant"`
	Rigged      bool               `json:"rigged"`
}

// SpinFailedPayload surfaces a retryable spin failure.
type SpinFailedPayload struct {
	Error string `json:"error"`
}

// ParticipantChosenPayload acknowledges a recorded selection.
type ParticipantChosenPayload struct {
	Participant models.Participant `json:"participant"`
}

// MultiPreviewPayload carries the ordered multi-select result set.
type MultiPreviewPayload struct {
	Participants []models.Participant `json:"participants"`
}

// OpenURLPayload instructs the renderer to open an external URL. Events
// arrive pre-staggered; the renderer opens immediately on receipt.
type OpenURLPayload struct {
	URL string `json:"url"`
}

// MuteChangedPayload broadcasts the persisted mute flag so all of a wheel's
// renderers stay in sync.
type MuteChangedPayload struct {
	Muted bool `json:"muted"`
}

// CommandRejectedPayload tells one renderer why its command was dropped.
type CommandRejectedPayload struct {
	Command CommandType `json:"command"`
	Reason  string      `json:"reason"`
}

// NewWheelEvent builds an event envelope around a payload.
func NewWheelEvent(wheelID uuid.UUID, eventType EventType, payload interface{}) (*WheelEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &WheelEvent{
		ID:        uuid.New().String(),
		WheelID:   wheelID.String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}
