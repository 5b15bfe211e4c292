package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Command is a renderer → gateway message.
type Command struct {
	Type CommandType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandType represents the type of client command.
type CommandType string

const (
	CommandSpin         CommandType = "Spin"
	CommandChoose       CommandType = "Choose"
	CommandMultiSelect  CommandType = "MultiSelect"
	CommandChooseAll    CommandType = "ChooseAll"
	CommandChooseOne    CommandType = "ChooseOne"
	CommandToggleMute   CommandType = "ToggleMute"
	CommandRig          CommandType = "Rig"
	CommandUnrig        CommandType = "Unrig"
	CommandResetWeights CommandType = "ResetWeights"
)

// MultiSelectCommand requests a multi-select preview.
type MultiSelectCommand struct {
	Count int `json:"count" validate:"required,min=1,max=50"`
}

// ChooseOneCommand records one previewed participant.
type ChooseOneCommand struct {
	ParticipantID uuid.UUID `json:"participant_id" validate:"required"`
}

// RigCommand rigs the wheel for a participant.
type RigCommand struct {
	ParticipantID uuid.UUID `json:"participant_id" validate:"required"`
	Hidden        bool      `json:"hidden"`
}

var validate = validator.New()

// decodeCommandData unmarshals and validates a command payload.
func decodeCommandData(data json.RawMessage, out interface{}) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode command payload: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("invalid command payload: %w", err)
	}
	return nil
}
