package gateway

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/aws/aws-ops-wheel-sub000/internal/spin"
)

// HandleCommand routes one client command into the wheel's session or
// multi-select coordinator. Runs on the connection's read pump goroutine;
// everything it calls is either non-blocking or a backend request the
// renderer expects to wait on.
func (s *Service) HandleCommand(conn *Connection, cmd Command) {
	ctx := context.Background()

	view, err := s.viewFor(ctx, conn.WheelID)
	if err != nil {
		s.reject(conn, cmd.Type, err)
		return
	}

	switch cmd.Type {
	case CommandSpin:
		if err := view.session.Spin(ctx); err != nil {
			if errors.Is(err, spin.ErrSpinInProgress) {
				// Double-invocation is a silent no-op; exactly one outcome
				// request stays in flight.
				log.Debug().Str("wheel_id", conn.WheelID.String()).Msg("spin ignored, already spinning")
				return
			}
			s.reject(conn, cmd.Type, err)
		}

	case CommandChoose:
		chosen, err := view.session.Choose(ctx)
		if err != nil {
			s.reject(conn, cmd.Type, err)
			return
		}
		s.broadcast(conn.WheelID, EventTypeParticipantChosen, ParticipantChosenPayload{Participant: chosen})
		s.broadcastState(view.session)

	case CommandMultiSelect:
		var req MultiSelectCommand
		if err := decodeCommandData(cmd.Data, &req); err != nil {
			s.reject(conn, cmd.Type, err)
			return
		}
		previewed, err := view.multi.Preview(ctx, req.Count)
		if err != nil {
			s.reject(conn, cmd.Type, err)
			return
		}
		s.broadcast(conn.WheelID, EventTypeMultiPreview, MultiPreviewPayload{Participants: previewed})

	case CommandChooseAll:
		if err := view.multi.ConfirmAll(ctx); err != nil {
			s.reject(conn, cmd.Type, err)
			return
		}
		if err := view.session.Refresh(ctx); err != nil {
			log.Warn().Err(err).Str("wheel_id", conn.WheelID.String()).Msg("refresh after multi-select commit failed")
		}
		s.broadcastState(view.session)

	case CommandChooseOne:
		var req ChooseOneCommand
		if err := decodeCommandData(cmd.Data, &req); err != nil {
			s.reject(conn, cmd.Type, err)
			return
		}
		if err := view.multi.ChooseOne(ctx, req.ParticipantID); err != nil {
			s.reject(conn, cmd.Type, err)
		}

	case CommandToggleMute:
		muted, err := s.feedback.Toggle()
		if err != nil {
			s.reject(conn, cmd.Type, err)
			return
		}
		s.broadcast(conn.WheelID, EventTypeMuteChanged, MuteChangedPayload{Muted: muted})

	case CommandRig:
		var req RigCommand
		if err := decodeCommandData(cmd.Data, &req); err != nil {
			s.reject(conn, cmd.Type, err)
			return
		}
		if err := view.session.Rig(ctx, req.ParticipantID, req.Hidden); err != nil {
			s.reject(conn, cmd.Type, err)
			return
		}
		s.broadcastState(view.session)

	case CommandUnrig:
		if err := view.session.Unrig(ctx); err != nil {
			s.reject(conn, cmd.Type, err)
			return
		}
		s.broadcastState(view.session)

	case CommandResetWeights:
		if err := view.session.ResetWeights(ctx); err != nil {
			s.reject(conn, cmd.Type, err)
			return
		}
		s.broadcastState(view.session)

	default:
		log.Warn().Str("command", string(cmd.Type)).Msg("unknown client command")
	}
}

func (s *Service) reject(conn *Connection, cmd CommandType, err error) {
	log.Warn().Err(err).Str("command", string(cmd)).Str("wheel_id", conn.WheelID.String()).Msg("command rejected")
	event, buildErr := NewWheelEvent(conn.WheelID, EventTypeCommandRejected, CommandRejectedPayload{
		Command: cmd,
		Reason:  err.Error(),
	})
	if buildErr != nil {
		log.Error().Err(buildErr).Msg("failed to build rejection event")
		return
	}
	s.cm.SendToConnection(conn, event)
}
