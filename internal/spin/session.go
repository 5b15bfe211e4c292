package spin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aws/aws-ops-wheel-sub000/internal/models"
	"github.com/aws/aws-ops-wheel-sub000/internal/wheel"
)

var (
	// ErrWheelEmpty rejects a spin on a wheel with no participants.
	ErrWheelEmpty = errors.New("wheel has no participants to spin")

	// ErrNothingToChoose means choose was requested before any spin settled.
	ErrNothingToChoose = errors.New("no settled participant to choose")

	// ErrSessionClosed means the view was torn down.
	ErrSessionClosed = errors.New("session is closed")
)

// OutcomeClient is the slice of the external wheel API the session consumes.
type OutcomeClient interface {
	GetWheel(ctx context.Context, wheelID uuid.UUID) (models.Wheel, error)
	ListParticipants(ctx context.Context, wheelID uuid.UUID) ([]models.Participant, error)
	Suggest(ctx context.Context, wheelID uuid.UUID) (models.SelectionOutcome, error)
	RecordSelection(ctx context.Context, wheelID, participantID uuid.UUID) error
	SetRigging(ctx context.Context, wheelID, participantID uuid.UUID, hidden bool) error
	ClearRigging(ctx context.Context, wheelID uuid.UUID) error
	ResetWeights(ctx context.Context, wheelID uuid.UUID) error
}

// TickSink consumes sector boundary crossings. The audio click feedback
// implements this; whoever drives the frame loop paces its debounce window.
type TickSink interface {
	Boundary()
}

// Listener receives session lifecycle events. Callbacks fire on the
// goroutine driving Advance, after the session lock is released, so a
// listener may read the session back.
type Listener interface {
	SpinSettled(p models.Participant, rigged, hidden bool)
	SpinFailed(err error)
}

// Frame is the per-tick output a renderer draws from.
type Frame struct {
	Phase     Phase   `json:"phase"`
	Angle     float64 `json:"angle"`
	DrawAngle float64 `json:"draw_angle"`
	Sector    int     `json:"sector"`
}

type outcomeResult struct {
	outcome models.SelectionOutcome
	err     error
}

// Session owns one live wheel view: the participant snapshot, the sector
// map, the animation machine and the single-flight spin guard. Outcome
// requests run asynchronously and are handed into the tick loop through a
// channel, so the frame goroutine never blocks on the network.
type Session struct {
	mu       sync.Mutex
	client   OutcomeClient
	wheelID  uuid.UUID
	wheel    models.Wheel
	sectors  *wheel.SectorMap
	resolver OutcomeResolver
	machine  *Machine
	ticks    TickSink
	listener Listener

	requestInFlight bool
	outcomeCh       chan outcomeResult
	gen             uint64
	closed          bool

	winner         *models.Participant
	settledEmitted bool
}

// NewSession builds a session and loads the wheel and its participants. The
// tick sink and listener may be nil.
func NewSession(ctx context.Context, client OutcomeClient, wheelID uuid.UUID, sectors *wheel.SectorMap, resolver OutcomeResolver, ticks TickSink, listener Listener) (*Session, error) {
	s := &Session{
		client:    client,
		wheelID:   wheelID,
		sectors:   sectors,
		resolver:  resolver,
		ticks:     ticks,
		listener:  listener,
		outcomeCh: make(chan outcomeResult, 1),
	}
	s.machine = NewMachine(func() {
		if s.ticks != nil {
			s.ticks.Boundary()
		}
	})

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// WheelID returns the identity of the wheel this session views.
func (s *Session) WheelID() uuid.UUID {
	return s.wheelID
}

// Wheel returns the current wheel snapshot.
func (s *Session) Wheel() models.Wheel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wheel
}

// Sectors exposes the sector map for renderers and coordinators.
func (s *Session) Sectors() *wheel.SectorMap {
	return s.sectors
}

// Refresh refetches the wheel and its participant list wholesale and
// repopulates the sector map, rolling a new base rotation offset. Called on
// construction and after any mutation.
func (s *Session) Refresh(ctx context.Context) error {
	w, err := s.client.GetWheel(ctx, s.wheelID)
	if err != nil {
		return err
	}
	participants, err := s.client.ListParticipants(ctx, s.wheelID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.wheel = w
	s.sectors.Populate(participants)
	s.mu.Unlock()

	log.Debug().
		Str("wheel_id", s.wheelID.String()).
		Int("participants", len(participants)).
		Msg("wheel view refreshed")
	return nil
}

// Spin requests an outcome from the backend and, once it arrives, animates
// toward it. Rejected while a spin is active or an outcome request is in
// flight, and on empty wheels. Never blocks: the request runs on its own
// goroutine and the next Advance picks the result up.
func (s *Session) Spin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.requestInFlight || s.spinActiveLocked() {
		return ErrSpinInProgress
	}
	if s.sectors.Len() == 0 {
		return ErrWheelEmpty
	}

	s.requestInFlight = true
	gen := s.gen
	go s.fetchOutcome(ctx, gen)

	log.Info().Str("wheel_id", s.wheelID.String()).Msg("spin requested")
	return nil
}

func (s *Session) fetchOutcome(ctx context.Context, gen uint64) {
	outcome, err := s.client.Suggest(ctx, s.wheelID)

	s.mu.Lock()
	stale := s.closed || gen != s.gen
	s.mu.Unlock()
	if stale {
		// Response arrived after teardown; ignore it.
		log.Debug().Str("wheel_id", s.wheelID.String()).Msg("dropping outcome for torn-down view")
		return
	}

	s.outcomeCh <- outcomeResult{outcome: outcome, err: err}
}

// Advance drives one ticker frame: it drains any outcome that arrived since
// the last frame and advances the animation. Returns the frame for the
// renderer. Listener callbacks fire with the session lock released; the
// frame loop must never block on a listener reading the session back.
func (s *Session) Advance(delta time.Duration) Frame {
	s.mu.Lock()

	var spinErr error
	select {
	case res := <-s.outcomeCh:
		s.requestInFlight = false
		spinErr = s.beginSpinLocked(res)
	default:
	}

	phase, angle := s.machine.Advance(delta)

	var settled *models.Participant
	var rigged, hidden bool
	if phase == PhaseSettled && !s.settledEmitted {
		s.settledEmitted = true
		if p, ok := s.sectors.ParticipantAt(s.machine.Target().Index); ok {
			s.winner = &p
			settled = &p
			rigged = s.machine.Target().Rigged
			hidden = s.wheel.Rigging != nil && s.wheel.Rigging.Hidden
		}
	}

	frame := Frame{
		Phase:     phase,
		Angle:     angle,
		DrawAngle: angle + s.sectors.BaseOffset() + wheel.DrawingOffset,
		Sector:    s.sectors.SelectedIndex(angle),
	}
	s.mu.Unlock()

	if spinErr != nil {
		log.Error().Err(spinErr).Str("wheel_id", s.wheelID.String()).Msg("spin aborted")
		if s.listener != nil {
			s.listener.SpinFailed(spinErr)
		}
	}
	if settled != nil {
		log.Info().
			Str("wheel_id", s.wheelID.String()).
			Str("participant_id", settled.ID.String()).
			Bool("rigged", rigged).
			Msg("spin settled")
		if s.listener != nil {
			s.listener.SpinSettled(*settled, rigged, hidden)
		}
	}
	return frame
}

// beginSpinLocked turns a fetched outcome into a running animation. On any
// failure the machine returns to idle and the error is handed back for the
// listener once the lock is released.
func (s *Session) beginSpinLocked(res outcomeResult) error {
	if res.err != nil {
		s.machine.Reset()
		return res.err
	}

	target, err := s.resolver.Resolve(s.sectors, res.outcome)
	if err != nil {
		s.machine.Reset()
		return err
	}

	if err := s.machine.Begin(target, s.sectors.SectorSize()); err != nil {
		s.machine.Reset()
		return err
	}
	s.winner = nil
	s.settledEmitted = false
	return nil
}

// Winner returns the settled participant of the most recent spin, if any.
func (s *Session) Winner() (models.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.winner == nil {
		return models.Participant{}, false
	}
	return *s.winner, true
}

// Choose records the settled winner with the backend and resets the view for
// the next spin. Disabled while a spin is in progress.
func (s *Session) Choose(ctx context.Context) (models.Participant, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.Participant{}, ErrSessionClosed
	}
	if s.requestInFlight || s.spinActiveLocked() {
		s.mu.Unlock()
		return models.Participant{}, ErrSpinInProgress
	}
	if s.winner == nil {
		s.mu.Unlock()
		return models.Participant{}, ErrNothingToChoose
	}
	chosen := *s.winner
	s.mu.Unlock()

	if err := s.client.RecordSelection(ctx, s.wheelID, chosen.ID); err != nil {
		return models.Participant{}, err
	}

	s.mu.Lock()
	s.winner = nil
	s.machine.Reset()
	s.mu.Unlock()

	// Selection shifts weights server-side.
	if err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Str("wheel_id", s.wheelID.String()).Msg("refresh after choose failed")
	}
	return chosen, nil
}

// Rig sets the rigging entry to the given participant, replacing any
// existing one. Rigging is exclusive per wheel.
func (s *Session) Rig(ctx context.Context, participantID uuid.UUID, hidden bool) error {
	if err := s.client.SetRigging(ctx, s.wheelID, participantID, hidden); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Unrig clears the rigging entry. Calling it when nothing is rigged is a
// no-op with no network effects.
func (s *Session) Unrig(ctx context.Context) error {
	s.mu.Lock()
	rigged := s.wheel.Rigged()
	s.mu.Unlock()
	if !rigged {
		return nil
	}

	if err := s.client.ClearRigging(ctx, s.wheelID); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// ResetWeights asks the backend to reset accumulated weights.
func (s *Session) ResetWeights(ctx context.Context) error {
	if err := s.client.ResetWeights(ctx, s.wheelID); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Close tears the view down. Outcome responses still in flight are ignored
// once closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	s.machine.Reset()
}

func (s *Session) spinActiveLocked() bool {
	phase := s.machine.Phase()
	return phase != PhaseIdle && phase != PhaseSettled
}
