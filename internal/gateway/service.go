package gateway

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/aws/aws-ops-wheel-sub000/internal/audio"
	"github.com/aws/aws-ops-wheel-sub000/internal/models"
	"github.com/aws/aws-ops-wheel-sub000/internal/multiselect"
	"github.com/aws/aws-ops-wheel-sub000/internal/spin"
	"github.com/aws/aws-ops-wheel-sub000/internal/wheel"
)

// DefaultFrameInterval paces the tick loop at a nominal 60 fps.
const DefaultFrameInterval = time.Second / 60

// WheelAPI is everything the gateway's sessions and coordinators need from
// the external backend.
type WheelAPI interface {
	spin.OutcomeClient
	SuggestMulti(ctx context.Context, wheelID uuid.UUID, count int, commit bool) (models.MultiSelectionOutcome, error)
}

// Service ties wheel sessions to renderer connections. It runs one frame
// ticker for all live views, advances each session exactly once per tick,
// and routes client commands into the session or coordinator.
type Service struct {
	mu            sync.Mutex
	api           WheelAPI
	clock         clockwork.Clock
	feedback      *audio.Feedback
	frameInterval time.Duration
	cm            *ConnectionManager
	rng           *rand.Rand

	views map[uuid.UUID]*wheelView
}

type wheelView struct {
	session   *spin.Session
	multi     *multiselect.Coordinator
	lastPhase spin.Phase
}

// NewService creates the gateway service. The connection manager is created
// by the service so command routing wires back to it.
func NewService(api WheelAPI, clock clockwork.Clock, feedback *audio.Feedback, frameInterval time.Duration, connConfig ConnectionConfig) *Service {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	s := &Service{
		api:           api,
		clock:         clock,
		feedback:      feedback,
		frameInterval: frameInterval,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		views:         make(map[uuid.UUID]*wheelView),
	}
	s.cm = NewConnectionManager(connConfig, s)
	return s
}

// ConnectionManager exposes the manager for the HTTP handler.
func (s *Service) ConnectionManager() *ConnectionManager {
	return s.cm
}

// Run drives broadcasting and the frame loop until ctx is done.
func (s *Service) Run(ctx context.Context) {
	go s.cm.Start(ctx)

	ticker := s.clock.NewTicker(s.frameInterval)
	defer ticker.Stop()

	last := s.clock.Now()
	log.Info().Dur("frame_interval", s.frameInterval).Msg("frame loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("frame loop stopped")
			s.closeAll()
			return
		case <-ticker.Chan():
			now := s.clock.Now()
			s.advanceAll(now.Sub(last))
			last = now
		}
	}
}

// advanceAll moves every live view forward by one frame and broadcasts the
// resulting frames to connected renderers. The click feedback's debounce
// window is paced here, once per frame, not once per view.
func (s *Service) advanceAll(delta time.Duration) {
	s.mu.Lock()
	views := make(map[uuid.UUID]*wheelView, len(s.views))
	for id, v := range s.views {
		views[id] = v
	}
	s.mu.Unlock()

	if s.feedback != nil {
		s.feedback.Advance(delta)
	}

	for wheelID, view := range views {
		frame := view.session.Advance(delta)
		// Idle and settled frames are static; broadcast each at most once.
		if frame.Phase == view.lastPhase && (frame.Phase == spin.PhaseIdle || frame.Phase == spin.PhaseSettled) {
			continue
		}
		view.lastPhase = frame.Phase

		if !s.cm.HasConnections(wheelID) {
			continue
		}
		s.broadcast(wheelID, EventTypeFrame, FramePayload{
			Phase:     frame.Phase,
			Angle:     frame.Angle,
			DrawAngle: frame.DrawAngle,
			Sector:    frame.Sector,
		})
	}
}

// ViewFor returns the live view for a wheel, creating it on first use.
func (s *Service) ViewFor(ctx context.Context, wheelID uuid.UUID) (*spin.Session, error) {
	view, err := s.viewFor(ctx, wheelID)
	if err != nil {
		return nil, err
	}
	return view.session, nil
}

func (s *Service) viewFor(ctx context.Context, wheelID uuid.UUID) (*wheelView, error) {
	s.mu.Lock()
	if view, ok := s.views[wheelID]; ok {
		s.mu.Unlock()
		return view, nil
	}
	rng := rand.New(rand.NewSource(s.rng.Int63()))
	s.mu.Unlock()

	sectors := wheel.NewSectorMap(rng)
	resolver := spin.NewLinearResolver(rng)
	events := &sessionEvents{svc: s, wheelID: wheelID}

	session, err := spin.NewSession(ctx, s.api, wheelID, sectors, resolver, s.feedback, events)
	if err != nil {
		return nil, err
	}

	multi := multiselect.NewCoordinator(s.api, sectors, &broadcastOpener{svc: s, wheelID: wheelID}, s.clock, wheelID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.views[wheelID]; ok {
		// Lost the race; use the one already registered.
		session.Close()
		return existing, nil
	}
	view := &wheelView{session: session, multi: multi, lastPhase: spin.PhaseIdle}
	s.views[wheelID] = view
	return view, nil
}

func (s *Service) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, view := range s.views {
		view.session.Close()
	}
	s.views = make(map[uuid.UUID]*wheelView)
}

// StatePayload builds the snapshot renderers draw the resting wheel from.
func (s *Service) StatePayload(session *spin.Session) WheelStatePayload {
	participants := session.Sectors().Participants()
	percentages := wheel.SelectionPercentages(participants)
	byString := make(map[string]float64, len(percentages))
	for id, pct := range percentages {
		byString[id.String()] = pct
	}
	return WheelStatePayload{
		Wheel:        session.Wheel(),
		Participants: participants,
		Percentages:  byString,
		SectorSize:   session.Sectors().SectorSize(),
		BaseOffset:   session.Sectors().BaseOffset(),
	}
}

func (s *Service) broadcast(wheelID uuid.UUID, eventType EventType, payload interface{}) {
	event, err := NewWheelEvent(wheelID, eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("wheel_id", wheelID.String()).Msg("failed to build event")
		return
	}
	s.cm.BroadcastToWheel(wheelID, event)
}

func (s *Service) broadcastState(session *spin.Session) {
	s.broadcast(session.WheelID(), EventTypeWheelState, s.StatePayload(session))
}

// sessionEvents adapts spin session callbacks onto the broadcast channel.
// Callbacks fire on the shared frame loop goroutine, so they must never call
// back into the session.
type sessionEvents struct {
	svc     *Service
	wheelID uuid.UUID
}

func (e *sessionEvents) SpinSettled(p models.Participant, rigged, hidden bool) {
	// Hidden rigs animate identically to visible ones; only the
	// notification stays quiet.
	e.svc.broadcast(e.wheelID, EventTypeSpinSettled, SpinSettledPayload{
		Participant: p,
		Rigged:      rigged && !hidden,
	})
}

func (e *sessionEvents) SpinFailed(err error) {
	e.svc.broadcast(e.wheelID, EventTypeSpinFailed, SpinFailedPayload{Error: err.Error()})
}

// broadcastOpener opens external URLs by telling the renderers to do it.
// Events arrive pre-staggered by the multi-select coordinator.
type broadcastOpener struct {
	svc     *Service
	wheelID uuid.UUID
}

func (o *broadcastOpener) OpenURL(url string) error {
	o.svc.broadcast(o.wheelID, EventTypeOpenURL, OpenURLPayload{URL: url})
	return nil
}
