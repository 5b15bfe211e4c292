package spin

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws/aws-ops-wheel-sub000/internal/models"
	"github.com/aws/aws-ops-wheel-sub000/internal/wheel"
)

type fakeClient struct {
	mu           sync.Mutex
	wheel        models.Wheel
	participants []models.Participant
	suggestion   models.SelectionOutcome
	suggestErr   error
	suggestCalls int
	recorded     []uuid.UUID
	refreshes    int
}

func (c *fakeClient) GetWheel(ctx context.Context, wheelID uuid.UUID) (models.Wheel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
	return c.wheel, nil
}

func (c *fakeClient) ListParticipants(ctx context.Context, wheelID uuid.UUID) ([]models.Participant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participants, nil
}

func (c *fakeClient) Suggest(ctx context.Context, wheelID uuid.UUID) (models.SelectionOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suggestCalls++
	return c.suggestion, c.suggestErr
}

func (c *fakeClient) RecordSelection(ctx context.Context, wheelID, participantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorded = append(c.recorded, participantID)
	return nil
}

func (c *fakeClient) SetRigging(ctx context.Context, wheelID, participantID uuid.UUID, hidden bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wheel.Rigging = &models.Rigging{ParticipantID: participantID, Hidden: hidden}
	return nil
}

func (c *fakeClient) ClearRigging(ctx context.Context, wheelID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wheel.Rigging = nil
	return nil
}

func (c *fakeClient) ResetWeights(ctx context.Context, wheelID uuid.UUID) error {
	return nil
}

func (c *fakeClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suggestCalls
}

type settledEvent struct {
	participant models.Participant
	rigged      bool
	hidden      bool
}

type recordingListener struct {
	mu      sync.Mutex
	settled []settledEvent
	failed  []error
}

func (l *recordingListener) SpinSettled(p models.Participant, rigged, hidden bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settled = append(l.settled, settledEvent{participant: p, rigged: rigged, hidden: hidden})
}

func (l *recordingListener) SpinFailed(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed = append(l.failed, err)
}

func (l *recordingListener) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.settled), len(l.failed)
}

func newTestSession(t *testing.T, client *fakeClient, listener Listener) *Session {
	t.Helper()
	sectors := wheel.NewSectorMap(rand.New(rand.NewSource(5)))
	resolver := NewLinearResolver(rand.New(rand.NewSource(5)))
	s, err := NewSession(context.Background(), client, client.wheel.ID, sectors, resolver, nil, listener)
	require.NoError(t, err)
	return s
}

func fourParticipantClient() *fakeClient {
	c := &fakeClient{wheel: models.Wheel{ID: uuid.New(), Name: "office"}}
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		c.participants = append(c.participants, models.Participant{
			ID: uuid.New(), WheelID: c.wheel.ID, Name: name, Weight: 1,
		})
	}
	return c
}

// pump drives frames until the predicate holds, giving the outcome goroutine
// time to deliver between frames.
func pump(t *testing.T, s *Session, cond func(Frame) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		return cond(s.Advance(frame))
	}, 2*time.Second, time.Millisecond)
}

func TestSpinSettlesOnSuggestedParticipant(t *testing.T) {
	client := fourParticipantClient()
	client.suggestion = models.SelectionOutcome{ParticipantID: client.participants[1].ID}
	listener := &recordingListener{}
	s := newTestSession(t, client, listener)

	require.NoError(t, s.Spin(context.Background()))

	pump(t, s, func(f Frame) bool { return f.Phase == PhaseSettled })

	winner, ok := s.Winner()
	require.True(t, ok)
	assert.Equal(t, client.participants[1].ID, winner.ID)

	settled, failed := listener.counts()
	assert.Equal(t, 1, settled)
	assert.Zero(t, failed)
}

func TestSpinEmptyWheel(t *testing.T) {
	client := &fakeClient{wheel: models.Wheel{ID: uuid.New(), Name: "empty"}}
	s := newTestSession(t, client, nil)

	assert.ErrorIs(t, s.Spin(context.Background()), ErrWheelEmpty)
	assert.Zero(t, client.calls())
}

func TestDoubleSpinIsSingleFlight(t *testing.T) {
	client := fourParticipantClient()
	client.suggestion = models.SelectionOutcome{ParticipantID: client.participants[0].ID}
	listener := &recordingListener{}
	s := newTestSession(t, client, listener)

	require.NoError(t, s.Spin(context.Background()))
	assert.ErrorIs(t, s.Spin(context.Background()), ErrSpinInProgress)

	// Mid-animation attempts are rejected too.
	pump(t, s, func(f Frame) bool { return f.Phase == PhaseApproaching })
	assert.ErrorIs(t, s.Spin(context.Background()), ErrSpinInProgress)

	pump(t, s, func(f Frame) bool { return f.Phase == PhaseSettled })

	assert.Equal(t, 1, client.calls())
	settled, _ := listener.counts()
	assert.Equal(t, 1, settled)
}

func TestStaleOutcomeFailsSpin(t *testing.T) {
	client := fourParticipantClient()
	// The backend answers with a participant removed since the last refresh.
	client.suggestion = models.SelectionOutcome{ParticipantID: uuid.New()}
	listener := &recordingListener{}
	s := newTestSession(t, client, listener)

	require.NoError(t, s.Spin(context.Background()))

	require.Eventually(t, func() bool {
		s.Advance(frame)
		_, failed := listener.counts()
		return failed == 1
	}, 2*time.Second, time.Millisecond)

	listener.mu.Lock()
	err := listener.failed[0]
	listener.mu.Unlock()
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	// The machine is back to idle and spinnable.
	f := s.Advance(frame)
	assert.Equal(t, PhaseIdle, f.Phase)
	assert.NoError(t, s.Spin(context.Background()))
}

func TestSuggestErrorFailsSpin(t *testing.T) {
	client := fourParticipantClient()
	client.suggestErr = errors.New("backend unavailable")
	listener := &recordingListener{}
	s := newTestSession(t, client, listener)

	require.NoError(t, s.Spin(context.Background()))

	require.Eventually(t, func() bool {
		s.Advance(frame)
		_, failed := listener.counts()
		return failed == 1
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, PhaseIdle, s.Advance(frame).Phase)
}

func TestChooseRecordsWinnerAndRefreshes(t *testing.T) {
	client := fourParticipantClient()
	client.suggestion = models.SelectionOutcome{ParticipantID: client.participants[2].ID}
	s := newTestSession(t, client, nil)

	require.NoError(t, s.Spin(context.Background()))
	pump(t, s, func(f Frame) bool { return f.Phase == PhaseSettled })

	before := func() int {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.refreshes
	}()

	chosen, err := s.Choose(context.Background())
	require.NoError(t, err)
	assert.Equal(t, client.participants[2].ID, chosen.ID)

	client.mu.Lock()
	recorded := append([]uuid.UUID(nil), client.recorded...)
	after := client.refreshes
	client.mu.Unlock()
	require.Len(t, recorded, 1)
	assert.Equal(t, chosen.ID, recorded[0])
	assert.Greater(t, after, before, "choose refetches the wheel for shifted weights")

	_, err = s.Choose(context.Background())
	assert.ErrorIs(t, err, ErrNothingToChoose)
}

func TestChooseBeforeSettle(t *testing.T) {
	client := fourParticipantClient()
	s := newTestSession(t, client, nil)

	_, err := s.Choose(context.Background())
	assert.ErrorIs(t, err, ErrNothingToChoose)
}

func TestUnrigWithoutRiggingIsNoOp(t *testing.T) {
	client := fourParticipantClient()
	s := newTestSession(t, client, nil)

	before := func() int {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.refreshes
	}()

	require.NoError(t, s.Unrig(context.Background()))

	client.mu.Lock()
	after := client.refreshes
	client.mu.Unlock()
	assert.Equal(t, before, after, "unrig on an unrigged wheel makes no requests")
}

func TestRigThenUnrigRoundTrip(t *testing.T) {
	client := fourParticipantClient()
	s := newTestSession(t, client, nil)

	require.NoError(t, s.Rig(context.Background(), client.participants[0].ID, true))
	w := s.Wheel()
	require.True(t, w.Rigged())
	assert.True(t, w.Rigging.Hidden)

	require.NoError(t, s.Unrig(context.Background()))
	unrigged := s.Wheel()
	assert.False(t, unrigged.Rigged())
}

// readbackListener reads session state from inside the settle callback, the
// way gateway listeners running on the frame loop do.
type readbackListener struct {
	session *Session
	mu      sync.Mutex
	settled []models.Participant
}

func (l *readbackListener) SpinSettled(p models.Participant, rigged, hidden bool) {
	w := l.session.Wheel()
	_, _ = l.session.Winner()

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = w
	l.settled = append(l.settled, p)
}

func (l *readbackListener) SpinFailed(err error) {
	_ = l.session.Wheel()
}

func TestSettleCallbackMayReadSessionBack(t *testing.T) {
	client := fourParticipantClient()
	client.suggestion = models.SelectionOutcome{ParticipantID: client.participants[0].ID}
	listener := &readbackListener{}
	s := newTestSession(t, client, listener)
	listener.session = s

	require.NoError(t, s.Spin(context.Background()))

	// A settle callback that re-enters the session must not wedge Advance.
	require.Eventually(t, func() bool {
		s.Advance(frame)
		listener.mu.Lock()
		defer listener.mu.Unlock()
		return len(listener.settled) == 1
	}, 5*time.Second, time.Millisecond)

	f := s.Advance(frame)
	assert.Equal(t, PhaseSettled, f.Phase)
}

func TestSettleReportsHiddenRig(t *testing.T) {
	client := fourParticipantClient()
	rigged := client.participants[3]
	client.wheel.Rigging = &models.Rigging{ParticipantID: rigged.ID, Hidden: true}
	client.suggestion = models.SelectionOutcome{ParticipantID: rigged.ID, Rigged: true}
	listener := &recordingListener{}
	s := newTestSession(t, client, listener)

	require.NoError(t, s.Spin(context.Background()))
	pump(t, s, func(f Frame) bool { return f.Phase == PhaseSettled })

	listener.mu.Lock()
	defer listener.mu.Unlock()
	require.Len(t, listener.settled, 1)
	assert.Equal(t, rigged.ID, listener.settled[0].participant.ID)
	assert.True(t, listener.settled[0].rigged)
	assert.True(t, listener.settled[0].hidden)
}

func TestClosedSessionRejectsSpin(t *testing.T) {
	client := fourParticipantClient()
	s := newTestSession(t, client, nil)

	s.Close()

	assert.ErrorIs(t, s.Spin(context.Background()), ErrSessionClosed)
	_, err := s.Choose(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}
