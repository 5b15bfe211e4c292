package multiselect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws/aws-ops-wheel-sub000/internal/models"
)

type fakeMultiClient struct {
	mu       sync.Mutex
	outcome  models.MultiSelectionOutcome
	err      error
	requests []struct {
		count  int
		commit bool
	}
	recorded []uuid.UUID
}

func (c *fakeMultiClient) SuggestMulti(ctx context.Context, wheelID uuid.UUID, count int, commit bool) (models.MultiSelectionOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, struct {
		count  int
		commit bool
	}{count, commit})
	return c.outcome, c.err
}

func (c *fakeMultiClient) RecordSelection(ctx context.Context, wheelID, participantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorded = append(c.recorded, participantID)
	return nil
}

type sliceSource struct {
	participants []models.Participant
}

func (s *sliceSource) ParticipantByID(id uuid.UUID) (models.Participant, bool) {
	for _, p := range s.participants {
		if p.ID == id {
			return p, true
		}
	}
	return models.Participant{}, false
}

func (s *sliceSource) Len() int {
	return len(s.participants)
}

type recordingOpener struct {
	mu   sync.Mutex
	urls []string
}

func (o *recordingOpener) OpenURL(url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, url)
	return nil
}

func (o *recordingOpener) opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.urls...)
}

func fiveParticipants() *sliceSource {
	src := &sliceSource{}
	for _, name := range []string{"alice", "bob", "carol", "dave", "erin"} {
		src.participants = append(src.participants, models.Participant{
			ID:     uuid.New(),
			Name:   name,
			URL:    "https://example.com/" + name,
			Weight: 1,
		})
	}
	return src
}

func TestPreviewResolvesOrderedResultSet(t *testing.T) {
	src := fiveParticipants()
	client := &fakeMultiClient{outcome: models.MultiSelectionOutcome{
		ParticipantIDs: []uuid.UUID{
			src.participants[3].ID,
			src.participants[0].ID,
			src.participants[2].ID,
		},
	}}
	c := NewCoordinator(client, src, &recordingOpener{}, clockwork.NewFakeClock(), uuid.New())

	got, err := c.Preview(context.Background(), 3)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "dave", got[0].Name)
	assert.Equal(t, "alice", got[1].Name)
	assert.Equal(t, "carol", got[2].Name)

	client.mu.Lock()
	defer client.mu.Unlock()
	require.Len(t, client.requests, 1)
	assert.Equal(t, 3, client.requests[0].count)
	assert.False(t, client.requests[0].commit, "preview must not commit weight changes")
}

func TestPreviewCountBounds(t *testing.T) {
	src := fiveParticipants()
	client := &fakeMultiClient{}
	c := NewCoordinator(client, src, &recordingOpener{}, clockwork.NewFakeClock(), uuid.New())

	for _, count := range []int{0, -1, 6, MaxCount + 1} {
		_, err := c.Preview(context.Background(), count)
		assert.ErrorIs(t, err, ErrBadCount, "count=%d", count)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Empty(t, client.requests)
}

func TestPreviewStaleParticipant(t *testing.T) {
	src := fiveParticipants()
	client := &fakeMultiClient{outcome: models.MultiSelectionOutcome{
		ParticipantIDs: []uuid.UUID{uuid.New()},
	}}
	c := NewCoordinator(client, src, &recordingOpener{}, clockwork.NewFakeClock(), uuid.New())

	_, err := c.Preview(context.Background(), 1)
	assert.ErrorIs(t, err, ErrStaleParticipant)
	assert.Empty(t, c.Previewed())
}

func TestConfirmAllCommitsOnceAndStaggersOpens(t *testing.T) {
	src := fiveParticipants()
	client := &fakeMultiClient{outcome: models.MultiSelectionOutcome{
		ParticipantIDs: []uuid.UUID{
			src.participants[0].ID,
			src.participants[1].ID,
			src.participants[2].ID,
		},
	}}
	opener := &recordingOpener{}
	clock := clockwork.NewFakeClock()
	c := NewCoordinator(client, src, opener, clock, uuid.New())

	_, err := c.Preview(context.Background(), 3)
	require.NoError(t, err)

	require.NoError(t, c.ConfirmAll(context.Background()))

	client.mu.Lock()
	require.Len(t, client.requests, 2)
	assert.True(t, client.requests[1].commit, "confirmation is the single committing request")
	assert.Equal(t, 3, client.requests[1].count)
	client.mu.Unlock()

	// First URL opens immediately, the rest one stagger interval apart.
	assert.Equal(t, []string{"https://example.com/alice"}, opener.opened())

	clock.Advance(OpenStagger)
	require.Eventually(t, func() bool { return len(opener.opened()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, "https://example.com/bob", opener.opened()[1])

	clock.Advance(OpenStagger)
	require.Eventually(t, func() bool { return len(opener.opened()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, "https://example.com/carol", opener.opened()[2])
}

func TestConfirmAllWithoutPreview(t *testing.T) {
	c := NewCoordinator(&fakeMultiClient{}, fiveParticipants(), &recordingOpener{}, clockwork.NewFakeClock(), uuid.New())

	assert.ErrorIs(t, c.ConfirmAll(context.Background()), ErrNoPreview)
}

func TestConfirmAllFailureKeepsPreviewForRetry(t *testing.T) {
	src := fiveParticipants()
	client := &fakeMultiClient{outcome: models.MultiSelectionOutcome{
		ParticipantIDs: []uuid.UUID{src.participants[0].ID},
	}}
	opener := &recordingOpener{}
	c := NewCoordinator(client, src, opener, clockwork.NewFakeClock(), uuid.New())

	_, err := c.Preview(context.Background(), 1)
	require.NoError(t, err)

	client.mu.Lock()
	client.err = errors.New("backend unavailable")
	client.mu.Unlock()

	require.Error(t, c.ConfirmAll(context.Background()))
	assert.Empty(t, opener.opened(), "nothing opens when the commit fails")
	require.Len(t, c.Previewed(), 1)

	client.mu.Lock()
	client.err = nil
	client.mu.Unlock()

	require.NoError(t, c.ConfirmAll(context.Background()))
	assert.Empty(t, c.Previewed(), "confirmation consumes the preview")
}

func TestConfirmAllSkipsEmptyURLs(t *testing.T) {
	src := fiveParticipants()
	src.participants[1].URL = ""
	client := &fakeMultiClient{outcome: models.MultiSelectionOutcome{
		ParticipantIDs: []uuid.UUID{
			src.participants[1].ID,
			src.participants[2].ID,
		},
	}}
	opener := &recordingOpener{}
	clock := clockwork.NewFakeClock()
	c := NewCoordinator(client, src, opener, clock, uuid.New())

	_, err := c.Preview(context.Background(), 2)
	require.NoError(t, err)
	require.NoError(t, c.ConfirmAll(context.Background()))

	clock.Advance(OpenStagger)
	require.Eventually(t, func() bool { return len(opener.opened()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "https://example.com/carol", opener.opened()[0])
}

func TestChooseOneRecordsWithoutSecondCommit(t *testing.T) {
	src := fiveParticipants()
	client := &fakeMultiClient{}
	c := NewCoordinator(client, src, &recordingOpener{}, clockwork.NewFakeClock(), uuid.New())

	target := src.participants[4].ID
	require.NoError(t, c.ChooseOne(context.Background(), target))

	client.mu.Lock()
	defer client.mu.Unlock()
	require.Len(t, client.recorded, 1)
	assert.Equal(t, target, client.recorded[0])
	assert.Empty(t, client.requests, "choose-one never re-commits the result set")
}
