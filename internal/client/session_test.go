package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/whosin/internal/expiry"
	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/joshua-takyi/whosin/internal/signature"
)

var sessionSecret = []byte("session-secret")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeAPI answers like the server: remainingSeconds comes from its own
// window and clock, which the session shares.
type fakeAPI struct {
	mu        sync.Mutex
	clock     *testClock
	window    time.Duration
	event     models.Event
	submits   []models.VoteEnvelope
	tokens    []string
	submitErr error
	// block, when set, holds SubmitRSVP until closed
	block chan struct{}
}

func (f *fakeAPI) GetEvent(_ context.Context, id string) (*models.EventView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.event.ID {
		return nil, models.ErrEventNotFound
	}
	ev := f.event
	ev.Attendees = append([]models.Attendee(nil), f.event.Attendees...)
	window := f.window
	if window == 0 {
		window = time.Hour
	}
	left := expiry.Remaining(ev.CreatedAt, f.clock.Now(), window)
	return &models.EventView{Event: &ev, RemainingSeconds: left, Expired: left == 0}, nil
}

func (f *fakeAPI) SubmitRSVP(_ context.Context, env models.VoteEnvelope, token string) ([]models.Attendee, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, env)
	f.tokens = append(f.tokens, token)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.event.Attendees = models.MergeAttendee(f.event.Attendees, env.EventData.Attendee(env.UserID))
	return f.event.Attendees, nil
}

func (f *fakeAPI) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

type staticIdentity string

func (s staticIdentity) GetOrCreateIdentity(context.Context) string { return string(s) }
func (s staticIdentity) Token(context.Context) string               { return "tok-" + string(s) }

func newTestSession(api *fakeAPI, voter string, created time.Time) *Session {
	if api.clock == nil {
		api.clock = &testClock{now: created.Add(10 * time.Second)}
	}
	s := NewSession(api, staticIdentity(voter), sessionSecret, api.event.ID)
	s.now = api.clock.Now
	return s
}

func testEvent(created time.Time) models.Event {
	return models.Event{ID: "e1", Name: "Game night", CreatorID: "creator", CreatedAt: created}
}

func TestSessionHappyPath(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	api := &fakeAPI{event: testEvent(created)}
	s := newTestSession(api, "voter-a", created)
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))
	assert.Equal(t, PhaseAwaitingChoice, s.Phase())
	assert.Equal(t, int64(3590), s.Remaining())

	require.NoError(t, s.Choose(models.StatusIn))
	assert.Equal(t, PhaseAwaitingName, s.Phase())

	list, err := s.Submit(ctx, "  ")
	require.NoError(t, err)
	assert.Equal(t, PhaseResolved, s.Phase())
	assert.Equal(t, []models.Attendee{{UserID: "voter-a", Name: models.DefaultDisplayName, Status: models.StatusIn}}, list)

	require.Len(t, api.submits, 1)
	env := api.submits[0]
	assert.True(t, signature.Verify(env.Signature, env.EventData, env.Timestamp, env.UserID, sessionSecret))
	assert.Equal(t, "tok-voter-a", api.tokens[0])

	// changing the vote replaces the entry
	require.NoError(t, s.Choose(models.StatusOut))
	list, err = s.Submit(ctx, "Ann")
	require.NoError(t, err)
	assert.Equal(t, []models.Attendee{{UserID: "voter-a", Name: "Ann", Status: models.StatusOut}}, list)
}

func TestSessionLoadExpired(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	api := &fakeAPI{event: testEvent(created)}
	s := newTestSession(api, "voter-a", created)
	api.clock.Set(created.Add(time.Hour))

	assert.ErrorIs(t, s.Load(context.Background()), models.ErrLinkExpired)
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Equal(t, int64(0), s.Remaining())
	assert.ErrorIs(t, s.Choose(models.StatusIn), ErrNotLoaded)
}

func TestSessionFollowsServerWindow(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	api := &fakeAPI{
		event:  testEvent(created),
		window: 2 * time.Hour,
		clock:  &testClock{now: created.Add(90 * time.Minute)},
	}
	s := newTestSession(api, "voter-a", created)
	ctx := context.Background()

	// past the default hour, but the server still accepts votes
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, int64(1800), s.Remaining())

	api.clock.Set(created.Add(90*time.Minute + 1000*time.Second))
	assert.Equal(t, int64(800), s.Remaining())

	require.NoError(t, s.Choose(models.StatusIn))
	_, err := s.Submit(ctx, "Late")
	require.NoError(t, err)
	assert.Equal(t, 1, api.submitCount())

	api.clock.Set(created.Add(2 * time.Hour))
	assert.Equal(t, int64(0), s.Remaining())
	assert.ErrorIs(t, s.Choose(models.StatusOut), models.ErrLinkExpired)
}

func TestSessionLoadNotFound(t *testing.T) {
	api := &fakeAPI{event: testEvent(time.Now())}
	s := NewSession(api, staticIdentity("v"), sessionSecret, "other")
	assert.ErrorIs(t, s.Load(context.Background()), models.ErrEventNotFound)
}

func TestSessionChooseValidation(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	api := &fakeAPI{event: testEvent(created)}
	s := newTestSession(api, "voter-a", created)

	assert.ErrorIs(t, s.Choose(models.StatusIn), ErrNotLoaded)
	require.NoError(t, s.Load(context.Background()))
	assert.ErrorIs(t, s.Choose("yes"), models.ErrInvalidPayload)

	_, err := s.Submit(context.Background(), "A")
	assert.ErrorIs(t, err, ErrNoChoice)

	api.clock.Set(created.Add(2 * time.Hour))
	assert.ErrorIs(t, s.Choose(models.StatusIn), models.ErrLinkExpired)
}

func TestSessionRejectsSelfRSVPWithoutNetwork(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	api := &fakeAPI{event: testEvent(created)}
	s := newTestSession(api, "creator", created)

	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Choose(models.StatusIn))
	_, err := s.Submit(context.Background(), "Me")
	assert.ErrorIs(t, err, models.ErrSelfRSVPForbidden)
	assert.Equal(t, 0, api.submitCount())
	assert.Equal(t, PhaseAwaitingName, s.Phase())
}

func TestSessionFailureReturnsToAwaitingName(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	api := &fakeAPI{event: testEvent(created), submitErr: ErrNetworkFailure}
	s := newTestSession(api, "voter-a", created)

	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Choose(models.StatusMaybe))
	_, err := s.Submit(context.Background(), "A")
	assert.ErrorIs(t, err, ErrNetworkFailure)
	assert.Equal(t, PhaseAwaitingName, s.Phase())

	api.mu.Lock()
	api.submitErr = nil
	api.mu.Unlock()
	_, err = s.Submit(context.Background(), "A")
	require.NoError(t, err)
}

func TestSessionSingleSubmissionInFlight(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	api := &fakeAPI{event: testEvent(created), block: make(chan struct{})}
	s := newTestSession(api, "voter-a", created)

	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Choose(models.StatusIn))

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "A")
		done <- err
	}()

	require.Eventually(t, func() bool { return s.Phase() == PhaseSubmitting }, time.Second, time.Millisecond)
	_, err := s.Submit(context.Background(), "A")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.ErrorIs(t, s.Choose(models.StatusOut), ErrSubmissionInFlight)

	close(api.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.submitCount())
}
