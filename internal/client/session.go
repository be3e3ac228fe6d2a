package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joshua-takyi/whosin/internal/expiry"
	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/joshua-takyi/whosin/internal/signature"
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrNoChoice           = errors.New("choose in, maybe or out first")
	ErrNotLoaded          = errors.New("event not loaded")
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingChoice
	PhaseAwaitingName
	PhaseSubmitting
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingChoice:
		return "awaiting-choice"
	case PhaseAwaitingName:
		return "awaiting-name"
	case PhaseSubmitting:
		return "submitting"
	case PhaseResolved:
		return "resolved"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// EventAPI is the part of APIClient a voting session needs.
type EventAPI interface {
	GetEvent(ctx context.Context, id string) (*models.EventView, error)
	SubmitRSVP(ctx context.Context, env models.VoteEnvelope, token string) ([]models.Attendee, error)
}

// IdentitySource is satisfied by *Provider.
type IdentitySource interface {
	GetOrCreateIdentity(ctx context.Context) string
	Token(ctx context.Context) string
}

// Session drives one voter through a single event's RSVP flow.
type Session struct {
	api      EventAPI
	identity IdentitySource
	secret   []byte
	eventID  string
	now      func() time.Time

	inFlight atomic.Bool

	mu        sync.Mutex
	phase     Phase
	event     *models.Event
	deadline  time.Time
	choice    models.RSVPStatus
	attendees []models.Attendee
}

func NewSession(api EventAPI, identity IdentitySource, secret []byte, eventID string) *Session {
	return &Session{
		api:      api,
		identity: identity,
		secret:   secret,
		eventID:  eventID,
		now:      time.Now,
	}
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Event() *models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.event
}

// Attendees returns the last authoritative list seen by the session.
func (s *Session) Attendees() []models.Attendee {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Attendee(nil), s.attendees...)
}

// Remaining derives the countdown from the wall clock on every call. The
// deadline comes from the server's remainingSeconds at the last load.
func (s *Session) Remaining() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining()
}

func (s *Session) remaining() int64 {
	if s.event == nil {
		return 0
	}
	return expiry.Until(s.deadline, s.now())
}

func (s *Session) setView(view *models.EventView) {
	s.event = view.Event
	s.deadline = expiry.Deadline(view.RemainingSeconds, s.now())
	if view.Expired {
		s.deadline = s.now()
	}
}

func (s *Session) Load(ctx context.Context) error {
	view, err := s.api.GetEvent(ctx, s.eventID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setView(view)
	s.attendees = view.Event.Attendees
	if s.remaining() == 0 {
		s.phase = PhaseIdle
		return models.ErrLinkExpired
	}
	s.phase = PhaseAwaitingChoice
	return nil
}

func (s *Session) Choose(status models.RSVPStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrInvalidPayload, status)
	}
	if s.inFlight.Load() {
		return ErrSubmissionInFlight
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case PhaseAwaitingChoice, PhaseAwaitingName, PhaseResolved:
	case PhaseSubmitting:
		return ErrSubmissionInFlight
	default:
		return ErrNotLoaded
	}
	if s.remaining() == 0 {
		return models.ErrLinkExpired
	}
	s.choice = status
	s.phase = PhaseAwaitingName
	return nil
}

// Submit signs and posts the chosen status under name. Only one call runs
// at a time; a concurrent call fails fast without touching the network.
func (s *Session) Submit(ctx context.Context, name string) ([]models.Attendee, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	if s.phase != PhaseAwaitingName {
		s.mu.Unlock()
		return nil, ErrNoChoice
	}
	event, choice := s.event, s.choice
	if s.remaining() == 0 {
		s.mu.Unlock()
		return nil, models.ErrLinkExpired
	}
	s.phase = PhaseSubmitting
	s.mu.Unlock()

	attendees, err := s.submit(ctx, event, choice, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.phase = PhaseAwaitingName
		return nil, err
	}
	s.phase = PhaseResolved
	s.attendees = attendees
	return append([]models.Attendee(nil), attendees...), nil
}

func (s *Session) submit(ctx context.Context, event *models.Event, choice models.RSVPStatus, name string) ([]models.Attendee, error) {
	voterID := s.identity.GetOrCreateIdentity(ctx)
	if voterID == event.CreatorID {
		return nil, models.ErrSelfRSVPForbidden
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultDisplayName
	}
	payload := models.VotePayload{EventID: event.ID, DisplayName: name, Status: choice}
	ts := s.now().UnixMilli()
	env := models.VoteEnvelope{
		EventData: payload,
		Signature: signature.Sign(payload, ts, voterID, s.secret),
		Timestamp: ts,
		UserID:    voterID,
	}

	attendees, err := s.api.SubmitRSVP(ctx, env, s.identity.Token(ctx))
	if err != nil {
		return nil, err
	}

	// the stored list is authoritative; fall back to the POST answer if
	// the re-read fails
	view, err := s.api.GetEvent(ctx, event.ID)
	if err == nil && view.Event != nil {
		attendees = view.Event.Attendees
		s.mu.Lock()
		s.setView(view)
		s.mu.Unlock()
	}
	return attendees, nil
}
