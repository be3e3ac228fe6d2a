package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshua-takyi/whosin/internal/expiry"
	"github.com/joshua-takyi/whosin/internal/helpers"
	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/joshua-takyi/whosin/internal/signature"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultPageSize matches the six cards of the public listing page.
	DefaultPageSize = 6
	MaxPageSize     = 50

	eventIDBytes = 16
)

var tracer = otel.Tracer("github.com/joshua-takyi/whosin/internal/services")

type EventService struct {
	eventRepo models.EventRepo
	verifier  *signature.Verifier
	policy    expiry.Policy
	logger    *slog.Logger
	now       func() time.Time
}

func NewEventService(eventRepo models.EventRepo, verifier *signature.Verifier, policy expiry.Policy, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		eventRepo: eventRepo,
		verifier:  verifier,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

func (es *EventService) CreateEvent(ctx context.Context, env models.EventEnvelope) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "EventService.CreateEvent")
	defer span.End()

	if err := models.Validate.Struct(env); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidPayload, err)
	}
	// the signature covers the fields exactly as sent, so sanitize afterwards
	if err := es.verifier.Check(env.Signature, env.EventData, env.Timestamp, env.UserID); err != nil {
		return nil, err
	}
	payload := env.EventData
	payload.Sanitize()
	if err := models.Validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidPayload, err)
	}

	id, err := helpers.RandomToken(eventIDBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate event id: %w", err)
	}
	event := &models.Event{
		ID:           id,
		Name:         payload.Name,
		Date:         payload.Date,
		Time:         payload.Time,
		Place:        payload.Place,
		LocationType: payload.LocationType,
		Emoji:        payload.Emoji,
		Description:  payload.Description,
		Private:      payload.Private,
		CreatorID:    env.UserID,
		// stores keep millisecond precision
		CreatedAt: es.now().UTC().Truncate(time.Millisecond),
		Attendees: []models.Attendee{},
	}
	if err := es.eventRepo.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("event.id", event.ID))
	es.logger.Info("event created", "event_id", event.ID, "private", event.Private)
	return event, nil
}

func (es *EventService) GetEvent(ctx context.Context, id string) (*models.EventView, error) {
	ctx, span := tracer.Start(ctx, "EventService.GetEvent")
	defer span.End()

	if id == "" {
		return nil, models.ErrEventNotFound
	}
	event, err := es.eventRepo.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := es.now()
	return &models.EventView{
		Event:            event,
		RemainingSeconds: es.policy.Remaining(event.CreatedAt, now),
		Expired:          es.policy.Expired(event.CreatedAt, now),
	}, nil
}

// ListPublicEvents returns one page of non-private events, newest first.
// page is 1-based; a non-positive limit selects DefaultPageSize.
func (es *EventService) ListPublicEvents(ctx context.Context, page, limit int) ([]*models.Event, int, error) {
	ctx, span := tracer.Start(ctx, "EventService.ListPublicEvents")
	defer span.End()

	if page < 1 {
		return nil, 0, fmt.Errorf("%w: page must be >= 1", models.ErrInvalidPayload)
	}
	limit = PageLimit(limit)
	return es.eventRepo.ListPublicEvents(ctx, (page-1)*limit, limit)
}

// PageLimit clamps a requested page size into [1, MaxPageSize].
func PageLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
