package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshua-takyi/whosin/internal/expiry"
	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/joshua-takyi/whosin/internal/signature"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RSVPService accepts signed votes and reconciles them into an event's
// attendee list.
type RSVPService struct {
	eventRepo    models.EventRepo
	identity     *IdentityService
	verifier     *signature.Verifier
	policy       expiry.Policy
	requireToken bool
	logger       *slog.Logger
	now          func() time.Time
}

type RSVPOptions struct {
	// RequireVoterToken rejects votes whose bearer token does not name the
	// submitting voter.
	RequireVoterToken bool
}

func NewRSVPService(eventRepo models.EventRepo, identity *IdentityService, verifier *signature.Verifier, policy expiry.Policy, opts RSVPOptions, logger *slog.Logger) *RSVPService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RSVPService{
		eventRepo:    eventRepo,
		identity:     identity,
		verifier:     verifier,
		policy:       policy,
		requireToken: opts.RequireVoterToken,
		logger:       logger,
		now:          time.Now,
	}
}

// Submit runs a vote through validation, signature and token checks, the
// self-RSVP and expiry rules, then the atomic upsert. Any error leaves the
// stored attendee list untouched.
func (rs *RSVPService) Submit(ctx context.Context, env models.VoteEnvelope, bearer string) ([]models.Attendee, error) {
	ctx, span := tracer.Start(ctx, "RSVPService.Submit", trace.WithAttributes(
		attribute.String("event.id", env.EventData.EventID),
		attribute.String("rsvp.status", string(env.EventData.Status)),
	))
	defer span.End()

	attendees, err := rs.submit(ctx, env, bearer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return attendees, nil
}

func (rs *RSVPService) submit(ctx context.Context, env models.VoteEnvelope, bearer string) ([]models.Attendee, error) {
	if err := models.Validate.Struct(env); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidPayload, err)
	}
	if err := rs.verifier.Check(env.Signature, env.EventData, env.Timestamp, env.UserID); err != nil {
		return nil, err
	}
	if rs.requireToken {
		if err := rs.checkToken(bearer, env.UserID); err != nil {
			return nil, err
		}
	}

	event, err := rs.eventRepo.GetEventByID(ctx, env.EventData.EventID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID == env.UserID {
		return nil, models.ErrSelfRSVPForbidden
	}
	now := rs.now()
	if rs.policy.Expired(event.CreatedAt, now) {
		return nil, models.ErrLinkExpired
	}

	attendee := env.EventData.Attendee(env.UserID)
	attendees, err := rs.eventRepo.UpsertAttendee(ctx, event.ID, attendee, rs.policy.OpenAfter(now))
	if err != nil {
		if !errors.Is(err, models.ErrLinkExpired) && !errors.Is(err, models.ErrEventNotFound) {
			rs.logger.Error("failed to upsert attendee", "event_id", event.ID, "voter_id", env.UserID, "error", err)
		}
		return nil, err
	}

	if rs.identity != nil {
		rs.identity.Touch(ctx, env.UserID)
	}
	rs.logger.Info("rsvp recorded",
		"event_id", event.ID,
		"voter_id", env.UserID,
		"status", attendee.Status,
		"attendees", len(attendees),
	)
	return attendees, nil
}

func (rs *RSVPService) checkToken(bearer, voterID string) error {
	if rs.identity == nil {
		return models.ErrVoterTokenInvalid
	}
	claims, err := rs.identity.VerifyToken(bearer)
	if err != nil {
		return err
	}
	if !claims.IsOwner(voterID) {
		return models.ErrVoterTokenInvalid
	}
	return nil
}
