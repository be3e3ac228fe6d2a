package container

import (
	"log/slog"
	"time"

	"github.com/joshua-takyi/whosin/internal/config"
	"github.com/joshua-takyi/whosin/internal/expiry"
	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/joshua-takyi/whosin/internal/services"
	"github.com/joshua-takyi/whosin/internal/signature"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies
type Container struct {
	Logger *slog.Logger
	Config *config.Config
	// Redis backs the rate limiter when configured; nil otherwise.
	Redis *redis.Client

	EventService    *services.EventService
	RSVPService     *services.RSVPService
	IdentityService *services.IdentityService
}

// NewContainer creates a new dependency injection container
func NewContainer(
	logger *slog.Logger,
	cfg *config.Config,
	eventRepo models.EventRepo,
	voterRepo models.VoterRepo,
	redisClient *redis.Client,
) *Container {
	verifier := signature.NewVerifier([]byte(cfg.RSVPSecret), cfg.SignatureMaxSkew, time.Now)
	policy := expiry.NewPolicy(cfg.RSVPWindow)

	identityService := services.NewIdentityService(voterRepo, cfg.TokenSecret(), cfg.VoterTokenTTL, logger)
	eventService := services.NewEventService(eventRepo, verifier, policy, logger)
	rsvpService := services.NewRSVPService(eventRepo, identityService, verifier, policy,
		services.RSVPOptions{RequireVoterToken: cfg.RequireVoterToken}, logger)

	return &Container{
		Logger:          logger,
		Config:          cfg,
		Redis:           redisClient,
		EventService:    eventService,
		RSVPService:     rsvpService,
		IdentityService: identityService,
	}
}
