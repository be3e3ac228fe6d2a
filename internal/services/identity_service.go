package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joshua-takyi/whosin/internal/helpers"
	"github.com/joshua-takyi/whosin/internal/models"
)

// DefaultTokenTTL is the lifetime of a voter token when none is configured.
const DefaultTokenTTL = time.Hour

// IdentityService keeps the voter ledger and issues voter tokens.
type IdentityService struct {
	voterRepo models.VoterRepo
	secret    []byte
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewIdentityService(voterRepo models.VoterRepo, secret []byte, ttl time.Duration, logger *slog.Logger) *IdentityService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityService{
		voterRepo: voterRepo,
		secret:    secret,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Register records voterID in the ledger (creation instant only on first
// sight) and returns a fresh token for it.
func (is *IdentityService) Register(ctx context.Context, req models.RegisterVoterRequest) (*models.VoterRegistration, error) {
	if err := models.Validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidPayload, err)
	}
	now := is.now().UTC()
	voter, err := is.voterRepo.RegisterVoter(ctx, req.VoterID, now)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := is.issueToken(voter.ID, now)
	if err != nil {
		return nil, err
	}
	is.logger.Debug("voter registered", "voter_id", voter.ID, "created_at", voter.CreatedAt)
	return &models.VoterRegistration{VoterID: voter.ID, Token: token, ExpiresAt: expiresAt}, nil
}

func (is *IdentityService) issueToken(voterID string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(is.ttl)
	claims := helpers.VoterClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   voterID,
			Issuer:    helpers.TokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(is.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign voter token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyToken parses a voter token and returns its claims. Any parse,
// signature or expiry failure is reported as ErrVoterTokenInvalid.
func (is *IdentityService) VerifyToken(tokenStr string) (*helpers.VoterClaims, error) {
	if tokenStr == "" {
		return nil, models.ErrVoterTokenInvalid
	}
	claims := &helpers.VoterClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return is.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(helpers.TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(is.now),
	)
	if err != nil || !token.Valid {
		return nil, errors.Join(models.ErrVoterTokenInvalid, err)
	}
	return claims, nil
}

// Touch records activity for voterID. Failures are logged, not returned.
func (is *IdentityService) Touch(ctx context.Context, voterID string) {
	if err := is.voterRepo.TouchVoter(ctx, voterID, is.now().UTC()); err != nil {
		is.logger.Warn("failed to update voter activity", "voter_id", voterID, "error", err)
	}
}
