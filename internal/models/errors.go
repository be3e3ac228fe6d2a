package models

import (
	"errors"

	"github.com/joshua-takyi/whosin/internal/signature"
)

var (
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrInvalidSignature  = signature.ErrInvalidSignature
	ErrStaleTimestamp    = signature.ErrStaleTimestamp
	ErrVoterTokenInvalid = errors.New("voter token invalid")
	ErrEventNotFound     = errors.New("event not found")
	ErrSelfRSVPForbidden = errors.New("you cannot RSVP to your own event")
	ErrLinkExpired       = errors.New("this link has expired")
	ErrEventExists       = errors.New("event already exists")
)
