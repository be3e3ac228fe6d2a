package models

import "time"

// Voter is the ledger record kept for every anonymous voter identifier.
// It holds no personal data beyond the two timestamps.
type Voter struct {
	ID         string    `bson:"_id" json:"voterId" firestore:"-"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
	LastActive time.Time `bson:"lastActive" json:"lastActive" firestore:"lastActive"`
}

// VoterRegistration is returned to a client after registering its identifier.
type VoterRegistration struct {
	VoterID   string    `json:"voterId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type RegisterVoterRequest struct {
	VoterID string `json:"voterId" validate:"required,min=8,max=128,printascii"`
}
