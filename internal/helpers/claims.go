package helpers

import "github.com/golang-jwt/jwt/v5"

// TokenIssuer is the iss claim of every voter token.
const TokenIssuer = "whosin"

// VoterClaims are carried by voter tokens. The subject is the voter identifier.
type VoterClaims struct {
	jwt.RegisteredClaims
}

func (vc *VoterClaims) VoterID() string {
	return vc.Subject
}

func (vc *VoterClaims) IsOwner(voterID string) bool {
	return vc.Subject != "" && vc.Subject == voterID
}
