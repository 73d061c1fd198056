package auth

import (
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	PartyID *uuid.UUID
	Role    enums.ActorRole
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID  uuid.UUID       `json:"user_id"`
	PartyID *uuid.UUID      `json:"party_id,omitempty"`
	Role    enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
