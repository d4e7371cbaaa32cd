package auth

import (
	"github.com/angelmondragon/bookloan-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	// JTI binds the token to its redis session; a random one is generated when empty.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients. Role is advisory;
// authorization decisions use the role stored on the user row.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}
