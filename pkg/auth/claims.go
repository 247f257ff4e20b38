package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/localkart/localkart-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.ActorRole
	ShopID *uuid.UUID
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients. ShopID is
// present only for vendor tokens.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.ActorRole `json:"role"`
	ShopID *uuid.UUID      `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}
