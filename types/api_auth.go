package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// APITokenClaims represents the JWT claims for API authentication
type APITokenClaims struct {
	Name  string `json:"name"`
	Write bool   `json:"write,omitempty"` // allows apply and rollback operations
	jwt.RegisteredClaims
}

// APITokenInfo contains information about an authenticated token
type APITokenInfo struct {
	Name      string
	Write     bool
	ExpiresAt *time.Time
	IssuedAt  time.Time
}
