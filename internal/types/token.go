package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims represents the claims in a Supabase-issued JWT. The stable
// user identifier lives in the registered "sub" claim.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserID returns the stable user identifier carried by the token.
func (c *TokenClaims) UserID() string {
	return c.Subject
}
