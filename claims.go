package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by every token this service signs.
// The purpose claim restricts a token to one use case: a signup link
// token can never authorize a request and a session token can never
// complete a password reset.
type TokenClaims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"purpose,omitempty"`
}

// TokenSubject returns the subject claim.
func (c *TokenClaims) TokenSubject() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiry instant, zero when absent.
func (c *TokenClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the issue instant, zero when absent.
func (c *TokenClaims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
