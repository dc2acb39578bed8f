package accounts

import (
	"time"

	"github.com/google/uuid"
)

// Session holds attributes that are part of an auth session
type Session interface {
	GetAccountID() string
	GetAccountUUID() (uuid.UUID, error)
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
}

var _ Session = &SessionObject{}

// SessionObject is the concrete session derived from validated session
// token claims. Sessions are stateless: validity is determined solely
// by signature and expiry, never by a server side lookup.
type SessionObject struct {
	AccountID      string     `json:"account_id,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetAccountID() string {
	return s.AccountID
}

func (s *SessionObject) GetAccountUUID() (uuid.UUID, error) {
	return uuid.Parse(s.AccountID)
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetExpiration() *time.Time {
	return s.ExpirationDate
}

func sessionFromTokenClaims(claims *TokenClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	session := &SessionObject{
		AccountID: claims.TokenSubject(),
		Issuer:    claims.RegisteredClaims.Issuer,
	}

	if claims.IssuedAt != nil {
		issued := claims.IssuedAt.Time
		session.IssuedAt = &issued
	}

	if claims.ExpiresAt != nil {
		expires := claims.ExpiresAt.Time
		session.ExpirationDate = &expires
	}

	return session, nil
}
