package accounts

import (
	"context"
	"time"
)

// DefaultSessionTTL bounds session tokens when no duration is configured.
const DefaultSessionTTL = 24 * time.Hour

// Auther implements the Authenticator interface: it validates
// credentials, issues session tokens, and resolves bearer tokens back to
// live accounts. Logout is a client side discard; there is no server
// side revocation.
type Auther struct {
	provider   AccountProvider
	tokens     *TokenService
	sessionTTL time.Duration
	logger     Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider AccountProvider, tokens *TokenService, sessionTTL time.Duration) *Auther {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	return &Auther{
		provider:   provider,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		logger:     defLogger{},
	}
}

// WithLogger overrides the logger.
func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() *TokenService {
	return s.tokens
}

// Login validates credentials and issues a session token bound to the
// account id. Unknown email, soft deleted account and wrong password are
// indistinguishable from the returned error; the cause is only logged.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	account, err := s.provider.VerifyAccount(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login rejected", "email", normalizeEmail(email), "cause", err)
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID.String(), PurposeSession, s.sessionTTL)
	if err != nil {
		s.logger.Error("Login failed to issue session token", "error", err)
		return "", err
	}

	return token, nil
}

// SessionFromToken validates a bearer token and returns the stateless
// session it encodes. Expired tokens surface distinctly from malformed
// ones so clients can prompt re-login specifically on expiry.
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokens.ValidateClaims(raw, PurposeSession)
	if err != nil {
		return nil, err
	}

	return sessionFromTokenClaims(claims)
}

// Authorize validates a bearer token and resolves it to a live account.
func (s *Auther) Authorize(ctx context.Context, bearer string) (*Account, error) {
	session, err := s.SessionFromToken(bearer)
	if err != nil {
		s.logger.Debug("Authorize token validation failed", "error", err)
		return nil, err
	}

	account, err := s.provider.FindAccountByID(ctx, session.GetAccountID())
	if err != nil {
		s.logger.Debug("Authorize account resolution failed", "error", err)
		return nil, err
	}

	return account, nil
}
