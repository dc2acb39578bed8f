package accounts

import (
	"context"
	"time"
)

// codeVerification implements VerificationBackend with short numeric
// codes held in a SecretStore. Codes are strictly single use: a
// successful verify evicts the code.
type codeVerification struct {
	store SecretStore
}

// NewCodeVerification returns the code based verification backend.
func NewCodeVerification(store SecretStore) VerificationBackend {
	return &codeVerification{store: store}
}

func (v *codeVerification) Issue(ctx context.Context, email string, purpose Purpose) (string, error) {
	return v.store.Issue(ctx, email, purpose)
}

func (v *codeVerification) Verify(ctx context.Context, email string, purpose Purpose, candidate string) error {
	return v.store.Consume(ctx, email, purpose, candidate)
}

// tokenVerification implements VerificationBackend with signed link
// tokens carrying the email as subject. Tokens are stateless and stay
// valid until expiry; the operations that depend on a verified email
// re-validate the token themselves, so there is no window between
// verification and use.
type tokenVerification struct {
	tokens *TokenService
	ttl    time.Duration
}

// NewTokenVerification returns the link/token based verification backend.
func NewTokenVerification(tokens *TokenService, ttl time.Duration) VerificationBackend {
	if ttl <= 0 {
		ttl = DefaultSecretTTL
	}
	return &tokenVerification{tokens: tokens, ttl: ttl}
}

func (v *tokenVerification) Issue(ctx context.Context, email string, purpose Purpose) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return v.tokens.Issue(normalizeEmail(email), purpose, v.ttl)
}

func (v *tokenVerification) Verify(ctx context.Context, email string, purpose Purpose, candidate string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	subject, err := v.tokens.Validate(candidate, purpose)
	if err != nil {
		return err
	}

	// a valid token for some other email is not proof of ownership here
	if normalizeEmail(subject) != normalizeEmail(email) {
		return ErrSecretMismatch
	}

	return nil
}
