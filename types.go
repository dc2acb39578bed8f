package accounts

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface the package depends on. The
// variadic arguments are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Purpose tags a secret or token to a single use case so a credential
// issued for one flow cannot be replayed in another.
type Purpose string

const (
	// PurposeSignup gates email ownership verification during registration
	PurposeSignup Purpose = "signup"
	// PurposePasswordReset gates password reset completion
	PurposePasswordReset Purpose = "password-reset"
	// PurposeSession marks bearer tokens issued after login
	PurposeSession Purpose = "session"
)

// SecretStore holds short lived verification secrets keyed by
// (email, purpose). Issuing overwrites any pending secret for the same
// key; consuming is atomic check-and-evict, so at most one concurrent
// caller can observe a match.
type SecretStore interface {
	Issue(ctx context.Context, email string, purpose Purpose) (string, error)
	Consume(ctx context.Context, email string, purpose Purpose, candidate string) error
}

// VerificationBackend is the capability both verification styles
// implement: numeric codes backed by a SecretStore and clickable links
// backed by signed tokens. The backend is selected at construction time.
type VerificationBackend interface {
	Issue(ctx context.Context, email string, purpose Purpose) (string, error)
	Verify(ctx context.Context, email string, purpose Purpose, candidate string) error
}

// AccountProvider resolves accounts for the authentication flow.
type AccountProvider interface {
	VerifyAccount(ctx context.Context, email, password string) (*Account, error)
	FindAccountByID(ctx context.Context, id string) (*Account, error)
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	Authorize(ctx context.Context, bearer string) (*Account, error)
	SessionFromToken(token string) (Session, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// ObjectStore persists profile images and returns a dereferenceable
// public locator.
type ObjectStore interface {
	Put(ctx context.Context, ownerID string, data []byte, contentType string) (string, error)
	DefaultImageURL() string
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(append([]any{"[ERR] ACCOUNTS " + msg}, args...)...)
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(append([]any{"[WRN] ACCOUNTS " + msg}, args...)...)
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(append([]any{"[INF] ACCOUNTS " + msg}, args...)...)
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(append([]any{"[DBG] ACCOUNTS " + msg}, args...)...)
}
