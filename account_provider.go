package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ErrTooManyLoginAttempts is an internal verification failure; callers
// still surface the uniform invalid-credentials error.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryAuth).
	WithTextCode("TOO_MANY_LOGIN_ATTEMPTS")

// MaxLoginAttempts is the maximum number of failed attempts an account
// gets inside the cool down period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// RepositoryAccountProvider resolves accounts against the repository and
// verifies credentials with the configured password hasher.
type RepositoryAccountProvider struct {
	repo   RepositoryManager
	hasher PasswordAuthenticator
	logger Logger
}

// NewRepositoryAccountProvider will create a new provider over the
// repository manager.
func NewRepositoryAccountProvider(repo RepositoryManager) *RepositoryAccountProvider {
	return &RepositoryAccountProvider{
		repo:   repo,
		hasher: BcryptHasher{},
		logger: defLogger{},
	}
}

// WithLogger overrides the logger.
func (p *RepositoryAccountProvider) WithLogger(logger Logger) *RepositoryAccountProvider {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithHasher overrides the password hasher.
func (p *RepositoryAccountProvider) WithHasher(hasher PasswordAuthenticator) *RepositoryAccountProvider {
	if hasher != nil {
		p.hasher = hasher
	}
	return p
}

// VerifyAccount finds a live account by email and compares the password.
// Failure causes stay distinct here so the authenticator can log them;
// only the authenticator decides what the caller sees.
func (p *RepositoryAccountProvider) VerifyAccount(ctx context.Context, email, password string) (*Account, error) {
	account, err := p.repo.Accounts().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during verification")
	}

	if account.IsDeleted() {
		return nil, ErrAccountNotFound
	}

	if account.LoginAttemptAt != nil {
		expired, err := loginCooldownExpired(*account.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			account.LoginAttempts = 0
		}
	}

	// too many attempts in the window, cool off
	if account.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := p.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if err2 := p.repo.Accounts().TrackAttemptedLogin(ctx, account); err2 != nil {
			p.logger.Error("failed to track login attempt", "error", err2)
		}

		return nil, ErrMismatchedHashAndPassword
	}

	if err := p.repo.Accounts().TrackSuccessfulLogin(ctx, account); err != nil {
		p.logger.Error("failed to track successful login", "error", err)
	}

	return account, nil
}

// loginCooldownExpired reports whether the last failed attempt happened
// before the cool down window; the window is a duration expression like
// CoolDownPeriod.
func loginCooldownExpired(lastAttempt time.Time, window string) (bool, error) {
	d, err := time.ParseDuration(window)
	if err != nil {
		return false, err
	}

	return lastAttempt.Before(time.Now().Add(-d)), nil
}

// FindAccountByID resolves an id to a live, non deleted account.
func (p *RepositoryAccountProvider) FindAccountByID(ctx context.Context, id string) (*Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	account, err := p.repo.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	if account.IsDeleted() {
		return nil, ErrAccountNotFound
	}

	return account, nil
}
