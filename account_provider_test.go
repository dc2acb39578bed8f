package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, repo *fakeRepoManager, email, password string) *accounts.Account {
	t.Helper()

	hash, err := accounts.HashPassword(password)
	require.NoError(t, err)

	account := &accounts.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Test User",
		BirthDate:    "1990-04-02",
		Theme:        accounts.ThemeLight,
	}
	account.MarkEmailVerified(time.Now())

	return repo.accounts.add(account)
}

func softDelete(t *testing.T, repo *fakeRepoManager, id uuid.UUID) {
	t.Helper()
	require.NoError(t, repo.accounts.SoftDelete(context.Background(), id))
}

func TestVerifyAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		repo := newFakeRepoManager()
		seeded := seedAccount(t, repo, "user@example.com", "password123")

		provider := accounts.NewRepositoryAccountProvider(repo).WithLogger(nopLogger{})

		account, err := provider.VerifyAccount(ctx, "user@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, account.ID)
		assert.Equal(t, 1, repo.accounts.successfulLogins)
	})

	t.Run("email lookup is normalized", func(t *testing.T) {
		repo := newFakeRepoManager()
		seedAccount(t, repo, "user@example.com", "password123")

		provider := accounts.NewRepositoryAccountProvider(repo).WithLogger(nopLogger{})

		_, err := provider.VerifyAccount(ctx, " User@Example.COM ", "password123")
		assert.NoError(t, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		repo := newFakeRepoManager()
		provider := accounts.NewRepositoryAccountProvider(repo).WithLogger(nopLogger{})

		_, err := provider.VerifyAccount(ctx, "missing@example.com", "password123")
		assert.True(t, accounts.IsAccountNotFound(err))
	})

	t.Run("soft deleted account", func(t *testing.T) {
		repo := newFakeRepoManager()
		seeded := seedAccount(t, repo, "user@example.com", "password123")
		softDelete(t, repo, seeded.ID)

		provider := accounts.NewRepositoryAccountProvider(repo).WithLogger(nopLogger{})

		_, err := provider.VerifyAccount(ctx, "user@example.com", "password123")
		assert.True(t, accounts.IsAccountNotFound(err))
	})

	t.Run("wrong password tracks the attempt", func(t *testing.T) {
		repo := newFakeRepoManager()
		seedAccount(t, repo, "user@example.com", "password123")

		provider := accounts.NewRepositoryAccountProvider(repo).WithLogger(nopLogger{})

		_, err := provider.VerifyAccount(ctx, "user@example.com", "wrong-password")
		assert.ErrorIs(t, err, accounts.ErrMismatchedHashAndPassword)
		assert.Equal(t, 1, repo.accounts.attemptedLogins)
	})

	t.Run("too many attempts inside the cool down", func(t *testing.T) {
		repo := newFakeRepoManager()
		seeded := seedAccount(t, repo, "user@example.com", "password123")

		now := time.Now()
		seeded.LoginAttempts = accounts.MaxLoginAttempts + 1
		seeded.LoginAttemptAt = &now
		_, err := repo.accounts.Update(ctx, seeded)
		require.NoError(t, err)

		provider := accounts.NewRepositoryAccountProvider(repo).WithLogger(nopLogger{})

		_, err = provider.VerifyAccount(ctx, "user@example.com", "password123")
		assert.ErrorIs(t, err, accounts.ErrTooManyLoginAttempts)
	})

	t.Run("attempts reset after the cool down expires", func(t *testing.T) {
		repo := newFakeRepoManager()
		seeded := seedAccount(t, repo, "user@example.com", "password123")

		stale := time.Now().Add(-25 * time.Hour)
		seeded.LoginAttempts = accounts.MaxLoginAttempts + 1
		seeded.LoginAttemptAt = &stale
		_, err := repo.accounts.Update(ctx, seeded)
		require.NoError(t, err)

		provider := accounts.NewRepositoryAccountProvider(repo).WithLogger(nopLogger{})

		_, err = provider.VerifyAccount(ctx, "user@example.com", "password123")
		assert.NoError(t, err)
	})

	t.Run("invalid cool down expression surfaces an internal error", func(t *testing.T) {
		repo := newFakeRepoManager()
		seeded := seedAccount(t, repo, "user@example.com", "password123")

		now := time.Now()
		seeded.LoginAttemptAt = &now
		_, err := repo.accounts.Update(ctx, seeded)
		require.NoError(t, err)

		original := accounts.CoolDownPeriod
		accounts.CoolDownPeriod = "not-a-duration"
		defer func() { accounts.CoolDownPeriod = original }()

		provider := accounts.NewRepositoryAccountProvider(repo).WithLogger(nopLogger{})

		_, err = provider.VerifyAccount(ctx, "user@example.com", "password123")
		require.Error(t, err)
		assert.False(t, accounts.IsInvalidCredentials(err))
	})
}

func TestFindAccountByID(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepoManager()
	seeded := seedAccount(t, repo, "user@example.com", "password123")

	provider := accounts.NewRepositoryAccountProvider(repo).WithLogger(nopLogger{})

	t.Run("resolves a live account", func(t *testing.T) {
		account, err := provider.FindAccountByID(ctx, seeded.ID.String())
		require.NoError(t, err)
		assert.Equal(t, seeded.Email, account.Email)
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		_, err := provider.FindAccountByID(ctx, "not-a-uuid")
		assert.True(t, accounts.IsAccountNotFound(err))
	})

	t.Run("rejects unknown ids", func(t *testing.T) {
		_, err := provider.FindAccountByID(ctx, uuid.NewString())
		assert.True(t, accounts.IsAccountNotFound(err))
	})

	t.Run("rejects soft deleted accounts", func(t *testing.T) {
		other := seedAccount(t, repo, "deleted@example.com", "password123")
		softDelete(t, repo, other.ID)

		_, err := provider.FindAccountByID(ctx, other.ID.String())
		assert.True(t, accounts.IsAccountNotFound(err))
	})
}
