package accounts_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := accounts.GenerateCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "expected digit, got %q", r)
	}

	_, err = accounts.GenerateCode(0)
	assert.Error(t, err)
}

func TestMemorySecretStore(t *testing.T) {
	ctx := context.Background()

	t.Run("consume accepts the issued secret once", func(t *testing.T) {
		store := accounts.NewMemorySecretStore()

		secret, err := store.Issue(ctx, "user@example.com", accounts.PurposeSignup)
		require.NoError(t, err)
		require.NotEmpty(t, secret)

		require.NoError(t, store.Consume(ctx, "user@example.com", accounts.PurposeSignup, secret))

		// a second consume must miss, the secret was evicted
		err = store.Consume(ctx, "user@example.com", accounts.PurposeSignup, secret)
		assert.True(t, accounts.IsSecretNotFound(err))
	})

	t.Run("mismatch leaves the secret pending", func(t *testing.T) {
		store := accounts.NewMemorySecretStore()

		secret, err := store.Issue(ctx, "user@example.com", accounts.PurposeSignup)
		require.NoError(t, err)

		err = store.Consume(ctx, "user@example.com", accounts.PurposeSignup, "000000")
		assert.True(t, accounts.IsSecretMismatch(err))

		// the right value still works afterwards
		assert.NoError(t, store.Consume(ctx, "user@example.com", accounts.PurposeSignup, secret))
	})

	t.Run("reissue invalidates the previous secret", func(t *testing.T) {
		store := accounts.NewMemorySecretStore()

		first, err := store.Issue(ctx, "user@example.com", accounts.PurposeSignup)
		require.NoError(t, err)
		second, err := store.Issue(ctx, "user@example.com", accounts.PurposeSignup)
		require.NoError(t, err)

		if first != second {
			err = store.Consume(ctx, "user@example.com", accounts.PurposeSignup, first)
			assert.True(t, accounts.IsSecretMismatch(err))
		}

		assert.NoError(t, store.Consume(ctx, "user@example.com", accounts.PurposeSignup, second))
	})

	t.Run("purposes are independent", func(t *testing.T) {
		store := accounts.NewMemorySecretStore()

		signup, err := store.Issue(ctx, "user@example.com", accounts.PurposeSignup)
		require.NoError(t, err)
		reset, err := store.Issue(ctx, "user@example.com", accounts.PurposePasswordReset)
		require.NoError(t, err)

		require.NoError(t, store.Consume(ctx, "user@example.com", accounts.PurposeSignup, signup))
		require.NoError(t, store.Consume(ctx, "user@example.com", accounts.PurposePasswordReset, reset))
	})

	t.Run("emails are normalized", func(t *testing.T) {
		store := accounts.NewMemorySecretStore()

		secret, err := store.Issue(ctx, "  User@Example.COM ", accounts.PurposeSignup)
		require.NoError(t, err)

		assert.NoError(t, store.Consume(ctx, "user@example.com", accounts.PurposeSignup, secret))
	})

	t.Run("expired secret is evicted on consume", func(t *testing.T) {
		now := time.Now()
		clock := func() time.Time { return now }

		store := accounts.NewMemorySecretStore(
			accounts.WithSecretTTL(15*time.Minute),
			accounts.WithSecretClock(func() time.Time { return clock() }),
		)

		secret, err := store.Issue(ctx, "user@example.com", accounts.PurposeSignup)
		require.NoError(t, err)

		clock = func() time.Time { return now.Add(15*time.Minute + time.Second) }

		err = store.Consume(ctx, "user@example.com", accounts.PurposeSignup, secret)
		assert.True(t, accounts.IsSecretExpired(err))

		// the retry observes not-found, the entry is gone
		err = store.Consume(ctx, "user@example.com", accounts.PurposeSignup, secret)
		assert.True(t, accounts.IsSecretNotFound(err))
	})

	t.Run("secret consumable right up to the boundary", func(t *testing.T) {
		now := time.Now()
		clock := func() time.Time { return now }

		store := accounts.NewMemorySecretStore(
			accounts.WithSecretTTL(15*time.Minute),
			accounts.WithSecretClock(func() time.Time { return clock() }),
		)

		secret, err := store.Issue(ctx, "user@example.com", accounts.PurposeSignup)
		require.NoError(t, err)

		clock = func() time.Time { return now.Add(15 * time.Minute) }

		assert.NoError(t, store.Consume(ctx, "user@example.com", accounts.PurposeSignup, secret))
	})

	t.Run("at most one concurrent consume succeeds", func(t *testing.T) {
		store := accounts.NewMemorySecretStore()

		secret, err := store.Issue(ctx, "user@example.com", accounts.PurposeSignup)
		require.NoError(t, err)

		const workers = 16
		var wg sync.WaitGroup
		results := make(chan error, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- store.Consume(ctx, "user@example.com", accounts.PurposeSignup, secret)
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
			}
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("custom generator", func(t *testing.T) {
		n := 0
		store := accounts.NewMemorySecretStore(
			accounts.WithSecretGenerator(func() (string, error) {
				n++
				return fmt.Sprintf("secret-%d", n), nil
			}),
		)

		secret, err := store.Issue(ctx, "user@example.com", accounts.PurposeSignup)
		require.NoError(t, err)
		assert.Equal(t, "secret-1", secret)
	})
}
