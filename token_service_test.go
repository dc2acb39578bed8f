package accounts_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSigningKey = []byte("test-signing-key")
	testIssuer     = "test-issuer"
	testAudience   = []string{"test:audience"}
)

func newTestTokenService(opts ...accounts.TokenServiceOption) *accounts.TokenService {
	return accounts.NewTokenService(testSigningKey, testIssuer, testAudience, opts...)
}

func TestTokenServiceRoundTrip(t *testing.T) {
	ts := newTestTokenService()

	token, err := ts.Issue("user@example.com", accounts.PurposeSignup, time.Minute*15)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := ts.Validate(token, accounts.PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", subject)

	claims, err := ts.ValidateClaims(token, accounts.PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, accounts.PurposeSignup, claims.Purpose)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings(testAudience), claims.Audience)
	assert.WithinDuration(t, time.Now().Add(time.Minute*15), claims.Expires(), time.Minute)
}

func TestTokenServiceRejectsEmptySubject(t *testing.T) {
	ts := newTestTokenService()

	_, err := ts.Issue("", accounts.PurposeSignup, time.Minute)
	assert.Error(t, err)
}

func TestTokenServiceExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	ts := newTestTokenService(accounts.WithTokenClock(func() time.Time { return clock() }))

	token, err := ts.Issue("user@example.com", accounts.PurposeSession, time.Minute*15)
	require.NoError(t, err)

	// still valid just inside the window
	clock = func() time.Time { return now.Add(time.Minute * 14) }
	_, err = ts.Validate(token, accounts.PurposeSession)
	assert.NoError(t, err)

	// expired after the window; distinct from malformed
	clock = func() time.Time { return now.Add(time.Minute * 16) }
	_, err = ts.Validate(token, accounts.PurposeSession)
	assert.True(t, accounts.IsTokenExpired(err))
	assert.False(t, accounts.IsTokenMalformed(err))
}

func TestTokenServiceWrongPurpose(t *testing.T) {
	ts := newTestTokenService()

	token, err := ts.Issue("user@example.com", accounts.PurposeSignup, time.Minute*15)
	require.NoError(t, err)

	_, err = ts.Validate(token, accounts.PurposePasswordReset)
	assert.True(t, accounts.IsTokenWrongPurpose(err))

	_, err = ts.Validate(token, accounts.PurposeSession)
	assert.True(t, accounts.IsTokenWrongPurpose(err))
}

func TestTokenServiceTamperedToken(t *testing.T) {
	ts := newTestTokenService()

	token, err := ts.Issue("user@example.com", accounts.PurposeSignup, time.Minute*15)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = ts.Validate(tampered, accounts.PurposeSignup)
	assert.True(t, accounts.IsTokenMalformed(err))
}

func TestTokenServiceWrongKey(t *testing.T) {
	ts := newTestTokenService()
	other := accounts.NewTokenService([]byte("another-key"), testIssuer, testAudience)

	token, err := other.Issue("user@example.com", accounts.PurposeSignup, time.Minute*15)
	require.NoError(t, err)

	_, err = ts.Validate(token, accounts.PurposeSignup)
	assert.True(t, accounts.IsTokenMalformed(err))
}

func TestTokenServiceMalformedInput(t *testing.T) {
	ts := newTestTokenService()

	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		_, err := ts.Validate(input, accounts.PurposeSignup)
		assert.True(t, accounts.IsTokenMalformed(err), "input %q", input)
	}
}

func TestTokenServiceIssuerAndAudienceEnforced(t *testing.T) {
	ts := newTestTokenService()

	t.Run("wrong issuer", func(t *testing.T) {
		other := accounts.NewTokenService(testSigningKey, "someone-else", testAudience)
		token, err := other.Issue("user@example.com", accounts.PurposeSignup, time.Minute)
		require.NoError(t, err)

		_, err = ts.Validate(token, accounts.PurposeSignup)
		assert.True(t, accounts.IsTokenMalformed(err))
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := accounts.NewTokenService(testSigningKey, testIssuer, []string{"other:audience"})
		token, err := other.Issue("user@example.com", accounts.PurposeSignup, time.Minute)
		require.NoError(t, err)

		_, err = ts.Validate(token, accounts.PurposeSignup)
		assert.True(t, accounts.IsTokenMalformed(err))
	})
}
