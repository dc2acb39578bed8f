package accounts

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the rich errors below. Clients switch on these
// rather than on messages.
const (
	TextCodeEmailInUse         = "ACCOUNT_EMAIL_IN_USE"
	TextCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeSecretNotFound     = "SECRET_NOT_FOUND"
	TextCodeSecretExpired      = "SECRET_EXPIRED"
	TextCodeSecretMismatch     = "SECRET_MISMATCH"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenWrongPurpose  = "TOKEN_WRONG_PURPOSE"
)

// ErrEmailInUse is returned when a non deleted account already owns the email.
var ErrEmailInUse = goerrors.New("email is already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailInUse)

// ErrAccountNotFound is returned when no live account matches the identifier.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound)

// ErrInvalidCredentials deliberately collapses unknown email, deleted
// account and wrong password into a single undifferentiated failure so
// callers cannot enumerate accounts. The real cause is only logged.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials)

// ErrSecretNotFound means no secret is pending for the (email, purpose) pair.
var ErrSecretNotFound = goerrors.New("no verification secret pending", goerrors.CategoryNotFound).
	WithTextCode(TextCodeSecretNotFound)

// ErrSecretExpired means the pending secret outlived its TTL; it has been evicted.
var ErrSecretExpired = goerrors.New("verification secret has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeSecretExpired)

// ErrSecretMismatch means a secret is pending and fresh but the candidate differs.
var ErrSecretMismatch = goerrors.New("verification secret does not match", goerrors.CategoryValidation).
	WithTextCode(TextCodeSecretMismatch)

// ErrTokenMalformed covers bad signatures and undecodable tokens.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenExpired is kept distinct from malformed so callers can prompt
// re-login or a fresh verification request specifically on expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenWrongPurpose is returned when a valid token is replayed in a
// flow it was not issued for.
var ErrTokenWrongPurpose = goerrors.New("token issued for a different purpose", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenWrongPurpose)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation)

// ErrMismatchedHashAndPassword is the normalized bcrypt comparison failure.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth)

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsEmailInUse reports whether err is the active-account conflict.
func IsEmailInUse(err error) bool { return hasTextCode(err, TextCodeEmailInUse) }

// IsAccountNotFound reports whether err means no live account matched.
func IsAccountNotFound(err error) bool { return hasTextCode(err, TextCodeAccountNotFound) }

// IsInvalidCredentials reports whether err is the uniform login failure.
func IsInvalidCredentials(err error) bool { return hasTextCode(err, TextCodeInvalidCredentials) }

// IsSecretNotFound reports whether err means no secret was pending.
func IsSecretNotFound(err error) bool { return hasTextCode(err, TextCodeSecretNotFound) }

// IsSecretExpired reports whether err means the secret outlived its TTL.
func IsSecretExpired(err error) bool { return hasTextCode(err, TextCodeSecretExpired) }

// IsSecretMismatch reports whether err means the candidate differed.
func IsSecretMismatch(err error) bool { return hasTextCode(err, TextCodeSecretMismatch) }

// IsTokenMalformed reports whether err is a signature or format failure.
func IsTokenMalformed(err error) bool { return hasTextCode(err, TextCodeTokenMalformed) }

// IsTokenExpired reports whether err is an expiry failure.
func IsTokenExpired(err error) bool { return hasTextCode(err, TextCodeTokenExpired) }

// IsTokenWrongPurpose reports whether err is a purpose claim mismatch.
func IsTokenWrongPurpose(err error) bool { return hasTextCode(err, TextCodeTokenWrongPurpose) }

// HTTPStatus maps an error to a response status by category. Unrecognized
// errors are treated as internal.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
