package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// FinalizeSignupMessage completes a signup for an email whose ownership
// was verified out of band. Secret is the code or link token delivered
// for the signup purpose; it is re-validated here rather than trusting a
// separate verified flag.
type FinalizeSignupMessage struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	BirthDate   string `json:"birth_date"`
	Secret      string `json:"secret"`
	OnResponse  func(account *Account)
}

func (m FinalizeSignupMessage) Type() string { return "account.signup_finalize" }

// Validate checks the message before any side effect.
func (m FinalizeSignupMessage) Validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Password, validation.Required, validation.Length(8, 0)),
		validation.Field(&m.DisplayName, validation.Required, validation.Length(2, 0)),
		validation.Field(&m.BirthDate, validation.Required, validation.Date(BirthDateLayout)),
		validation.Field(&m.Secret, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid signup request")
	}
	return nil
}

// FinalizeSignupHandler turns a verified email into an account: a fresh
// row for a new email, or an in place restore when only a soft deleted
// row exists. An active account is a terminal conflict even when the
// secret itself was valid.
type FinalizeSignupHandler struct {
	repo     RepositoryManager
	verifier VerificationBackend
	images   ObjectStore
	logger   Logger
}

// NewFinalizeSignupHandler creates a handler with sane defaults.
func NewFinalizeSignupHandler(repo RepositoryManager, verifier VerificationBackend) *FinalizeSignupHandler {
	return &FinalizeSignupHandler{
		repo:     repo,
		verifier: verifier,
		logger:   defLogger{},
	}
}

// WithObjectStore wires the store used for the default profile image.
func (h *FinalizeSignupHandler) WithObjectStore(images ObjectStore) *FinalizeSignupHandler {
	h.images = images
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizeSignupHandler) WithLogger(logger Logger) *FinalizeSignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizeSignupHandler) Execute(ctx context.Context, event FinalizeSignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during signup")
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizeSignupHandler) execute(ctx context.Context, event FinalizeSignupMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := normalizeEmail(event.Email)

	if err := h.verifier.Verify(ctx, email, PurposeSignup, event.Secret); err != nil {
		return err
	}

	passwordHash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	var account *Account

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Accounts().GetByEmailAnyTx(ctx, tx, email)
		if err != nil && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		switch {
		case err != nil:
			// brand new email
			record := &Account{
				Email:           email,
				PasswordHash:    passwordHash,
				DisplayName:     event.DisplayName,
				BirthDate:       event.BirthDate,
				Theme:           ThemeLight,
				ProfileImageURL: h.defaultImageURL(),
			}
			record.MarkEmailVerified(time.Now())

			if account, err = h.repo.Accounts().CreateTx(ctx, tx, record); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
			}

		case existing.IsDeleted():
			// reactivate in place, the account id survives delete/restore
			existing.PasswordHash = passwordHash
			existing.DisplayName = event.DisplayName
			existing.BirthDate = event.BirthDate
			existing.Theme = ThemeLight
			existing.ProfileImageURL = h.defaultImageURL()

			if account, err = h.repo.Accounts().RestoreTx(ctx, tx, existing); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not restore account")
			}

		default:
			// re-checked at completion time to close the race between
			// request and completion
			return ErrEmailInUse
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

func (h *FinalizeSignupHandler) defaultImageURL() string {
	if h.images == nil {
		return ""
	}
	return h.images.DefaultImageURL()
}
