package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// VerificationRequestMessage asks for a verification secret to be issued
// and delivered for (email, purpose). Purpose selects the flow being
// unlocked: signup or password reset.
type VerificationRequestMessage struct {
	Email      string  `json:"email"`
	Purpose    Purpose `json:"purpose"`
	OnResponse func(resp *VerificationRequestResponse)
}

func (m VerificationRequestMessage) Type() string { return "account.verification_request" }

// Validate checks the message before any side effect.
func (m VerificationRequestMessage) Validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Purpose, validation.Required, validation.In(PurposeSignup, PurposePasswordReset)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid verification request")
	}
	return nil
}

// VerificationRequestResponse reports the issued secret. The secret is
// delivered out of band; it is exposed here for tests and for callers
// that embed it in their own delivery channel.
type VerificationRequestResponse struct {
	Email  string `json:"email"`
	Secret string `json:"-"`
}

// VerificationRequestHandler moves an (email, purpose) pair from Idle to
// Pending: conflict checks, secret issuance, out of band delivery.
type VerificationRequestHandler struct {
	repo     RepositoryManager
	verifier VerificationBackend
	notifier Notifier
	logger   Logger
}

// NewVerificationRequestHandler creates a handler with sane defaults.
func NewVerificationRequestHandler(repo RepositoryManager, verifier VerificationBackend, notifier Notifier) *VerificationRequestHandler {
	if notifier == nil {
		notifier = NewLogNotifier(nil)
	}
	return &VerificationRequestHandler{
		repo:     repo,
		verifier: verifier,
		notifier: notifier,
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *VerificationRequestHandler) WithLogger(logger Logger) *VerificationRequestHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerificationRequestHandler) Execute(ctx context.Context, event VerificationRequestMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during verification request")
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerificationRequestHandler) execute(ctx context.Context, event VerificationRequestMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := normalizeEmail(event.Email)

	switch event.Purpose {
	case PurposeSignup:
		// an active account is a terminal conflict; a soft deleted row is
		// fine, the signup will restore it
		existing, err := h.repo.Accounts().GetByEmailAny(ctx, email)
		if err != nil && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}
		if err == nil && !existing.IsDeleted() {
			return ErrEmailInUse
		}
	case PurposePasswordReset:
		if _, err := h.repo.Accounts().GetByEmail(ctx, email); err != nil {
			if goerrors.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
		}
	}

	secret, err := h.verifier.Issue(ctx, email, event.Purpose)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue verification secret")
	}

	h.deliver(email, event.Purpose, secret)

	if event.OnResponse != nil {
		event.OnResponse(&VerificationRequestResponse{Email: email, Secret: secret})
	}

	return nil
}

// deliver sends the secret out of band. Delivery is fire and forget:
// a failed send never rolls back the issued secret, it is only logged.
func (h *VerificationRequestHandler) deliver(email string, purpose Purpose, secret string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
		defer cancel()

		var err error
		switch purpose {
		case PurposePasswordReset:
			err = h.notifier.SendPasswordReset(ctx, email, secret)
		default:
			err = h.notifier.SendVerification(ctx, email, secret)
		}

		if err != nil {
			h.logger.Error("verification delivery failed", "email", email, "purpose", purpose, "error", err)
		}
	}()
}
