package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DigestCompletedMessage tells an account holder a requested digest has
// been produced. It exercises the notifier outside the verification
// flows.
type DigestCompletedMessage struct {
	AccountID   uuid.UUID `json:"account_id"`
	Title       string    `json:"title"`
	PeriodStart string    `json:"period_start"`
	PeriodEnd   string    `json:"period_end"`
	Summary     string    `json:"summary"`
}

func (m DigestCompletedMessage) Type() string { return "account.digest_completed" }

// Validate checks the message before any side effect.
func (m DigestCompletedMessage) Validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.Title, validation.Required),
		validation.Field(&m.PeriodStart, validation.Required, validation.Date(BirthDateLayout)),
		validation.Field(&m.PeriodEnd, validation.Required, validation.Date(BirthDateLayout)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid digest notification")
	}
	if m.AccountID == uuid.Nil {
		return goerrors.New("account id is required", goerrors.CategoryBadInput)
	}
	return nil
}

// DigestCompletedHandler resolves the account and sends the digest mail.
type DigestCompletedHandler struct {
	repo     RepositoryManager
	notifier Notifier
	logger   Logger
}

// NewDigestCompletedHandler creates a handler with sane defaults.
func NewDigestCompletedHandler(repo RepositoryManager, notifier Notifier) *DigestCompletedHandler {
	if notifier == nil {
		notifier = NewLogNotifier(nil)
	}
	return &DigestCompletedHandler{repo: repo, notifier: notifier, logger: defLogger{}}
}

// WithLogger overrides the logger used by the handler.
func (h *DigestCompletedHandler) WithLogger(logger Logger) *DigestCompletedHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *DigestCompletedHandler) Execute(ctx context.Context, event DigestCompletedMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during digest notification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *DigestCompletedHandler) execute(ctx context.Context, event DigestCompletedMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account, err := h.repo.Accounts().GetByID(ctx, event.AccountID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for digest notification")
	}

	if account.IsDeleted() {
		return ErrAccountNotFound
	}

	digest := DigestNotification{
		Title:       event.Title,
		PeriodStart: event.PeriodStart,
		PeriodEnd:   event.PeriodEnd,
		Summary:     event.Summary,
	}

	// delivery failure is observable but does not fail the request
	go func(email string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
		defer cancel()

		if err := h.notifier.SendDigestCompleted(ctx, email, digest); err != nil {
			h.logger.Error("digest delivery failed", "email", email, "error", err)
		}
	}(account.Email)

	return nil
}
