package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UpdateProfileMessage mutates the profile attributes of a live account.
type UpdateProfileMessage struct {
	AccountID   uuid.UUID `json:"account_id"`
	DisplayName string    `json:"display_name"`
	BirthDate   string    `json:"birth_date"`
	Theme       Theme     `json:"theme"`
	OnResponse  func(account *Account)
}

func (m UpdateProfileMessage) Type() string { return "account.profile_update" }

// Validate checks the message before any side effect.
func (m UpdateProfileMessage) Validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.DisplayName, validation.Required, validation.Length(2, 0)),
		validation.Field(&m.BirthDate, validation.Required, validation.Date(BirthDateLayout)),
		validation.Field(&m.Theme, validation.Required, validation.In(ThemeLight, ThemeDark)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid profile update")
	}
	if m.AccountID == uuid.Nil {
		return goerrors.New("account id is required", goerrors.CategoryBadInput)
	}
	return nil
}

// UpdateProfileHandler applies profile mutations.
type UpdateProfileHandler struct {
	repo   RepositoryManager
	logger Logger
}

// NewUpdateProfileHandler creates a handler with sane defaults.
func NewUpdateProfileHandler(repo RepositoryManager) *UpdateProfileHandler {
	return &UpdateProfileHandler{repo: repo, logger: defLogger{}}
}

// WithLogger overrides the logger used by the handler.
func (h *UpdateProfileHandler) WithLogger(logger Logger) *UpdateProfileHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during profile update")
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateProfileHandler) execute(ctx context.Context, event UpdateProfileMessage) error {
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
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for profile update")
	}

	if account.IsDeleted() {
		return ErrAccountNotFound
	}

	account.DisplayName = event.DisplayName
	account.BirthDate = event.BirthDate
	account.Theme = event.Theme

	updated, err := h.repo.Accounts().Update(ctx, account)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist profile update")
	}

	if event.OnResponse != nil {
		event.OnResponse(updated)
	}

	return nil
}
