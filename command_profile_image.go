package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MaxProfileImageBytes bounds uploaded profile images.
const MaxProfileImageBytes = 5 << 20

// UpdateProfileImageMessage replaces the profile image of a live
// account. Data is the raw image body as received.
type UpdateProfileImageMessage struct {
	AccountID   uuid.UUID `json:"account_id"`
	Data        []byte    `json:"-"`
	ContentType string    `json:"content_type"`
	OnResponse  func(account *Account)
}

func (m UpdateProfileImageMessage) Type() string { return "account.profile_image_update" }

// Validate checks the message before any side effect.
func (m UpdateProfileImageMessage) Validate() error {
	if m.AccountID == uuid.Nil {
		return goerrors.New("account id is required", goerrors.CategoryBadInput)
	}
	if len(m.Data) == 0 {
		return goerrors.New("image data is required", goerrors.CategoryBadInput)
	}
	if len(m.Data) > MaxProfileImageBytes {
		return goerrors.New("image exceeds the size limit", goerrors.CategoryBadInput)
	}
	return nil
}

// UpdateProfileImageHandler stores the image in the object store and
// persists the returned locator.
type UpdateProfileImageHandler struct {
	repo   RepositoryManager
	images ObjectStore
	logger Logger
}

// NewUpdateProfileImageHandler creates a handler with sane defaults.
func NewUpdateProfileImageHandler(repo RepositoryManager, images ObjectStore) *UpdateProfileImageHandler {
	return &UpdateProfileImageHandler{repo: repo, images: images, logger: defLogger{}}
}

// WithLogger overrides the logger used by the handler.
func (h *UpdateProfileImageHandler) WithLogger(logger Logger) *UpdateProfileImageHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpdateProfileImageHandler) Execute(ctx context.Context, event UpdateProfileImageMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during profile image update")
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateProfileImageHandler) execute(ctx context.Context, event UpdateProfileImageMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	if h.images == nil {
		return goerrors.New("no object store configured", goerrors.CategoryInternal)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	account, err := h.repo.Accounts().GetByID(ctx, event.AccountID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for image update")
	}

	if account.IsDeleted() {
		return ErrAccountNotFound
	}

	ref, err := h.images.Put(ctx, account.ID.String(), event.Data, event.ContentType)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store profile image")
	}

	account.ProfileImageURL = ref

	updated, err := h.repo.Accounts().Update(ctx, account)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist profile image reference")
	}

	if event.OnResponse != nil {
		event.OnResponse(updated)
	}

	return nil
}
