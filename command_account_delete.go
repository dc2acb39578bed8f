package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DeleteAccountMessage soft deletes an account. The row persists and a
// later signup with a re-verified email restores it in place; there is
// no standalone restore operation.
type DeleteAccountMessage struct {
	AccountID uuid.UUID `json:"account_id"`
}

func (m DeleteAccountMessage) Type() string { return "account.delete" }

// DeleteAccountHandler marks the account deleted. Deleting an absent or
// already deleted account is a no-op.
type DeleteAccountHandler struct {
	repo   RepositoryManager
	logger Logger
}

// NewDeleteAccountHandler creates a handler with sane defaults.
func NewDeleteAccountHandler(repo RepositoryManager) *DeleteAccountHandler {
	return &DeleteAccountHandler{repo: repo, logger: defLogger{}}
}

// WithLogger overrides the logger used by the handler.
func (h *DeleteAccountHandler) WithLogger(logger Logger) *DeleteAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *DeleteAccountHandler) Execute(ctx context.Context, event DeleteAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account deletion")
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteAccountHandler) execute(ctx context.Context, event DeleteAccountMessage) error {
	if event.AccountID == uuid.Nil {
		return goerrors.New("account id is required", goerrors.CategoryBadInput)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := h.repo.Accounts().GetByIDTx(ctx, tx, event.AccountID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for deletion")
		}

		if account.IsDeleted() {
			return nil
		}

		return h.repo.Accounts().SoftDeleteTx(ctx, tx, account.ID)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account deletion transaction failed")
	}

	return nil
}
