package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// recordNotFound builds the categorized not-found error returned by the
// lookup methods; callers match it with goerrors.IsNotFound.
func recordNotFound(meta map[string]any) error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithMetadata(meta)
}

// RestoreAccountSQL reactivates a soft deleted row in place, keeping the
// original id, and overwrites the credential and profile attributes with
// the values from the fresh signup.
var RestoreAccountSQL = `UPDATE "accounts" AS "acc"
SET
	"deleted_at" = NULL,
	"password_hash" = ?,
	"display_name" = ?,
	"birth_date" = ?,
	"theme" = ?,
	"profile_image_url" = ?,
	"is_email_verified" = TRUE,
	"email_verified_at" = ?,
	"updated_at" = ?
WHERE
	"acc"."deleted_at" IS NOT NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

// ResetAccountPasswordSQL replaces the password hash only; no other
// field is touched.
var ResetAccountPasswordSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

// SoftDeleteAccountSQL marks a live row deleted; the row persists for
// potential restoration by a later signup.
var SoftDeleteAccountSQL = `UPDATE "accounts" AS "acc"
SET
	"deleted_at" = ?,
	"updated_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

// Accounts is the durable record of accounts keyed by immutable id and
// unique email. Lookup-by-identity methods exclude soft deleted rows;
// the *Any variants include them for the restore-on-signup path.
type Accounts interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	GetByEmailAny(ctx context.Context, email string) (*Account, error)
	GetByEmailAnyTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error)
	AllActive(ctx context.Context) ([]*Account, error)

	Create(ctx context.Context, record *Account) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
	Update(ctx context.Context, record *Account) (*Account, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
	RestoreTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	SoftDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	TrackAttemptedLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
}

type accountsRepo struct {
	repo repository.Repository[*Account]
	db   *bun.DB
}

var _ Accounts = (*accountsRepo)(nil)

// NewAccountsRepository builds the bun backed Accounts repository.
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accountsRepo{repo: repo, db: db}
}

func (a *accountsRepo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accountsRepo) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	return a.getByEmail(ctx, tx, email, false)
}

func (a *accountsRepo) GetByEmailAny(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailAnyTx(ctx, a.db, email)
}

func (a *accountsRepo) GetByEmailAnyTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	return a.getByEmail(ctx, tx, email, true)
}

func (a *accountsRepo) getByEmail(ctx context.Context, tx bun.IDB, email string, includeDeleted bool) (*Account, error) {
	record := &Account{}
	q := tx.NewSelect().Model(record)

	if includeDeleted {
		q = q.WhereAllWithDeleted()
	}

	err := q.
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound(map[string]any{"email": normalizeEmail(email)})
		}
		return nil, err
	}

	return record, nil
}

func (a *accountsRepo) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *accountsRepo) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *accountsRepo) AllActive(ctx context.Context) ([]*Account, error) {
	records := []*Account{}
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *accountsRepo) Create(ctx context.Context, record *Account) (*Account, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *accountsRepo) CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record)
	return a.repo.CreateTx(ctx, tx, record)
}

func (a *accountsRepo) Update(ctx context.Context, record *Account) (*Account, error) {
	return a.UpdateTx(ctx, a.db, record)
}

func (a *accountsRepo) UpdateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	return a.repo.UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String()))
}

func (a *accountsRepo) RestoreTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	now := time.Now()
	_, err := tx.NewRaw(RestoreAccountSQL,
		record.PasswordHash,
		record.DisplayName,
		record.BirthDate,
		record.Theme,
		record.ProfileImageURL,
		now,
		now,
		record.ID,
	).Exec(ctx)

	if err != nil {
		return nil, err
	}

	return a.GetByIDTx(ctx, tx, record.ID)
}

func (a *accountsRepo) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *accountsRepo) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := tx.NewRaw(ResetAccountPasswordSQL, passwordHash, time.Now(), id).Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return recordNotFound(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *accountsRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return a.SoftDeleteTx(ctx, a.db, id)
}

func (a *accountsRepo) SoftDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	now := time.Now()
	_, err := tx.NewRaw(SoftDeleteAccountSQL, now, now, id).Exec(ctx)
	return err
}

func (a *accountsRepo) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	// NOTE: the ORM update will not reset login_attempt_at and
	// login_attempts back to their zero values, use raw SQL.
	loggedInAt := time.Now()
	_, err := a.db.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("acc".id = ?)
			AND "acc"."deleted_at" IS NULL;
	`, loggedInAt, account.ID).Exec(ctx)

	return err
}

func (a *accountsRepo) TrackAttemptedLogin(ctx context.Context, account *Account) error {
	record := &Account{}
	record.ID = account.ID
	record.LoginAttempts = account.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.repo.UpdateTx(ctx, a.db, record, repository.UpdateByID(account.ID.String()))

	return err
}
