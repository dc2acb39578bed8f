package accounts_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// fakeAccounts is a map backed Accounts implementation. It mirrors the
// repository semantics the handlers rely on: identity lookups skip soft
// deleted rows, the *Any variants include them, restore keeps the id.
type fakeAccounts struct {
	mu      sync.Mutex
	records map[uuid.UUID]*accounts.Account

	attemptedLogins  int
	successfulLogins int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{records: map[uuid.UUID]*accounts.Account{}}
}

func cloneAccount(a *accounts.Account) *accounts.Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func (f *fakeAccounts) add(a *accounts.Account) *accounts.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.records[a.ID] = cloneAccount(a)
	return cloneAccount(a)
}

func notFound(meta map[string]any) error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).WithMetadata(meta)
}

func (f *fakeAccounts) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.records {
		if a.Email == email && !a.IsDeleted() {
			return cloneAccount(a), nil
		}
	}
	return nil, notFound(map[string]any{"email": email})
}

func (f *fakeAccounts) GetByEmailTx(ctx context.Context, _ bun.IDB, email string) (*accounts.Account, error) {
	return f.GetByEmail(ctx, email)
}

func (f *fakeAccounts) GetByEmailAny(ctx context.Context, email string) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.records {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, notFound(map[string]any{"email": email})
}

func (f *fakeAccounts) GetByEmailAnyTx(ctx context.Context, _ bun.IDB, email string) (*accounts.Account, error) {
	return f.GetByEmailAny(ctx, email)
}

func (f *fakeAccounts) GetByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.records[id]; ok {
		return cloneAccount(a), nil
	}
	return nil, notFound(map[string]any{"id": id.String()})
}

func (f *fakeAccounts) GetByIDTx(ctx context.Context, _ bun.IDB, id uuid.UUID) (*accounts.Account, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeAccounts) AllActive(ctx context.Context) ([]*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*accounts.Account{}
	for _, a := range f.records {
		if !a.IsDeleted() {
			out = append(out, cloneAccount(a))
		}
	}
	return out, nil
}

func (f *fakeAccounts) Create(ctx context.Context, record *accounts.Account) (*accounts.Account, error) {
	return f.CreateTx(ctx, nil, record)
}

func (f *fakeAccounts) CreateTx(_ context.Context, _ bun.IDB, record *accounts.Account) (*accounts.Account, error) {
	return f.add(record), nil
}

func (f *fakeAccounts) Update(ctx context.Context, record *accounts.Account) (*accounts.Account, error) {
	return f.UpdateTx(ctx, nil, record)
}

func (f *fakeAccounts) UpdateTx(_ context.Context, _ bun.IDB, record *accounts.Account) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[record.ID]; !ok {
		return nil, notFound(map[string]any{"id": record.ID.String()})
	}
	f.records[record.ID] = cloneAccount(record)
	return cloneAccount(record), nil
}

func (f *fakeAccounts) RestoreTx(_ context.Context, _ bun.IDB, record *accounts.Account) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.records[record.ID]
	if !ok || !existing.IsDeleted() {
		return nil, notFound(map[string]any{"id": record.ID.String()})
	}

	now := time.Now()
	restored := cloneAccount(record)
	restored.DeletedAt = nil
	restored.MarkEmailVerified(now)
	restored.UpdatedAt = &now
	f.records[record.ID] = restored
	return cloneAccount(restored), nil
}

func (f *fakeAccounts) ResetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return f.ResetPasswordTx(ctx, nil, id, hash)
}

func (f *fakeAccounts) ResetPasswordTx(_ context.Context, _ bun.IDB, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.records[id]
	if !ok || a.IsDeleted() {
		return notFound(map[string]any{"id": id.String()})
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeAccounts) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return f.SoftDeleteTx(ctx, nil, id)
}

func (f *fakeAccounts) SoftDeleteTx(_ context.Context, _ bun.IDB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.records[id]
	if !ok || a.IsDeleted() {
		return nil
	}
	now := time.Now()
	a.DeletedAt = &now
	return nil
}

func (f *fakeAccounts) TrackAttemptedLogin(_ context.Context, account *accounts.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attemptedLogins++
	if a, ok := f.records[account.ID]; ok {
		a.LoginAttempts = account.LoginAttempts + 1
		now := time.Now()
		a.LoginAttemptAt = &now
	}
	return nil
}

func (f *fakeAccounts) TrackSuccessfulLogin(_ context.Context, account *accounts.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successfulLogins++
	if a, ok := f.records[account.ID]; ok {
		a.LoginAttempts = 0
		a.LoginAttemptAt = nil
		now := time.Now()
		a.LoggedInAt = &now
	}
	return nil
}

// fakeRepoManager satisfies RepositoryManager over the fake repository.
// RunInTx executes the function directly; the fake ignores the tx.
type fakeRepoManager struct {
	accounts *fakeAccounts
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{accounts: newFakeAccounts()}
}

func (m *fakeRepoManager) Validate() error { return nil }
func (m *fakeRepoManager) MustValidate()   {}

func (m *fakeRepoManager) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *fakeRepoManager) Accounts() accounts.Accounts {
	return m.accounts
}

type sentSecret struct {
	email  string
	secret string
}

// captureNotifier records deliveries on buffered channels so tests can
// wait for the fire and forget goroutines.
type captureNotifier struct {
	verifications chan sentSecret
	resets        chan sentSecret
	digests       chan string
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{
		verifications: make(chan sentSecret, 8),
		resets:        make(chan sentSecret, 8),
		digests:       make(chan string, 8),
	}
}

func (n *captureNotifier) SendVerification(_ context.Context, email, secret string) error {
	n.verifications <- sentSecret{email: email, secret: secret}
	return nil
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, email, secret string) error {
	n.resets <- sentSecret{email: email, secret: secret}
	return nil
}

func (n *captureNotifier) SendDigestCompleted(_ context.Context, email string, _ accounts.DigestNotification) error {
	n.digests <- email
	return nil
}

func waitDelivery[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		panic("unreachable")
	}
}

// fakeObjectStore records uploads and returns a canned URL.
type fakeObjectStore struct {
	url         string
	defaultURL  string
	err         error
	lastOwner   string
	lastType    string
	lastPayload []byte
}

func (s *fakeObjectStore) Put(_ context.Context, ownerID string, data []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.lastOwner = ownerID
	s.lastType = contentType
	s.lastPayload = data
	return s.url, nil
}

func (s *fakeObjectStore) DefaultImageURL() string {
	return s.defaultURL
}
