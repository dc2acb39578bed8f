package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Theme is the account's UI theme preference
type Theme = string

const (
	// ThemeLight is the default theme assigned at signup
	ThemeLight Theme = "light"
	// ThemeDark is the dark theme
	ThemeDark Theme = "dark"
)

// BirthDateLayout is the wire format for birth dates.
const BirthDateLayout = "2006-01-02"

// Account is the account model. The ID is the opaque account identifier
// assigned at creation; it never changes, not even across soft delete
// and restore.
type Account struct {
	bun.BaseModel   `bun:"table:accounts,alias:acc"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email           string     `bun:"email,notnull" json:"email,omitempty"`
	PasswordHash    string     `bun:"password_hash,notnull" json:"-"`
	DisplayName     string     `bun:"display_name,notnull" json:"display_name,omitempty"`
	BirthDate       string     `bun:"birth_date" json:"birth_date,omitempty"`
	Theme           Theme      `bun:"theme,notnull" json:"theme,omitempty"`
	ProfileImageURL string     `bun:"profile_image_url" json:"profile_image_url,omitempty"`
	EmailVerified   bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	EmailVerifiedAt *time.Time `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	LoginAttempts   int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt  *time.Time `bun:"login_attempt_at,nullzero" json:"login_attempt_at,omitempty"`
	LoggedInAt      *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt       *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the account is soft deleted.
func (a *Account) IsDeleted() bool {
	return a != nil && a.DeletedAt != nil
}

// MarkEmailVerified flags the email as verified at the given time.
func (a *Account) MarkEmailVerified(at time.Time) *Account {
	a.EmailVerified = true
	a.EmailVerifiedAt = &at
	return a
}

// normalizeEmail makes email handling explicit and consistent: emails
// are compared and stored trimmed and lower cased at every boundary.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = normalizeEmail(record.Email)
	if record.Theme == "" {
		record.Theme = ThemeLight
	}
}
