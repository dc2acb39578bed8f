package accounts

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// Config carries every runtime setting of the accounts service, loaded
// from the environment.
type Config struct {
	Environment string `env:"ACCOUNTS_ENV"       envDefault:"development"`
	HTTPAddr    string `env:"ACCOUNTS_HTTP_ADDR" envDefault:":8080"`
	DBPath      string `env:"ACCOUNTS_DB_PATH"   envDefault:"file::memory:?cache=shared"`

	SigningKey string        `env:"ACCOUNTS_SIGNING_KEY,required"`
	Issuer     string        `env:"ACCOUNTS_TOKEN_ISSUER"   envDefault:"go-accounts"`
	Audience   []string      `env:"ACCOUNTS_TOKEN_AUDIENCE" envSeparator:"," envDefault:"go-accounts"`
	SessionTTL time.Duration `env:"ACCOUNTS_SESSION_TTL"    envDefault:"24h"`

	// VerificationBackend selects how verification secrets are issued:
	// "code" keeps short numeric codes in the secret store, "token"
	// issues self contained signed tokens.
	VerificationBackend string        `env:"ACCOUNTS_VERIFICATION_BACKEND" envDefault:"code"`
	VerificationTTL     time.Duration `env:"ACCOUNTS_VERIFICATION_TTL"     envDefault:"15m"`

	// RedisAddr switches the code backend to redis when set; the
	// in-process store is used otherwise.
	RedisAddr     string `env:"ACCOUNTS_REDIS_ADDR"`
	RedisPassword string `env:"ACCOUNTS_REDIS_PASSWORD"`
	RedisDB       int    `env:"ACCOUNTS_REDIS_DB" envDefault:"0"`

	// Brevo transactional mail. Notifications fall back to the logger
	// when no API key is configured.
	BrevoAPIKey      string `env:"ACCOUNTS_BREVO_API_KEY"`
	BrevoSenderName  string `env:"ACCOUNTS_BREVO_SENDER_NAME"  envDefault:"Accounts"`
	BrevoSenderEmail string `env:"ACCOUNTS_BREVO_SENDER_EMAIL"`

	// S3 backed profile image storage. Uploads are disabled when no
	// bucket is configured.
	S3Bucket        string `env:"ACCOUNTS_S3_BUCKET"`
	S3Region        string `env:"ACCOUNTS_S3_REGION" envDefault:"us-east-1"`
	S3PublicBaseURL string `env:"ACCOUNTS_S3_PUBLIC_BASE_URL"`
	DefaultImageURL string `env:"ACCOUNTS_DEFAULT_IMAGE_URL" envDefault:"https://static.goliatone.dev/accounts/default-profile.png"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load configuration")
	}

	switch cfg.VerificationBackend {
	case "code", "token":
	default:
		return nil, goerrors.New("verification backend must be code or token", goerrors.CategoryOperation)
	}

	return cfg, nil
}
