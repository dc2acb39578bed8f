package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/logging"
	"github.com/goliatone/go-accounts/notify/brevo"
	"github.com/goliatone/go-accounts/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := accounts.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DBPath)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := accounts.CreateSchema(ctx, db); err != nil {
		return err
	}

	repo := accounts.NewRepositoryManager(db)
	repo.MustValidate()

	tokens := accounts.NewTokenService(
		[]byte(cfg.SigningKey),
		cfg.Issuer,
		cfg.Audience,
		accounts.WithTokenLogger(logger),
	)

	var verifier accounts.VerificationBackend
	switch cfg.VerificationBackend {
	case "token":
		verifier = accounts.NewTokenVerification(tokens, cfg.VerificationTTL)
	default:
		var store accounts.SecretStore
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			if err := client.Ping(ctx).Err(); err != nil {
				return err
			}
			store = accounts.NewRedisSecretStore(client, accounts.WithRedisSecretTTL(cfg.VerificationTTL))
		} else {
			store = accounts.NewMemorySecretStore(accounts.WithSecretTTL(cfg.VerificationTTL))
		}
		verifier = accounts.NewCodeVerification(store)
	}

	var notifier accounts.Notifier
	if cfg.BrevoAPIKey != "" {
		notifier = brevo.New(cfg.BrevoAPIKey, cfg.BrevoSenderName, cfg.BrevoSenderEmail)
	} else {
		logger.Warn("no mail provider configured, notifications go to the log")
		notifier = accounts.NewLogNotifier(logger)
	}

	var images accounts.ObjectStore
	if cfg.S3Bucket != "" {
		images, err = storage.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket,
			storage.WithPublicBaseURL(cfg.S3PublicBaseURL),
			storage.WithDefaultImageURL(cfg.DefaultImageURL),
		)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("no object store configured, profile image uploads are disabled")
	}

	provider := accounts.NewRepositoryAccountProvider(repo).WithLogger(logger)
	auther := accounts.NewAuthenticator(provider, tokens, cfg.SessionTTL).WithLogger(logger)

	verification := accounts.NewVerificationRequestHandler(repo, verifier, notifier).WithLogger(logger)
	signup := accounts.NewFinalizeSignupHandler(repo, verifier).WithLogger(logger)
	if images != nil {
		signup = signup.WithObjectStore(images)
	}
	reset := accounts.NewFinalizePasswordResetHandler(repo, verifier).WithLogger(logger)
	profile := accounts.NewUpdateProfileHandler(repo).WithLogger(logger)
	var profileImage *accounts.UpdateProfileImageHandler
	if images != nil {
		profileImage = accounts.NewUpdateProfileImageHandler(repo, images).WithLogger(logger)
	}
	deletion := accounts.NewDeleteAccountHandler(repo).WithLogger(logger)
	digest := accounts.NewDigestCompletedHandler(repo, notifier).WithLogger(logger)

	ctrl := accounts.NewHTTPController(
		auther,
		verifier,
		repo,
		verification,
		signup,
		reset,
		profile,
		profileImage,
		deletion,
		digest,
	).WithLogger(logger)

	app := fiber.New(fiber.Config{
		AppName:   "go-accounts",
		BodyLimit: accounts.MaxProfileImageBytes + 1<<20,
	})
	ctrl.RegisterRoutes(app)

	errc := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		errc <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.Shutdown()
	}
}
