package accounts

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// sessionAccountKey is the request local under which the authorized
// account is stored by RequireSession.
const sessionAccountKey = "accounts:session_account"

// HTTPController exposes the account operations over fiber. Every
// route delegates to a command handler or to the Authenticator; the
// controller only translates between HTTP and messages.
type HTTPController struct {
	auth         Authenticator
	verifier     VerificationBackend
	repo         RepositoryManager
	verification *VerificationRequestHandler
	signup       *FinalizeSignupHandler
	reset        *FinalizePasswordResetHandler
	profile      *UpdateProfileHandler
	profileImage *UpdateProfileImageHandler
	deletion     *DeleteAccountHandler
	digest       *DigestCompletedHandler
	logger       Logger
}

// NewHTTPController wires the HTTP surface. All handlers are required
// except profileImage, which may be nil when no object store is
// configured; the route then rejects uploads.
func NewHTTPController(
	auth Authenticator,
	verifier VerificationBackend,
	repo RepositoryManager,
	verification *VerificationRequestHandler,
	signup *FinalizeSignupHandler,
	reset *FinalizePasswordResetHandler,
	profile *UpdateProfileHandler,
	profileImage *UpdateProfileImageHandler,
	deletion *DeleteAccountHandler,
	digest *DigestCompletedHandler,
) *HTTPController {
	return &HTTPController{
		auth:         auth,
		verifier:     verifier,
		repo:         repo,
		verification: verification,
		signup:       signup,
		reset:        reset,
		profile:      profile,
		profileImage: profileImage,
		deletion:     deletion,
		digest:       digest,
		logger:       defLogger{},
	}
}

// WithLogger overrides the logger used by the controller.
func (ctrl *HTTPController) WithLogger(logger Logger) *HTTPController {
	if logger != nil {
		ctrl.logger = logger
	}
	return ctrl
}

// RegisterRoutes mounts every account route on the router.
func (ctrl *HTTPController) RegisterRoutes(router fiber.Router) {
	users := router.Group("/users")

	users.Post("/email/verify", ctrl.RequestEmailVerification)
	users.Get("/email/confirm", ctrl.ConfirmEmail)
	users.Post("/signup", ctrl.Signup)
	users.Post("/login", ctrl.Login)
	users.Post("/password-reset/request", ctrl.RequestPasswordReset)
	users.Post("/password-reset/confirm", ctrl.ConfirmPasswordReset)
	users.Get("/", ctrl.ListAccounts)

	users.Get("/profile", ctrl.RequireSession, ctrl.GetProfile)
	users.Put("/profile", ctrl.RequireSession, ctrl.UpdateProfile)
	users.Post("/profile-image", ctrl.RequireSession, ctrl.UpdateProfileImage)
	users.Delete("/", ctrl.RequireSession, ctrl.DeleteAccount)
	users.Post("/digest/completed", ctrl.RequireSession, ctrl.DigestCompleted)
}

// RequireSession authorizes the bearer token and stores the resolved
// account in the request locals.
func (ctrl *HTTPController) RequireSession(c *fiber.Ctx) error {
	bearer := c.Get(fiber.HeaderAuthorization)
	if bearer == "" {
		return ctrl.renderError(c, goerrors.New("missing authorization header", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized))
	}

	token := strings.TrimSpace(strings.TrimPrefix(bearer, "Bearer "))
	if token == "" || token == bearer {
		return ctrl.renderError(c, goerrors.New("malformed authorization header", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized))
	}

	account, err := ctrl.auth.Authorize(c.Context(), token)
	if err != nil {
		return ctrl.renderError(c, err)
	}

	c.Locals(sessionAccountKey, account)

	return c.Next()
}

func sessionAccount(c *fiber.Ctx) (*Account, error) {
	account, ok := c.Locals(sessionAccountKey).(*Account)
	if !ok || account == nil {
		return nil, goerrors.New("no session account in request", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}
	return account, nil
}

type emailPayload struct {
	Email string `json:"email"`
}

// RequestEmailVerification issues and delivers a signup secret.
func (ctrl *HTTPController) RequestEmailVerification(c *fiber.Ctx) error {
	payload := emailPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ctrl.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body"))
	}

	err := ctrl.verification.Execute(c.Context(), VerificationRequestMessage{
		Email:   payload.Email,
		Purpose: PurposeSignup,
	})
	if err != nil {
		return ctrl.renderError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "verification sent",
	})
}

// ConfirmEmail checks a secret against the pending verification for the
// email. It consumes a code backed secret; clients that confirm here
// must pass the signed token to signup instead when the token backend
// is active.
func (ctrl *HTTPController) ConfirmEmail(c *fiber.Ctx) error {
	email := c.Query("email")
	secret := c.Query("secret")
	if email == "" || secret == "" {
		return ctrl.renderError(c, goerrors.New("email and secret are required", goerrors.CategoryBadInput))
	}

	if err := ctrl.verifier.Verify(c.Context(), normalizeEmail(email), PurposeSignup, secret); err != nil {
		return ctrl.renderError(c, err)
	}

	return c.JSON(fiber.Map{"verified": true})
}

type signupPayload struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	BirthDate   string `json:"birth_date"`
	Secret      string `json:"secret"`
}

// Signup finalizes registration with a verified secret.
func (ctrl *HTTPController) Signup(c *fiber.Ctx) error {
	payload := signupPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ctrl.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body"))
	}

	var created *Account
	err := ctrl.signup.Execute(c.Context(), FinalizeSignupMessage{
		Email:       payload.Email,
		Password:    payload.Password,
		DisplayName: payload.DisplayName,
		BirthDate:   payload.BirthDate,
		Secret:      payload.Secret,
		OnResponse: func(account *Account) {
			created = account
		},
	})
	if err != nil {
		return ctrl.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"account": created})
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login validates credentials and returns a session token.
func (ctrl *HTTPController) Login(c *fiber.Ctx) error {
	payload := loginPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ctrl.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body"))
	}

	token, err := ctrl.auth.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return ctrl.renderError(c, err)
	}

	return c.JSON(fiber.Map{"token": token})
}

// RequestPasswordReset issues and delivers a password reset secret.
func (ctrl *HTTPController) RequestPasswordReset(c *fiber.Ctx) error {
	payload := emailPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ctrl.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body"))
	}

	err := ctrl.verification.Execute(c.Context(), VerificationRequestMessage{
		Email:   payload.Email,
		Purpose: PurposePasswordReset,
	})
	if err != nil {
		return ctrl.renderError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "password reset sent",
	})
}

type passwordResetPayload struct {
	Email    string `json:"email"`
	Secret   string `json:"secret"`
	Password string `json:"password"`
}

// ConfirmPasswordReset completes a reset with a delivered secret.
func (ctrl *HTTPController) ConfirmPasswordReset(c *fiber.Ctx) error {
	payload := passwordResetPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ctrl.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body"))
	}

	err := ctrl.reset.Execute(c.Context(), FinalizePasswordResetMessage{
		Email:    payload.Email,
		Secret:   payload.Secret,
		Password: payload.Password,
	})
	if err != nil {
		return ctrl.renderError(c, err)
	}

	return c.JSON(fiber.Map{"message": "password updated"})
}

// ListAccounts returns every active account.
func (ctrl *HTTPController) ListAccounts(c *fiber.Ctx) error {
	accounts, err := ctrl.repo.Accounts().AllActive(c.Context())
	if err != nil {
		return ctrl.renderError(c, err)
	}

	return c.JSON(fiber.Map{"accounts": accounts})
}

// GetProfile returns the authorized account.
func (ctrl *HTTPController) GetProfile(c *fiber.Ctx) error {
	account, err := sessionAccount(c)
	if err != nil {
		return ctrl.renderError(c, err)
	}

	return c.JSON(fiber.Map{"account": account})
}

type profilePayload struct {
	DisplayName string `json:"display_name"`
	BirthDate   string `json:"birth_date"`
	Theme       Theme  `json:"theme"`
}

// UpdateProfile mutates the profile of the authorized account.
func (ctrl *HTTPController) UpdateProfile(c *fiber.Ctx) error {
	account, err := sessionAccount(c)
	if err != nil {
		return ctrl.renderError(c, err)
	}

	payload := profilePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ctrl.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body"))
	}

	var updated *Account
	err = ctrl.profile.Execute(c.Context(), UpdateProfileMessage{
		AccountID:   account.ID,
		DisplayName: payload.DisplayName,
		BirthDate:   payload.BirthDate,
		Theme:       payload.Theme,
		OnResponse: func(account *Account) {
			updated = account
		},
	})
	if err != nil {
		return ctrl.renderError(c, err)
	}

	return c.JSON(fiber.Map{"account": updated})
}

// UpdateProfileImage accepts a multipart upload under the "image" field
// and stores it as the profile image of the authorized account.
func (ctrl *HTTPController) UpdateProfileImage(c *fiber.Ctx) error {
	account, err := sessionAccount(c)
	if err != nil {
		return ctrl.renderError(c, err)
	}

	if ctrl.profileImage == nil {
		return ctrl.renderError(c, goerrors.New("profile image uploads are disabled", goerrors.CategoryOperation))
	}

	header, err := c.FormFile("image")
	if err != nil {
		return ctrl.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "image file is required"))
	}

	if header.Size > MaxProfileImageBytes {
		return ctrl.renderError(c, goerrors.New("image exceeds the size limit", goerrors.CategoryBadInput))
	}

	file, err := header.Open()
	if err != nil {
		return ctrl.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read uploaded image"))
	}
	defer file.Close()

	data := make([]byte, header.Size)
	if _, err := io.ReadFull(file, data); err != nil {
		return ctrl.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read uploaded image"))
	}

	var updated *Account
	err = ctrl.profileImage.Execute(c.Context(), UpdateProfileImageMessage{
		AccountID:   account.ID,
		Data:        data,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		OnResponse: func(account *Account) {
			updated = account
		},
	})
	if err != nil {
		return ctrl.renderError(c, err)
	}

	return c.JSON(fiber.Map{"account": updated})
}

// DeleteAccount soft deletes the authorized account.
func (ctrl *HTTPController) DeleteAccount(c *fiber.Ctx) error {
	account, err := sessionAccount(c)
	if err != nil {
		return ctrl.renderError(c, err)
	}

	if err := ctrl.deletion.Execute(c.Context(), DeleteAccountMessage{AccountID: account.ID}); err != nil {
		return ctrl.renderError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type digestPayload struct {
	Title       string `json:"title"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Summary     string `json:"summary"`
}

// DigestCompleted notifies the authorized account that a digest has
// been produced.
func (ctrl *HTTPController) DigestCompleted(c *fiber.Ctx) error {
	account, err := sessionAccount(c)
	if err != nil {
		return ctrl.renderError(c, err)
	}

	payload := digestPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ctrl.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body"))
	}

	err = ctrl.digest.Execute(c.Context(), DigestCompletedMessage{
		AccountID:   account.ID,
		Title:       payload.Title,
		PeriodStart: payload.PeriodStart,
		PeriodEnd:   payload.PeriodEnd,
		Summary:     payload.Summary,
	})
	if err != nil {
		return ctrl.renderError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "digest notification sent"})
}

// renderError maps domain errors to HTTP responses. Internal errors are
// logged with their cause and returned as an opaque message.
func (ctrl *HTTPController) renderError(c *fiber.Ctx, err error) error {
	status := HTTPStatus(err)

	message := "internal server error"
	code := ""

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		code = string(richErr.TextCode)
		if status < fiber.StatusInternalServerError {
			message = richErr.Message
		}
	} else if status < fiber.StatusInternalServerError {
		message = err.Error()
	}

	if status >= fiber.StatusInternalServerError {
		ctrl.logger.Error("request failed", "path", c.Path(), "error", err)
	}

	body := fiber.Map{"error": message}
	if code != "" {
		body["code"] = code
	}

	return c.Status(status).JSON(body)
}
