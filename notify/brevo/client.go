// Package brevo delivers account notifications through the Brevo
// transactional email API.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"

	accounts "github.com/goliatone/go-accounts"
)

const apiURL = "https://api.brevo.com/v3/smtp/email"

// Client implements accounts.Notifier on top of the Brevo REST API.
type Client struct {
	apiKey      string
	senderName  string
	senderEmail string
	httpClient  *http.Client
}

// Option mutates the client during construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a Brevo backed notifier.
func New(apiKey, senderName, senderEmail string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		senderName:  senderName,
		senderEmail: senderEmail,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type party struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendEmailRequest struct {
	Sender      party   `json:"sender"`
	To          []party `json:"to"`
	Subject     string  `json:"subject"`
	HTMLContent string  `json:"htmlContent"`
}

// SendVerification mails a signup verification secret.
func (c *Client) SendVerification(ctx context.Context, email, secret string) error {
	html := fmt.Sprintf(`<html><body>
<p>Welcome! Use the code below to verify your email address.</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px;">%s</p>
<p>The code expires in 15 minutes. If you did not request it, ignore this message.</p>
</body></html>`, secret)

	return c.send(ctx, email, "Verify your email address", html)
}

// SendPasswordReset mails a password reset secret.
func (c *Client) SendPasswordReset(ctx context.Context, email, secret string) error {
	html := fmt.Sprintf(`<html><body>
<p>We received a request to reset your password. Use the code below to continue.</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px;">%s</p>
<p>The code expires in 15 minutes. If you did not request a reset, ignore this message.</p>
</body></html>`, secret)

	return c.send(ctx, email, "Reset your password", html)
}

// SendDigestCompleted mails a digest completion notice.
func (c *Client) SendDigestCompleted(ctx context.Context, email string, digest accounts.DigestNotification) error {
	html := fmt.Sprintf(`<html><body>
<h2>%s</h2>
<p>Your digest for %s to %s is ready.</p>
<p>%s</p>
</body></html>`, digest.Title, digest.PeriodStart, digest.PeriodEnd, digest.Summary)

	return c.send(ctx, email, digest.Title, html)
}

func (c *Client) send(ctx context.Context, email, subject, html string) error {
	if c.apiKey == "" {
		return goerrors.New("brevo api key is not configured", goerrors.CategoryOperation)
	}

	payload := sendEmailRequest{
		Sender:      party{Email: c.senderEmail, Name: c.senderName},
		To:          []party{{Email: email}},
		Subject:     subject,
		HTMLContent: html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode email payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build email request")
	}

	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "email delivery request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := map[string]any{}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return goerrors.New(
				fmt.Sprintf("email delivery rejected with status %d", resp.StatusCode),
				goerrors.CategoryOperation,
			)
		}
		return goerrors.New(
			fmt.Sprintf("email delivery rejected with status %d: %v", resp.StatusCode, apiErr),
			goerrors.CategoryOperation,
		)
	}

	return nil
}
