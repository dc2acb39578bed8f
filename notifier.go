package accounts

import "context"

// DigestNotification describes a completed digest a user is told about.
type DigestNotification struct {
	Title       string `json:"title"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Summary     string `json:"summary"`
}

// Notifier delivers human facing messages over an out of band channel.
// Delivery failure is logged by callers, never propagated as a
// verification failure.
type Notifier interface {
	SendVerification(ctx context.Context, email, secret string) error
	SendPasswordReset(ctx context.Context, email, secret string) error
	SendDigestCompleted(ctx context.Context, email string, digest DigestNotification) error
}

// LogNotifier writes notifications to the log. It is the development
// fallback when no mail provider is configured.
type LogNotifier struct {
	logger Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier returns a Notifier that only logs.
func NewLogNotifier(logger Logger) *LogNotifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendVerification(_ context.Context, email, secret string) error {
	n.logger.Info("verification notification", "to", email, "secret", secret)
	return nil
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, email, secret string) error {
	n.logger.Info("password reset notification", "to", email, "secret", secret)
	return nil
}

func (n *LogNotifier) SendDigestCompleted(_ context.Context, email string, digest DigestNotification) error {
	n.logger.Info("digest completed notification", "to", email, "title", digest.Title)
	return nil
}
