package mail

import (
	"context"

	"collabhub.org/internal/obs"
)

// Sender delivers outbound mail. Delivery transport is outside the core;
// implementations may wrap SMTP, an external API, or nothing at all.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes outbound mail to the structured log instead of sending
// it. Used in development and tests.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, body string) error {
	obs.LogRequest(map[string]any{
		"level":   "info",
		"msg":     "mail_sent",
		"to":      to,
		"subject": subject,
	})
	return nil
}
