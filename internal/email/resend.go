package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// sendViaResend posts msg to the Resend API. A rate limit error is returned
// wrapped so the notification job retries with backoff.
func (s *Service) sendViaResend(ctx context.Context, msg message) error {
	if s.resendClient == nil {
		return errors.New("resend client not initialized")
	}

	req := &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{msg.to},
		ReplyTo: msg.replyTo,
		Subject: msg.subject,
		Html:    msg.html,
	}
	if msg.kind != "" {
		req.Tags = []resend.Tag{{Name: "kind", Value: msg.kind}}
	}

	sent, err := s.resendClient.Emails.SendWithContext(ctx, req)
	var limited *resend.RateLimitError
	switch {
	case errors.As(err, &limited):
		s.logger.Warn().
			Str("kind", msg.kind).
			Str("limit", limited.Limit).
			Str("reset", limited.Reset).
			Msg("resend rate limit reached")
		return fmt.Errorf("resend rate limited, resets in %ss: %w", limited.Reset, err)
	case err != nil:
		return fmt.Errorf("resend %s email: %w", msg.kind, err)
	}

	s.logger.Info().Str("kind", msg.kind).Str("email_id", sent.Id).Str("to", msg.to).Msg("email sent via Resend")
	return nil
}
