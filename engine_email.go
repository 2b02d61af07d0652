package authcore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/platformid/authcore/mailqueue"
)

// QueueEmail renders the named template and persists a delivery job. The
// queue payload carries the fully resolved text and html bodies; enqueueing
// never performs transport I/O, so the caller's request completes regardless
// of mail-server health.
func (e *Engine) QueueEmail(ctx context.Context, recipient, subject, templateName string, placeholders map[string]any) error {
	if e == nil || e.queue == nil {
		return ErrEngineNotReady
	}

	html, text, err := e.renderer.Render(templateName, placeholders)
	if err != nil {
		return err
	}

	job := &mailqueue.Job{
		ID:          uuid.NewString(),
		Recipient:   recipient,
		Subject:     subject,
		Template:    templateName,
		Text:        text,
		HTML:        html,
		MaxAttempts: e.config.Queue.MaxAttempts,
		BackoffMs:   e.config.Queue.Backoff.Milliseconds(),
		EnqueuedAt:  time.Now().Unix(),
	}

	if err := e.queue.Enqueue(ctx, job); err != nil {
		return mapQueueError(err)
	}

	e.metrics.inc(MetricEmailEnqueued)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventEmailEnqueue,
		Recipient: recipient,
		Success:   true,
		Metadata:  map[string]string{"subject": subject, "template": templateName},
	})

	return nil
}

// SendPasswordResetEmail mints a reset token for the user and queues the
// password-reset notification carrying the callback link.
func (e *Engine) SendPasswordResetEmail(ctx context.Context, userID, username, email string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}

	resetToken, err := e.IssuePasswordResetToken(ctx, userID)
	if err != nil {
		return err
	}

	link, err := urlWithToken(e.config.PasswordReset.CallbackURL, resetToken)
	if err != nil {
		return err
	}

	return e.QueueEmail(ctx, email, "Password Reset Request", "password-reset", map[string]any{
		"AppName":        e.config.Email.AppName,
		"Username":       username,
		"ResetLink":      link,
		"ExpiresIn":      humanizeDuration(e.config.PasswordReset.Lifetime),
		"ContactSupport": e.config.Email.SupportContact,
	})
}

// SendVerificationEmail mints an email-verification token and queues the
// verification notification carrying the callback link.
func (e *Engine) SendVerificationEmail(ctx context.Context, userID, username, email string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}

	verificationToken, err := e.IssueEmailVerificationToken(ctx, userID, email)
	if err != nil {
		return err
	}

	link, err := urlWithToken(e.config.EmailVerification.CallbackURL, verificationToken)
	if err != nil {
		return err
	}

	return e.QueueEmail(ctx, email, "Verify Your Email", "email-verification", map[string]any{
		"AppName":          e.config.Email.AppName,
		"Username":         username,
		"VerificationLink": link,
		"ContactSupport":   e.config.Email.SupportContact,
	})
}

// SendWelcomeEmail queues the post-registration welcome notification.
func (e *Engine) SendWelcomeEmail(ctx context.Context, username, email string) error {
	if e == nil || e.queue == nil {
		return ErrEngineNotReady
	}

	return e.QueueEmail(ctx, email, fmt.Sprintf("Welcome to %s", e.config.Email.AppName), "welcome", map[string]any{
		"AppName":        e.config.Email.AppName,
		"Username":       username,
		"ContactSupport": e.config.Email.SupportContact,
	})
}

func urlWithToken(base, tokenValue string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil || base == "" {
		return "", fmt.Errorf("%w: invalid callback url %q", ErrConfiguration, base)
	}
	query := parsed.Query()
	query.Set("token", tokenValue)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// humanizeDuration renders a lifetime for user-facing email copy.
func humanizeDuration(d time.Duration) string {
	plural := func(n int64, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return plural(int64(d/(24*time.Hour)), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int64(d/time.Minute), "minute")
	default:
		return plural(int64(d/time.Second), "second")
	}
}
