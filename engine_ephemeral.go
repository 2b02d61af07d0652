package authcore

import (
	"context"

	"github.com/platformid/authcore/token"
)

// IssuePasswordResetToken mints a one-shot password-reset token for userID.
// Reset tokens are never entered into the revocation cache: their liveness
// is bounded entirely by the short embedded expiry, and consumption is made
// safe by the irreversible state change (the password overwrite) performed
// immediately after a successful verify.
func (e *Engine) IssuePasswordResetToken(ctx context.Context, userID string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}

	signed, err := e.codec.Sign(token.KindPasswordReset, userID, "")
	if err != nil {
		return "", mapCodecError(err)
	}

	e.metrics.inc(MetricResetIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventResetIssue,
		UserID:    userID,
		Success:   true,
	})

	return signed, nil
}

// ConsumePasswordReset verifies a password-reset token and returns the
// subject it was minted for. The caller must apply the state change right
// away; the token stays technically verifiable until its natural expiry.
func (e *Engine) ConsumePasswordReset(ctx context.Context, resetToken string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.codec.Verify(token.KindPasswordReset, resetToken)
	if err != nil {
		e.countVerifyFailure(err)
		return "", mapCodecError(err)
	}

	e.metrics.inc(MetricResetConsumed)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventResetConsume,
		UserID:    claims.Subject,
		Success:   true,
	})

	return claims.Subject, nil
}

// ResetPassword consumes a reset token and overwrites the user's password
// hash in one step. Repeating the call with the same token and password is
// harmless: it resets to the same value.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}
	if e.users == nil {
		return ErrUserNotFound
	}

	userID, err := e.ConsumePasswordReset(ctx, resetToken)
	if err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	return e.users.SetPasswordHash(ctx, userID, hash)
}

// IssueEmailVerificationToken mints a one-shot token binding userID to the
// email address being verified. The address travels inside the signed
// payload so consumption needs no extra lookup to learn what was verified.
func (e *Engine) IssueEmailVerificationToken(ctx context.Context, userID, email string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}

	signed, err := e.codec.Sign(token.KindEmailVerification, userID, email)
	if err != nil {
		return "", mapCodecError(err)
	}

	e.metrics.inc(MetricVerificationIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventVerificationIssue,
		UserID:    userID,
		Recipient: email,
		Success:   true,
	})

	return signed, nil
}

// ConsumeEmailVerification verifies an email-verification token and returns
// the embedded address.
func (e *Engine) ConsumeEmailVerification(ctx context.Context, verificationToken string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.codec.Verify(token.KindEmailVerification, verificationToken)
	if err != nil {
		e.countVerifyFailure(err)
		return "", mapCodecError(err)
	}

	e.metrics.inc(MetricVerificationConsumed)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventVerificationConsume,
		UserID:    claims.Subject,
		Recipient: claims.Email,
		Success:   true,
	})

	return claims.Email, nil
}

// VerifyEmail consumes a verification token and flips the stored account's
// verified flag. Marking an already-verified address again is a no-op by
// construction.
func (e *Engine) VerifyEmail(ctx context.Context, verificationToken string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}
	if e.users == nil {
		return ErrUserNotFound
	}

	claims, err := e.codec.Verify(token.KindEmailVerification, verificationToken)
	if err != nil {
		e.countVerifyFailure(err)
		return mapCodecError(err)
	}

	userID := claims.Subject
	if userID == "" {
		user, err := e.users.FindUserByEmail(ctx, claims.Email)
		if err != nil {
			return ErrUserNotFound
		}
		userID = user.UserID
	}

	if err := e.users.SetEmailVerified(ctx, userID, true); err != nil {
		return err
	}

	e.metrics.inc(MetricVerificationConsumed)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventVerificationConsume,
		UserID:    userID,
		Recipient: claims.Email,
		Success:   true,
	})

	return nil
}
