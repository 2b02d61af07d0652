package authcore

import (
	"context"
	"time"
)

const (
	auditEventSessionIssue        = "session.issue"
	auditEventSessionRenew        = "session.renew"
	auditEventSessionRevoke       = "session.revoke"
	auditEventSessionRevokeFailed = "session.revoke_failed"
	auditEventResetIssue          = "password_reset.issue"
	auditEventResetConsume        = "password_reset.consume"
	auditEventVerificationIssue   = "email_verification.issue"
	auditEventVerificationConsume = "email_verification.consume"
	auditEventEmailEnqueue        = "email.enqueue"
	auditEventEmailCompleted      = "email.completed"
	auditEventEmailExhausted      = "email.exhausted"
)

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	e.audit.Emit(ctx, event)
}

// AuditDropped reports audit events discarded because the dispatcher buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}
