package authcore

import (
	"context"
	"io"

	"github.com/platformid/authcore/internal/audit"
	"github.com/platformid/authcore/mailqueue"
	"github.com/platformid/authcore/token"
)

// RevokeReason is the closed set of reasons a session token can be revoked.
// Reasons feed audit records and user-facing messaging only.
type RevokeReason string

const (
	// RevokeExpired marks a token retired after its natural expiry.
	RevokeExpired RevokeReason = "Expired"
	// RevokeNewTokenRequested marks the old token after a renewal.
	RevokeNewTokenRequested RevokeReason = "New Token Requested"
	// RevokeSecurityIssue marks a token revoked for suspected abuse.
	RevokeSecurityIssue RevokeReason = "Security Issue"
	// RevokeCancelled marks a flow the user abandoned.
	RevokeCancelled RevokeReason = "Cancelled"
	// RevokeAlreadyUsed marks a token that may not be replayed.
	RevokeAlreadyUsed RevokeReason = "Already Used"
	// RevokePasswordChanged marks sessions invalidated by a password change.
	RevokePasswordChanged RevokeReason = "Password Changed"
	// RevokeEmailChanged marks verification tokens orphaned by an email change.
	RevokeEmailChanged RevokeReason = "Email Changed"
	// RevokeAdminRevoked marks an administrative revocation.
	RevokeAdminRevoked RevokeReason = "Admin Revoked"
)

// Claims is the decoded payload handed back to callers after a successful
// verification. Tokens are opaque strings everywhere outside the codec.
type Claims = token.Claims

// UserRecord is the minimal account view the engine needs to complete
// password-reset and email-verification flows.
type UserRecord struct {
	UserID        string
	Username      string
	Email         string
	PasswordHash  string
	EmailVerified bool
}

// UserStore is the credential/user persistence collaborator. The engine uses
// it only to resolve a consumed token back to an account and to apply the
// irreversible state change that consumption implies.
type UserStore interface {
	FindUserByID(ctx context.Context, userID string) (UserRecord, error)
	FindUserByEmail(ctx context.Context, email string) (UserRecord, error)
	FindUserByUsername(ctx context.Context, username string) (UserRecord, error)
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
	SetEmailVerified(ctx context.Context, userID string, verified bool) error
}

// Message is a fully rendered outbound email.
type Message = mailqueue.Message

// Mailer is the mail-transport collaborator consumed by the dispatch
// workers.
type Mailer = mailqueue.Mailer

// EmailJob is one queued email delivery.
type EmailJob = mailqueue.Job

// AuditEvent is a structured security/delivery event emitted by the engine.
type AuditEvent = audit.Event

// AuditSink receives AuditEvent values from the engine's dispatcher.
type AuditSink = audit.Sink

// NoOpSink is an AuditSink that silently discards all events.
type NoOpSink = audit.NoOpSink

// ChannelSink is a buffered channel-based AuditSink.
type ChannelSink = audit.ChannelSink

// JSONWriterSink is an AuditSink writing one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a JSONWriterSink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
