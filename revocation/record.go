package revocation

import (
	"strconv"
	"time"
)

// Record is the per-token revocation-cache entry. The issuance fields are
// written by Put and never change afterwards; RevokedAt and RevokedReason
// are set only by MarkRevoked. Presence of RevokedAt is the sole signal a
// token is dead.
type Record struct {
	UserID    string
	IPAddress string
	UserAgent string
	TokenHash string
	ExpiresAt time.Time

	RevokedAt     time.Time
	RevokedReason string
}

// Revoked reports whether the revocation fields have been set.
func (r *Record) Revoked() bool {
	return !r.RevokedAt.IsZero()
}

const (
	fieldUserID        = "userId"
	fieldIPAddress     = "ipAddress"
	fieldUserAgent     = "userAgent"
	fieldTokenHash     = "hashedToken"
	fieldExpiresAt     = "expiresAt"
	fieldRevokedAt     = "revokedAt"
	fieldRevokedReason = "revokedReason"
)

func (r *Record) fields() map[string]interface{} {
	return map[string]interface{}{
		fieldUserID:    r.UserID,
		fieldIPAddress: r.IPAddress,
		fieldUserAgent: r.UserAgent,
		fieldTokenHash: r.TokenHash,
		fieldExpiresAt: strconv.FormatInt(r.ExpiresAt.Unix(), 10),
	}
}

func recordFromFields(fields map[string]string) *Record {
	rec := &Record{
		UserID:        fields[fieldUserID],
		IPAddress:     fields[fieldIPAddress],
		UserAgent:     fields[fieldUserAgent],
		TokenHash:     fields[fieldTokenHash],
		RevokedReason: fields[fieldRevokedReason],
	}

	if raw := fields[fieldExpiresAt]; raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			rec.ExpiresAt = time.Unix(unix, 0)
		}
	}
	if raw := fields[fieldRevokedAt]; raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			rec.RevokedAt = time.Unix(unix, 0)
		}
	}

	return rec
}
