package authcore

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/platformid/authcore/revocation"
	"github.com/platformid/authcore/token"
)

// IssueSession mints a session token for userID and records the session
// metadata in the revocation cache. The cache entry's TTL is the token
// lifetime plus the configured threshold, so the record outlives the token
// by just enough to absorb clock skew, then disappears on its own.
//
// A failed cache write fails the issuance: a session the cache cannot see is
// a session that could never be revoked.
func (e *Engine) IssueSession(ctx context.Context, userID, ipAddress, userAgent string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}

	signed, err := e.codec.Sign(token.KindSession, userID, "")
	if err != nil {
		return "", mapCodecError(err)
	}

	claims, err := e.codec.Decode(signed)
	if err != nil {
		return "", mapCodecError(err)
	}

	fingerprint, err := e.hasher.Hash(signed)
	if err != nil {
		return "", err
	}

	rec := &revocation.Record{
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		TokenHash: fingerprint,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	ttl := e.codec.Lifetime(token.KindSession) + e.config.Cache.Threshold
	if err := e.cache.Put(ctx, claims.TokenID(), rec, ttl); err != nil {
		return "", mapCacheError(err)
	}

	e.metrics.inc(MetricSessionIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventSessionIssue,
		UserID:    userID,
		TokenID:   claims.TokenID(),
		IP:        ipAddress,
		Success:   true,
	})

	return signed, nil
}

// VerifySession validates a session token in two layers: the codec checks
// signature and embedded expiry, then the revocation cache is consulted for
// an explicit revocation. The second layer exists because embedded expiry
// alone cannot express early revocation (logout before natural expiry).
//
// A missing cache record means the entry's TTL lapsed and is reported as
// ErrTokenExpired. An unreachable cache fails closed with ErrUnavailable —
// a revoked session must not slip through during an outage.
func (e *Engine) VerifySession(ctx context.Context, sessionToken string) (*Claims, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.codec.Verify(token.KindSession, sessionToken)
	if err != nil {
		e.countVerifyFailure(err)
		return nil, mapCodecError(err)
	}

	rec, err := e.cache.Get(ctx, claims.TokenID())
	if err != nil {
		if errors.Is(err, revocation.ErrNotFound) {
			e.metrics.inc(MetricTokenExpired)
			return nil, ErrTokenExpired
		}
		return nil, mapCacheError(err)
	}

	if rec.Revoked() {
		return nil, &RevokedError{
			Reason:    RevokeReason(rec.RevokedReason),
			RevokedAt: rec.RevokedAt,
		}
	}

	e.metrics.inc(MetricSessionVerified)
	return claims, nil
}

// RenewSession replaces a still-valid session token with a fresh one for the
// same subject. The old token must verify first — an expired or revoked
// token cannot be renewed. Issue-before-revoke ordering guarantees the
// caller is never left without a valid token: if revoking the old token
// fails midway, the failure is logged and audited but not surfaced, since
// the old session expires naturally regardless.
func (e *Engine) RenewSession(ctx context.Context, oldToken, ipAddress, userAgent string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}

	oldClaims, err := e.VerifySession(ctx, oldToken)
	if err != nil {
		return "", err
	}

	newToken, err := e.IssueSession(ctx, oldClaims.Subject, ipAddress, userAgent)
	if err != nil {
		return "", err
	}

	if err := e.cache.MarkRevoked(ctx, oldClaims.TokenID(), string(RevokeNewTokenRequested), time.Now()); err != nil &&
		!errors.Is(err, revocation.ErrNotFound) {
		log.Printf("authcore: best-effort revocation of renewed session %s failed: %v", oldClaims.TokenID(), err)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventSessionRevokeFailed,
			UserID:    oldClaims.Subject,
			TokenID:   oldClaims.TokenID(),
			Reason:    string(RevokeNewTokenRequested),
			Success:   false,
			Error:     err.Error(),
		})
	}

	e.metrics.inc(MetricSessionRenewed)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventSessionRenew,
		UserID:    oldClaims.Subject,
		TokenID:   oldClaims.TokenID(),
		IP:        ipAddress,
		Success:   true,
	})

	return newToken, nil
}

// RevokeSession marks a session token revoked. The token is decoded, not
// verified: revoking an already-expired or already-flagged token must still
// succeed for audit completeness. A record whose TTL already lapsed is
// equivalent to an expired token and treated as success.
//
// A revocation-write failure propagates — swallowing it would leave a token
// valid longer than the caller intended.
func (e *Engine) RevokeSession(ctx context.Context, sessionToken string, reason RevokeReason) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}

	claims, err := e.codec.Decode(sessionToken)
	if err != nil {
		return mapCodecError(err)
	}

	if err := e.cache.MarkRevoked(ctx, claims.TokenID(), string(reason), time.Now()); err != nil {
		if errors.Is(err, revocation.ErrNotFound) {
			return nil
		}
		return mapCacheError(err)
	}

	e.metrics.inc(MetricSessionRevoked)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventSessionRevoke,
		UserID:    claims.Subject,
		TokenID:   claims.TokenID(),
		Reason:    string(reason),
		Success:   true,
	})

	return nil
}

// SessionRecord returns the cached metadata for a previously issued session
// token. Intended for introspection and admin tooling.
func (e *Engine) SessionRecord(ctx context.Context, sessionToken string) (*revocation.Record, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.codec.Decode(sessionToken)
	if err != nil {
		return nil, mapCodecError(err)
	}

	rec, err := e.cache.Get(ctx, claims.TokenID())
	if err != nil {
		return nil, mapCacheError(err)
	}
	return rec, nil
}

func (e *Engine) countVerifyFailure(err error) {
	switch {
	case errors.Is(err, token.ErrExpired):
		e.metrics.inc(MetricTokenExpired)
	case errors.Is(err, token.ErrInvalid):
		e.metrics.inc(MetricTokenInvalid)
	}
}
