package authcore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfiguration indicates a missing secret or lifetime. It is fatal
	// at build time; an engine is never constructed with a partial token
	// configuration.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrTokenInvalid is returned for malformed tokens or signature
	// mismatches. User-correctable: "please log in again".
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when a token is past its embedded expiry,
	// or when its revocation record has already aged out of the cache.
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionRevoked is the base error wrapped by RevokedError.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrUnavailable indicates the cache or queue backend is unreachable.
	// Session verification fails closed on it.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrNotFound indicates no matching revocation record. Benign during
	// revocation, equivalent to expiry during verification.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound is returned by the flows that resolve a token back to
	// a stored user.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned when an Engine method is called on an
	// unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RevokedError reports that a structurally valid session token was revoked
// before its natural expiry. The reason is audit/user-facing text, never a
// control-flow branch.
type RevokedError struct {
	Reason    RevokeReason
	RevokedAt time.Time
}

func (e *RevokedError) Error() string {
	return fmt.Sprintf("session revoked: %s", e.Reason)
}

// Unwrap lets callers match errors.Is(err, ErrSessionRevoked).
func (e *RevokedError) Unwrap() error {
	return ErrSessionRevoked
}
