// Package authcore is the identity authority for a multi-service platform:
// it issues, verifies, renews, and revokes short-lived signed session
// tokens, derives one-shot password-reset and email-verification tokens
// from the same codec, and reliably dispatches the resulting notification
// emails through a durable, retrying queue.
//
// Session validity is decided in two layers: the token's own signature and
// embedded expiry, and a Redis-backed revocation cache that records early
// revocations (logout, renewal, security events) keyed by token identifier.
// The cache is the single source of truth for "is this token still usable";
// when it is unreachable, verification fails closed.
//
// Construct an Engine with the Builder:
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		WithMailer(mailer).
//		WithUserStore(users).
//		Build()
package authcore
