// Package token implements the signed-token codec: compact, expiring,
// tamper-evident JWT payloads for session, password-reset, and
// email-verification tokens, each kind signed with its own secret.
//
// Kinds are a closed enumeration mapped to configuration at construction
// time; an unconfigured kind is rejected when the codec is built, never at
// sign/verify time via a string lookup.
package token
