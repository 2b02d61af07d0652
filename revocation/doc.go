// Package revocation implements the TTL-backed revocation cache: the single
// source of truth for whether an issued session token is still usable.
//
// Records are Redis hashes keyed by token identifier (jti). A record is
// written once at issuance with the session metadata, mutated at most once
// to set the revocation fields, and disappears on its own when the TTL
// lapses — the cache never needs scanning or garbage collection.
package revocation
