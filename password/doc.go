// Package password provides the argon2id hashing collaborator. The engine
// uses it to fingerprint issued tokens before caching them, and callers use
// the same primitive for credential hashing so the two never diverge.
package password
