// Package revocation provides the Redis-backed ledger of blacklisted and
// already-used token identifiers.
//
// # TTL invariant
//
// Every entry carries a TTL equal to the remaining lifetime of the token it
// marks. An entry must survive at least as long as the token could be
// replayed and must not outlive the token's natural expiry.
//
// # What this package must NOT do
//
//   - Decode tokens or compute lifetimes (callers pass the TTL).
//   - Import authcore, token, or session.
package revocation
