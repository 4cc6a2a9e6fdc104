// Package token encodes and decodes signed token claims (JWT compact
// serialization) with strict validation semantics suitable for low-latency
// authentication paths.
//
// Every Encode call embeds issuer, audience, issued-at, expiry, and a freshly
// generated jti; callers never choose identifiers. Decode distinguishes four
// failure classes ([ErrMalformed], [ErrExpired], [ErrWrongIssuerOrAudience],
// [ErrTypeMismatch]) so the Engine can map deny reasons without string
// inspection.
//
// # What this package must NOT do
//
//   - Consult the revocation ledger or any store (no I/O).
//   - Import authcore, session, or permission.
package token
