// Package authcore provides the token lifecycle and session security
// core of a multi-tenant auth platform: signed JWT access tokens,
// rotating refresh tokens with family-wide reuse revocation, a
// Redis-backed revocation ledger, and a role/policy permission engine.
//
// The package is designed for concurrent server workloads: Engine
// methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (TokenPair, SessionInfo, MetricsSnapshot).
// Signing key material lives in the keys package, claim encoding in
// token, durable session state in session, revocation marks in
// revocation, and grant evaluation in permission. Audit dispatch and
// refresh throttling live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Authenticate credentials. Callers verify passwords, MFA, or SSO
//     assertions before asking for a session.
//   - Expose Redis clients, SQL handles, or key material in its public
//     API.
//   - Fail open on revocation checks. A ledger outage denies with
//     ErrServiceUnavailable.
//
// # Performance contract
//
// Verify is the hot path: one parse, one signature check, one ledger
// read. Key material is resolved from an in-memory map keyed by kid;
// no per-call derivation. Refresh and session operations are allowed
// one durable write plus bounded Redis round-trips per call.
package authcore
