// Package keys holds signing key material for token issuance and verification,
// including rotation with a verification overlap window and JWKS publication
// for asymmetric keys.
//
// # Rotation
//
// Rotate generates a fresh key and promotes it to current. The previous key
// stays in the verification set through the configured overlap window so
// tokens signed before rotation keep validating. Retire drops a rotated-out
// key early.
//
// # What this package must NOT do
//
//   - Import authcore, token, or session (no upward imports).
//   - Expose symmetric secrets through JWKS.
//   - Perform I/O; key material lives in process memory.
package keys
