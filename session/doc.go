// Package session provides durable session persistence, the Redis
// fast-lookup cache, and the rotation compare-and-swap that keeps
// exactly one refresh token valid per session.
//
// # Rotation semantics
//
// [Store.Rotate] is a conditional update keyed on the presented refresh
// jti. Of two concurrent rotations with the same jti at most one matches
// a live row; the loser gets [ErrRotateConflict], which the Engine
// interprets as token reuse.
//
// # Architecture boundaries
//
// This package owns the [Session] model and its stores. It does NOT
// decode tokens, evaluate permissions, or decide revocation policy;
// those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import authcore, token, or permission (no upward imports).
//   - Delete session rows; termination is a status change.
package session
