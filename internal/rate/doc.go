// Package rate provides the Redis-backed fixed-window counter that
// throttles refresh attempts per token family.
//
// # Window semantics
//
// INCR + conditional EXPIRE on first hit. Key prefix:
//   - ar: refresh attempts per family
//
// # What this package must NOT do
//
//   - Implement domain policy (the Engine decides when to check).
//   - Be imported outside the authcore module.
package rate
