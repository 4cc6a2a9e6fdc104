// Package permission implements the allow/deny decision engine: an
// ordered role hierarchy, wildcard resource:action pattern matching,
// and organization-scoped conditional policies, with a Redis decision
// cache in front.
//
// # Decision order
//
// Super-admin short-circuit, then the role's static pattern set, then
// active conditional policies. Exact and wildcard matches are equally
// sufficient; the first match wins.
//
// # Cache semantics
//
// Decisions cache per (principal, org, permission) with a short TTL.
// Role changes and policy writes invalidate the affected entries. A
// cache outage degrades to fresh evaluation only; it never changes
// the decision.
//
// # What this package must NOT do
//
//   - Import authcore, token, or session (no upward imports).
//   - Resolve principals; role assignment lookup is a consumed interface.
package permission
