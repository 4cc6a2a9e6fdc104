// Package middleware exposes HTTP adapters for access-token
// verification and permission enforcement built on top of
// authcore.Engine.
//
// # Guards
//
//   - [RequireAccess] reads the Authorization header, verifies the
//     bearer token as an access token, and injects the claims into the
//     request context.
//   - [RequirePermission] enforces a permission for the verified
//     principal; mount it inside RequireAccess.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does
// NOT implement verification or authorization itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or SQL (Engine handles I/O).
//   - Make decisions beyond pass/reject from the Engine.
package middleware
