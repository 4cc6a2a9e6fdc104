package authcore

import "errors"

var (
	// ErrMalformedToken is returned for structurally or cryptographically invalid tokens.
	ErrMalformedToken = errors.New("malformed token")
	// ErrTokenExpired is returned when a token's expiry is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned when a token's jti is on the revocation ledger.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenTypeMismatch is returned when a token of the wrong type is presented.
	ErrTokenTypeMismatch = errors.New("token type mismatch")
	// ErrWrongIssuerOrAudience is returned when iss or aud does not match configuration.
	ErrWrongIssuerOrAudience = errors.New("wrong token issuer or audience")
	// ErrRefreshReuse is returned when an already-rotated refresh token is presented.
	// Detection revokes the entire token family before this error surfaces; it is a
	// security control, never retried or suppressed.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrRefreshRateLimited is returned when refresh attempts exceed the window budget.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrAuthentication is the uniform credential failure surfaced to end users; the
	// precise internal reason is never exposed to prevent account enumeration.
	ErrAuthentication = errors.New("invalid credentials or token")
	// ErrPermissionDenied is the only authorization error exposed to end users. It
	// carries no detail about whether the org or resource exists.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotAMember is returned internally when a principal has no role in the target org.
	ErrNotAMember = errors.New("not a member of the organization")
	// ErrServiceUnavailable is returned when a backing store times out. Verification
	// paths fail closed with this error; it is a deny, not an allow.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrSessionNotFound is returned for lookups of unknown sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoSigningKey is returned at build time when no signing key is configured.
	// It is fatal: the service must fail startup rather than silently degrade.
	ErrNoSigningKey = errors.New("no signing key configured")
	// ErrEngineNotReady is returned when Engine methods are called before Build.
	ErrEngineNotReady = errors.New("engine not ready")
)
