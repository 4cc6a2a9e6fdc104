package session

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Revocation reasons recorded on terminated sessions.
const (
	ReasonLogout        = "logout"
	ReasonRefreshReuse  = "refresh_reuse"
	ReasonFamilyRevoked = "family_revoked"
)

// Session links a principal to its current access/refresh jti pair.
// Rows are created at login, mutated only through jti rotation, and
// terminated by setting RevokedAt; they are never physically deleted.
type Session struct {
	ID             string
	PrincipalID    string
	TenantID       string
	OrganizationID string

	// Family is shared by every token descended from one login and
	// changes only on fresh login. It is the join point for detecting
	// stolen-refresh-token reuse.
	Family string

	AccessJTI  string
	RefreshJTI string

	IPAddress string
	UserAgent string

	CreatedAt       time.Time
	ExpiresAt       time.Time
	AccessExpiresAt time.Time

	RevokedAt     *time.Time
	RevokedReason string
}

// Active reports whether the session can still be refreshed.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// NewID returns a lexicographically sortable session identifier.
func NewID() string {
	return ulid.Make().String()
}
