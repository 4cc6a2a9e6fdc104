package authcore

import (
	"time"

	"github.com/tidelock/authcore/session"
)

// Principal is the authenticated actor a session is minted for. The
// caller resolves credentials to a Principal before calling
// [Engine.CreateSession]; credential verification is out of scope here.
type Principal struct {
	ID             string
	TenantID       string
	OrganizationID string
	Email          string
	Role           string
	IsSuperAdmin   bool
}

// TokenPair is an access/refresh token pair sharing one session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionInfo is the caller-visible view of a session record.
type SessionInfo struct {
	ID             string
	PrincipalID    string
	TenantID       string
	OrganizationID string
	Family         string
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
	RevokedReason  string
}

func sessionInfo(s *session.Session) *SessionInfo {
	return &SessionInfo{
		ID:             s.ID,
		PrincipalID:    s.PrincipalID,
		TenantID:       s.TenantID,
		OrganizationID: s.OrganizationID,
		Family:         s.Family,
		IPAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
		RevokedAt:      s.RevokedAt,
		RevokedReason:  s.RevokedReason,
	}
}
