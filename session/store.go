package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no session matches the lookup key.
	ErrNotFound = errors.New("session not found")
	// ErrRotateConflict is returned when a conditional jti rotation
	// matched no live row: the presented refresh jti is no longer the
	// current one, or the session is revoked or expired. The Engine
	// treats this as the refresh-reuse signal.
	ErrRotateConflict = errors.New("session rotation conflict")
)

// Rotation carries the replacement jti pair applied by a successful
// refresh. ExpiresAt extends the session to the new refresh expiry.
type Rotation struct {
	AccessJTI       string
	RefreshJTI      string
	ExpiresAt       time.Time
	AccessExpiresAt time.Time
}

// Store is the durable session store consumed by the Engine. The two
// invariant-bearing operations are Rotate, which must apply to at most
// one caller per presented jti (compare-and-swap on the refresh jti
// column), and MarkRevoked, which must be idempotent.
type Store interface {
	Save(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	GetByRefreshJTI(ctx context.Context, jti string) (*Session, error)

	// Rotate atomically replaces the jti pair of the live session whose
	// current refresh jti equals oldRefreshJTI. Exactly one of two
	// concurrent calls with the same oldRefreshJTI succeeds; the other
	// receives ErrRotateConflict. Returns the updated session.
	Rotate(ctx context.Context, oldRefreshJTI string, rot Rotation) (*Session, error)

	// MarkRevoked terminates the session. Already-revoked sessions are
	// left untouched (first reason wins) and no error is returned.
	MarkRevoked(ctx context.Context, id, reason string, at time.Time) error

	FindByFamily(ctx context.Context, family string) ([]*Session, error)
}
