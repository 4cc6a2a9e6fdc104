package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when the backing store cannot be reached
// within the operation timeout. Verification paths treat it as a deny.
var ErrUnavailable = errors.New("revocation store unavailable")

const defaultOpTimeout = 2 * time.Second

// Ledger tracks revoked and already-used token identifiers with
// per-entry TTLs. Entries are write-once: re-marking a jti is a no-op,
// so callers need no locking beyond Redis atomicity.
type Ledger struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewLedger creates a ledger on the given Redis client. prefix
// namespaces all keys; opTimeout bounds each store round-trip and
// defaults to 2s when zero.
func NewLedger(client redis.UniversalClient, prefix string, opTimeout time.Duration) *Ledger {
	if prefix == "" {
		prefix = "ac"
	}
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Ledger{
		redis:   client,
		prefix:  prefix,
		timeout: opTimeout,
	}
}

// MarkRevoked blacklists a jti for ttl. The ttl must be the remaining
// lifetime of the token being revoked: shorter leaves a replay hole,
// longer wastes storage. Non-positive ttl means the token is already
// past natural expiry and nothing is stored.
func (l *Ledger) MarkRevoked(ctx context.Context, jti string, ttl time.Duration) error {
	return l.mark(ctx, l.revokedKey(jti), ttl)
}

// IsRevoked reports whether the jti has been blacklisted.
func (l *Ledger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return l.exists(ctx, l.revokedKey(jti))
}

// MarkUsed records a rotated-out refresh jti. A later sighting of that
// jti is the reuse signal that triggers family revocation.
func (l *Ledger) MarkUsed(ctx context.Context, jti string, ttl time.Duration) error {
	return l.mark(ctx, l.usedKey(jti), ttl)
}

// IsUsed reports whether the refresh jti was already rotated out.
func (l *Ledger) IsUsed(ctx context.Context, jti string) (bool, error) {
	return l.exists(ctx, l.usedKey(jti))
}

func (l *Ledger) mark(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := l.bound(ctx)
	defer cancel()

	// SETNX keeps the first writer's TTL; repeated marks are no-ops.
	if err := l.redis.SetNX(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (l *Ledger) exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	n, err := l.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

func (l *Ledger) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.timeout)
}

func (l *Ledger) revokedKey(jti string) string {
	return l.prefix + ":rv:" + jti
}

func (l *Ledger) usedKey(jti string) string {
	return l.prefix + ":us:" + jti
}
