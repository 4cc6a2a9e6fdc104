package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when the attempt budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("rate limiter backend unavailable")
)

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// Limiter enforces a per-family refresh attempt budget using
// fixed-window Redis counters: INCR plus conditional EXPIRE on the
// first hit of each window.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

// New creates a refresh [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, prefix string, cfg Config) *Limiter {
	if prefix == "" {
		prefix = "ac"
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

// CheckRefresh counts an attempt for the refresh-token family and
// returns [ErrRateLimited] once the window budget is exceeded.
func (l *Limiter) CheckRefresh(ctx context.Context, familyID string) error {
	if l == nil || l.config.MaxRefreshAttempts <= 0 {
		return nil
	}

	key := l.prefix + ":ar:" + familyID
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.RefreshCooldownDuration).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrRateLimited
	}
	return nil
}

// ResetRefresh clears the attempt counter, e.g. after family
// revocation when further attempts are pointless to meter.
func (l *Limiter) ResetRefresh(ctx context.Context, familyID string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.prefix+":ar:"+familyID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
