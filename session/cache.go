package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the Redis fast-lookup layer over the durable store. It is
// advisory: the Engine falls back to the durable store on any cache
// miss or error, so cache failures cost latency, never correctness.
type Cache struct {
	redis  redis.UniversalClient
	prefix string
}

// NewCache creates a session cache under the given key prefix.
func NewCache(client redis.UniversalClient, prefix string) *Cache {
	if prefix == "" {
		prefix = "ac"
	}
	return &Cache{redis: client, prefix: prefix}
}

type cachedSession struct {
	ID              string     `json:"id"`
	PrincipalID     string     `json:"pid"`
	TenantID        string     `json:"tid,omitempty"`
	OrganizationID  string     `json:"org,omitempty"`
	Family          string     `json:"fam"`
	AccessJTI       string     `json:"ajti"`
	RefreshJTI      string     `json:"rjti"`
	IPAddress       string     `json:"ip,omitempty"`
	UserAgent       string     `json:"ua,omitempty"`
	CreatedAt       time.Time  `json:"cat"`
	ExpiresAt       time.Time  `json:"eat"`
	AccessExpiresAt time.Time  `json:"aeat"`
	RevokedAt       *time.Time `json:"rat,omitempty"`
	RevokedReason   string     `json:"rr,omitempty"`
}

// Put stores the session until its own expiry.
func (c *Cache) Put(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(cachedSession{
		ID:              s.ID,
		PrincipalID:     s.PrincipalID,
		TenantID:        s.TenantID,
		OrganizationID:  s.OrganizationID,
		Family:          s.Family,
		AccessJTI:       s.AccessJTI,
		RefreshJTI:      s.RefreshJTI,
		IPAddress:       s.IPAddress,
		UserAgent:       s.UserAgent,
		CreatedAt:       s.CreatedAt,
		ExpiresAt:       s.ExpiresAt,
		AccessExpiresAt: s.AccessExpiresAt,
		RevokedAt:       s.RevokedAt,
		RevokedReason:   s.RevokedReason,
	})
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, c.key(s.ID), payload, ttl).Err()
}

// Get returns the cached session or [ErrNotFound] on miss.
func (c *Cache) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := c.redis.Get(ctx, c.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cs cachedSession
	if err := json.Unmarshal(payload, &cs); err != nil {
		return nil, err
	}
	return &Session{
		ID:              cs.ID,
		PrincipalID:     cs.PrincipalID,
		TenantID:        cs.TenantID,
		OrganizationID:  cs.OrganizationID,
		Family:          cs.Family,
		AccessJTI:       cs.AccessJTI,
		RefreshJTI:      cs.RefreshJTI,
		IPAddress:       cs.IPAddress,
		UserAgent:       cs.UserAgent,
		CreatedAt:       cs.CreatedAt,
		ExpiresAt:       cs.ExpiresAt,
		AccessExpiresAt: cs.AccessExpiresAt,
		RevokedAt:       cs.RevokedAt,
		RevokedReason:   cs.RevokedReason,
	}, nil
}

// Delete drops the fast-lookup entry. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, id string) error {
	return c.redis.Del(ctx, c.key(id)).Err()
}

func (c *Cache) key(id string) string {
	return c.prefix + ":sess:" + id
}
