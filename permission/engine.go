package permission

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// Config holds the static permission model and cache tuning.
type Config struct {
	// RolePermissions is the pattern set granted to each role.
	RolePermissions map[Role][]string
	// CacheTTL bounds staleness of cached decisions. Default 5m.
	CacheTTL time.Duration
	// CachePrefix namespaces cache keys.
	CachePrefix string
}

// Engine evaluates role-hierarchy and conditional policies to decide
// allow/deny. Decisions are cached in Redis per (principal, org,
// permission); cache failures fall back to a fresh evaluation, they
// never turn into denials or grants by themselves.
type Engine struct {
	config   Config
	roles    RoleDirectory
	policies PolicyStore
	redis    redis.UniversalClient
}

// NewEngine creates a permission engine. roles is required; policies
// and redisClient may be nil, disabling conditional grants and the
// decision cache respectively.
func NewEngine(cfg Config, roles RoleDirectory, policies PolicyStore, redisClient redis.UniversalClient) (*Engine, error) {
	if roles == nil {
		return nil, errors.New("permission: role directory required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.CachePrefix == "" {
		cfg.CachePrefix = "ac"
	}
	return &Engine{
		config:   cfg,
		roles:    roles,
		policies: policies,
		redis:    redisClient,
	}, nil
}

// MemberRole resolves the principal's role in the organization,
// surfacing [ErrNotAMember] when there is no assignment.
func (e *Engine) MemberRole(ctx context.Context, principalID, orgID string) (Role, error) {
	return e.roles.Role(ctx, principalID, orgID)
}

// Check decides whether the principal may perform perm within the
// organization. Super admins are allowed regardless of org. The static
// role pattern set is consulted first; when it does not match and an
// evaluation context is provided, active conditional policies for the
// org and permission are evaluated in order and the first match grants.
func (e *Engine) Check(ctx context.Context, principalID, orgID, perm, resourceID string, evalCtx map[string]string) (bool, error) {
	super, err := e.roles.IsSuperAdmin(ctx, principalID)
	if err != nil {
		return false, err
	}
	if super {
		return true, nil
	}

	if allowed, ok := e.cacheGet(ctx, principalID, orgID, perm); ok {
		return allowed, nil
	}

	allowed, err := e.evaluate(ctx, principalID, orgID, perm, resourceID, evalCtx)
	if err != nil {
		return false, err
	}

	e.cacheSet(ctx, principalID, orgID, perm, allowed)
	return allowed, nil
}

func (e *Engine) evaluate(ctx context.Context, principalID, orgID, perm, resourceID string, evalCtx map[string]string) (bool, error) {
	role, err := e.roles.Role(ctx, principalID, orgID)
	switch {
	case err == nil:
		if MatchAny(e.config.RolePermissions[role], perm) {
			return true, nil
		}
	case errors.Is(err, ErrNotAMember):
		// No static grants; conditional policies may still apply.
	default:
		return false, err
	}

	if e.policies == nil || evalCtx == nil {
		return false, nil
	}

	policies, err := e.policies.ActivePolicies(ctx, orgID, perm)
	if err != nil {
		return false, err
	}
	now := time.Now()
	for _, pol := range policies {
		if pol.Conditions.Match(principalID, resourceID, now, evalCtx) {
			return true, nil
		}
	}
	return false, nil
}

// CreatePolicy persists a policy and invalidates cached decisions for
// its organization and permission.
func (e *Engine) CreatePolicy(ctx context.Context, pol *Policy) error {
	if e.policies == nil {
		return errors.New("permission: no policy store configured")
	}
	if err := e.policies.Create(ctx, pol); err != nil {
		return err
	}
	e.invalidateOrgPermission(ctx, pol.OrganizationID, pol.Permission)
	return nil
}

// UpdatePolicy persists policy changes and invalidates the affected
// cache entries.
func (e *Engine) UpdatePolicy(ctx context.Context, pol *Policy) error {
	if e.policies == nil {
		return errors.New("permission: no policy store configured")
	}
	if err := e.policies.Update(ctx, pol); err != nil {
		return err
	}
	e.invalidateOrgPermission(ctx, pol.OrganizationID, pol.Permission)
	return nil
}

// DeletePolicy soft-deletes a policy and invalidates the affected
// cache entries.
func (e *Engine) DeletePolicy(ctx context.Context, id, orgID, perm string) error {
	if e.policies == nil {
		return errors.New("permission: no policy store configured")
	}
	if err := e.policies.Delete(ctx, id); err != nil {
		return err
	}
	e.invalidateOrgPermission(ctx, orgID, perm)
	return nil
}

// InvalidatePrincipal drops every cached decision for the principal in
// the organization. Call it on role changes.
func (e *Engine) InvalidatePrincipal(ctx context.Context, principalID, orgID string) {
	e.scanDelete(ctx, e.config.CachePrefix+":pc:"+principalID+":"+orgID+":*")
}

func (e *Engine) invalidateOrgPermission(ctx context.Context, orgID, perm string) {
	e.scanDelete(ctx, e.config.CachePrefix+":pc:*:"+orgID+":"+perm)
}

func (e *Engine) cacheGet(ctx context.Context, principalID, orgID, perm string) (allowed, ok bool) {
	if e.redis == nil {
		return false, false
	}
	value, err := e.redis.Get(ctx, e.cacheKey(principalID, orgID, perm)).Result()
	if err != nil {
		// Miss or cache outage: evaluate fresh either way.
		return false, false
	}
	return value == "1", true
}

func (e *Engine) cacheSet(ctx context.Context, principalID, orgID, perm string, allowed bool) {
	if e.redis == nil {
		return
	}
	value := "0"
	if allowed {
		value = "1"
	}
	if err := e.redis.Set(ctx, e.cacheKey(principalID, orgID, perm), value, e.config.CacheTTL).Err(); err != nil {
		log.Print("authcore: permission cache write failed")
	}
}

func (e *Engine) scanDelete(ctx context.Context, pattern string) {
	if e.redis == nil {
		return
	}
	iter := e.redis.Scan(ctx, 0, pattern, 128).Iterator()
	for iter.Next(ctx) {
		if err := e.redis.Del(ctx, iter.Val()).Err(); err != nil {
			log.Print("authcore: permission cache invalidation failed")
			return
		}
	}
	if err := iter.Err(); err != nil {
		log.Print("authcore: permission cache scan failed")
	}
}

func (e *Engine) cacheKey(principalID, orgID, perm string) string {
	return e.config.CachePrefix + ":pc:" + principalID + ":" + orgID + ":" + perm
}
