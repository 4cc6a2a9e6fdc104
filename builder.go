package authcore

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tidelock/authcore/internal/audit"
	"github.com/tidelock/authcore/internal/rate"
	"github.com/tidelock/authcore/keys"
	"github.com/tidelock/authcore/permission"
	"github.com/tidelock/authcore/revocation"
	"github.com/tidelock/authcore/session"
	"github.com/tidelock/authcore/token"
)

// Builder assembles an [Engine]. Construction is allocation-only until
// Build, which validates configuration and fails fast; in particular a
// missing signing key aborts startup with [ErrNoSigningKey].
type Builder struct {
	config Config
	redis  redis.UniversalClient

	sessions  session.Store
	roles     permission.RoleDirectory
	policies  permission.PolicyStore
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client used by the revocation ledger, the
// session cache, the permission decision cache, and refresh throttling.
// Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore sets the durable session store. Defaults to an
// in-memory store, which is appropriate for tests and single-process
// embedding only.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessions = store
	return b
}

// WithRoleDirectory sets the role-assignment lookup. Required.
func (b *Builder) WithRoleDirectory(roles permission.RoleDirectory) *Builder {
	b.roles = roles
	return b
}

// WithPolicyStore sets the conditional policy store. Optional; without
// it only static role patterns grant.
func (b *Builder) WithPolicyStore(store permission.PolicyStore) *Builder {
	b.policies = store
	return b
}

// WithAuditSink sets the audit event destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the in-process metrics collector.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles verify latency observation.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, constructs every subsystem, and
// returns a ready Engine. A Builder builds at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required: the revocation ledger cannot fail open")
	}
	if b.roles == nil {
		return nil, errors.New("role directory required")
	}

	keyStore, err := keys.NewStore(keys.Config{
		Algorithm:     keys.Algorithm(cfg.Keys.Algorithm),
		Secret:        cfg.Keys.Secret,
		RSAPrivateKey: cfg.Keys.RSAPrivateKey,
		RSABits:       cfg.Keys.RSABits,
		OverlapWindow: cfg.Keys.OverlapWindow,
	})
	if err != nil {
		if errors.Is(err, keys.ErrNoKey) {
			return nil, ErrNoSigningKey
		}
		return nil, fmt.Errorf("key store: %w", err)
	}

	codec, err := token.NewCodec(token.Config{
		Issuer:     cfg.Token.Issuer,
		Audience:   cfg.Token.Audience,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		Leeway:     cfg.Token.Leeway,
	}, keyStore)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	rolePerms := make(map[permission.Role][]string, len(cfg.Permission.RolePermissions))
	for role, patterns := range cfg.Permission.RolePermissions {
		rolePerms[permission.Role(role)] = patterns
	}
	permEngine, err := permission.NewEngine(permission.Config{
		RolePermissions: rolePerms,
		CacheTTL:        cfg.Permission.CacheTTL,
		CachePrefix:     cfg.Session.RedisPrefix,
	}, b.roles, b.policies, b.redis)
	if err != nil {
		return nil, fmt.Errorf("permission engine: %w", err)
	}

	sessions := b.sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}

	var cache *session.Cache
	if cfg.Session.CacheEnabled {
		cache = session.NewCache(b.redis, cfg.Session.RedisPrefix)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.EnableRefreshThrottle {
		limiter = rate.New(b.redis, cfg.Session.RedisPrefix, rate.Config{
			MaxRefreshAttempts:      cfg.RateLimit.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.RateLimit.RefreshCooldownDuration,
		})
	}

	b.built = true

	return &Engine{
		config:      cfg,
		keyStore:    keyStore,
		codec:       codec,
		ledger:      revocation.NewLedger(b.redis, cfg.Revocation.RedisPrefix, cfg.Revocation.OpTimeout),
		sessions:    sessions,
		cache:       cache,
		permissions: permEngine,
		limiter:     limiter,
		metrics:     NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}, nil
}
