package authcore

import (
	"crypto/rsa"
	"errors"
	"strings"
	"time"
)

// Config defines the full configuration tree consumed by [Builder].
//
// Config instances are intended to be populated during initialization and then
// treated as immutable.
type Config struct {
	Token      TokenConfig
	Keys       KeyConfig
	Session    SessionConfig
	Revocation RevocationConfig
	Permission PermissionConfig
	RateLimit  RateLimitConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds issuance parameters. Issuer and audience are externally
// configured constants the core embeds and verifies but does not define
// policy for.
type TokenConfig struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration // default 15m
	RefreshTTL time.Duration // default 7d
	Leeway     time.Duration
}

/*
====================================
KEY CONFIG
====================================
*/

// KeyConfig selects the signing algorithm and key material.
type KeyConfig struct {
	Algorithm string // "hs256" (default) or "rs256"
	Secret    []byte // hs256 secret
	// RSAPrivateKey seeds rs256; generated at build when nil.
	RSAPrivateKey *rsa.PrivateKey
	RSABits       int
	OverlapWindow time.Duration // verification overlap after rotation, default 24h
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes the fast-lookup cache layer.
type SessionConfig struct {
	RedisPrefix string // default "ac"
	CacheEnabled bool
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig tunes the revocation ledger.
type RevocationConfig struct {
	RedisPrefix string        // default "ac"
	OpTimeout   time.Duration // per-operation bound, default 2s
}

/*
====================================
PERMISSION CONFIG
====================================
*/

// PermissionConfig holds the static role permission model and the decision
// cache TTL. Map keys are role names ("viewer" ... "super_admin"); values are
// resource:action patterns, "*" wildcard allowed.
type PermissionConfig struct {
	RolePermissions map[string][]string
	CacheTTL        time.Duration // default 5m
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig enables refresh throttling per token family.
type RateLimitConfig struct {
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics collector.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration: 15m access TTL,
// 7d refresh TTL, hs256 signing, caching and refresh throttling on.
// Callers still need to set Token.Issuer and a signing secret.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Keys: KeyConfig{
			Algorithm:     "hs256",
			OverlapWindow: 24 * time.Hour,
		},
		Session: SessionConfig{
			RedisPrefix:  "ac",
			CacheEnabled: true,
		},
		Revocation: RevocationConfig{
			RedisPrefix: "ac",
			OpTimeout:   2 * time.Second,
		},
		Permission: PermissionConfig{
			CacheTTL: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			EnableRefreshThrottle:   true,
			MaxRefreshAttempts:      30,
			RefreshCooldownDuration: time.Minute,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func (c *Config) normalize() {
	defaults := defaultConfig()
	if c.Token.AccessTTL == 0 {
		c.Token.AccessTTL = defaults.Token.AccessTTL
	}
	if c.Token.RefreshTTL == 0 {
		c.Token.RefreshTTL = defaults.Token.RefreshTTL
	}
	if c.Keys.Algorithm == "" {
		c.Keys.Algorithm = defaults.Keys.Algorithm
	}
	if c.Keys.OverlapWindow == 0 {
		c.Keys.OverlapWindow = defaults.Keys.OverlapWindow
	}
	if c.Session.RedisPrefix == "" {
		c.Session.RedisPrefix = defaults.Session.RedisPrefix
	}
	if c.Revocation.RedisPrefix == "" {
		c.Revocation.RedisPrefix = defaults.Revocation.RedisPrefix
	}
	if c.Revocation.OpTimeout == 0 {
		c.Revocation.OpTimeout = defaults.Revocation.OpTimeout
	}
	if c.Permission.CacheTTL == 0 {
		c.Permission.CacheTTL = defaults.Permission.CacheTTL
	}
	if c.RateLimit.MaxRefreshAttempts == 0 {
		c.RateLimit.MaxRefreshAttempts = defaults.RateLimit.MaxRefreshAttempts
	}
	if c.RateLimit.RefreshCooldownDuration == 0 {
		c.RateLimit.RefreshCooldownDuration = defaults.RateLimit.RefreshCooldownDuration
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = defaults.Audit.BufferSize
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Token.Issuer) == "" {
		return errors.New("config: token issuer required")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("config: refresh TTL shorter than access TTL")
	}
	switch c.Keys.Algorithm {
	case "hs256":
		if len(c.Keys.Secret) == 0 {
			return ErrNoSigningKey
		}
		if len(c.Keys.Secret) < 32 {
			return errors.New("config: hs256 secret must be at least 32 bytes")
		}
	case "rs256":
		// Material is generated at build when absent.
	default:
		return errors.New("config: unsupported signing algorithm")
	}
	return nil
}
