//go:build integration
// +build integration

package test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authcore "github.com/tidelock/authcore"
	"github.com/tidelock/authcore/permission"
)

type staticRoles map[string]permission.Role

func (s staticRoles) Role(_ context.Context, principalID, _ string) (permission.Role, error) {
	role, ok := s[principalID]
	if !ok {
		return "", permission.ErrNotAMember
	}
	return role, nil
}

func (s staticRoles) IsSuperAdmin(context.Context, string) (bool, error) { return false, nil }

func newIntegrationEngine(t *testing.T, mutate func(*authcore.Config)) (*authcore.Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := authcore.DefaultConfig()
	cfg.Token.Issuer = "authcore-test"
	cfg.Token.Audience = "authcore-test"
	cfg.Keys.Secret = []byte("integration-secret-integration!!")
	cfg.Permission.RolePermissions = map[string][]string{
		"viewer": {"project:read"},
		"member": {"project:read", "project:write"},
		"admin":  {"project:*", "member:*"},
	}

	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithRoleDirectory(staticRoles{
			"alice": permission.RoleAdmin,
			"bob":   permission.RoleViewer,
		}).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr
}

func alicePrincipal() authcore.Principal {
	return authcore.Principal{
		ID:             "alice",
		TenantID:       "t1",
		OrganizationID: "org1",
	}
}
