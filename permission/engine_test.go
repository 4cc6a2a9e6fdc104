package permission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeRoles struct {
	mu     sync.Mutex
	roles  map[string]Role // principalID -> role
	supers map[string]bool
	calls  int
}

func (f *fakeRoles) Role(_ context.Context, principalID, _ string) (Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	role, ok := f.roles[principalID]
	if !ok {
		return "", ErrNotAMember
	}
	return role, nil
}

func (f *fakeRoles) IsSuperAdmin(_ context.Context, principalID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.supers[principalID], nil
}

func (f *fakeRoles) setRole(principalID string, role Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[principalID] = role
}

type fakePolicies struct {
	mu       sync.Mutex
	policies map[string]*Policy
}

func newFakePolicies() *fakePolicies {
	return &fakePolicies{policies: make(map[string]*Policy)}
}

func (f *fakePolicies) ActivePolicies(_ context.Context, orgID, perm string) ([]*Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Policy
	for _, p := range f.policies {
		if p.IsActive && p.OrganizationID == orgID && p.Permission == perm {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakePolicies) Create(_ context.Context, p *Policy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *p
	f.policies[p.ID] = &clone
	return nil
}

func (f *fakePolicies) Update(_ context.Context, p *Policy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.policies[p.ID]; !ok {
		return ErrPolicyNotFound
	}
	clone := *p
	f.policies[p.ID] = &clone
	return nil
}

func (f *fakePolicies) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.policies[id]
	if !ok {
		return ErrPolicyNotFound
	}
	p.IsActive = false
	return nil
}

func newTestEngine(t *testing.T, roles *fakeRoles, policies PolicyStore) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := NewEngine(Config{
		RolePermissions: map[Role][]string{
			RoleViewer: {"project:read"},
			RoleMember: {"project:read", "project:write"},
			RoleAdmin:  {"project:*", "member:*"},
		},
		CacheTTL: time.Minute,
	}, roles, policies, rdb)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine, mr
}

func TestCheckRoleGrants(t *testing.T) {
	ctx := context.Background()
	roles := &fakeRoles{
		roles:  map[string]Role{"alice": RoleAdmin, "bob": RoleViewer},
		supers: map[string]bool{},
	}
	engine, _ := newTestEngine(t, roles, nil)

	allowed, err := engine.Check(ctx, "alice", "org1", "project:write", "", nil)
	if err != nil || !allowed {
		t.Fatalf("admin should hold project:write via project:*, got (%v, %v)", allowed, err)
	}

	allowed, err = engine.Check(ctx, "bob", "org1", "project:write", "", nil)
	if err != nil || allowed {
		t.Fatalf("viewer must not hold project:write, got (%v, %v)", allowed, err)
	}
}

func TestCheckSuperAdminBypassesEverything(t *testing.T) {
	ctx := context.Background()
	roles := &fakeRoles{
		roles:  map[string]Role{},
		supers: map[string]bool{"root": true},
	}
	engine, _ := newTestEngine(t, roles, nil)

	allowed, err := engine.Check(ctx, "root", "any-org", "anything:at:all", "", nil)
	if err != nil || !allowed {
		t.Fatalf("super admin must be allowed everywhere, got (%v, %v)", allowed, err)
	}
	if roles.calls != 0 {
		t.Fatal("super admin check must short-circuit role resolution")
	}
}

func TestCheckNonMemberDeniesWithoutError(t *testing.T) {
	ctx := context.Background()
	roles := &fakeRoles{roles: map[string]Role{}, supers: map[string]bool{}}
	engine, _ := newTestEngine(t, roles, nil)

	allowed, err := engine.Check(ctx, "stranger", "org1", "project:read", "", nil)
	if err != nil {
		t.Fatalf("plain denial must not error, got %v", err)
	}
	if allowed {
		t.Fatal("non-member must be denied")
	}
}

func TestCheckConditionalPolicyGrant(t *testing.T) {
	ctx := context.Background()
	roles := &fakeRoles{roles: map[string]Role{"bob": RoleViewer}, supers: map[string]bool{}}
	policies := newFakePolicies()
	engine, _ := newTestEngine(t, roles, policies)

	err := engine.CreatePolicy(ctx, &Policy{
		ID:             "pol-1",
		OrganizationID: "org1",
		Permission:     "project:write",
		Conditions: Conditions{
			SubjectID:  "bob",
			Attributes: map[string]string{"env": "staging"},
		},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreatePolicy failed: %v", err)
	}

	// No evaluation context: the policy path stays off.
	allowed, err := engine.Check(ctx, "bob", "org1", "project:write", "", nil)
	if err != nil || allowed {
		t.Fatalf("policy must not apply without evalCtx, got (%v, %v)", allowed, err)
	}

	engine.InvalidatePrincipal(ctx, "bob", "org1")
	allowed, err = engine.Check(ctx, "bob", "org1", "project:write", "", map[string]string{"env": "staging"})
	if err != nil || !allowed {
		t.Fatalf("expected conditional grant, got (%v, %v)", allowed, err)
	}

	// Wrong attribute value denies.
	engine.InvalidatePrincipal(ctx, "bob", "org1")
	allowed, err = engine.Check(ctx, "bob", "org1", "project:write", "", map[string]string{"env": "production"})
	if err != nil || allowed {
		t.Fatalf("expected denial for wrong attribute, got (%v, %v)", allowed, err)
	}
}

func TestCheckPolicyAppliesToNonMembers(t *testing.T) {
	ctx := context.Background()
	roles := &fakeRoles{roles: map[string]Role{}, supers: map[string]bool{}}
	policies := newFakePolicies()
	engine, _ := newTestEngine(t, roles, policies)

	err := engine.CreatePolicy(ctx, &Policy{
		ID:             "pol-1",
		OrganizationID: "org1",
		Permission:     "report:read",
		Conditions:     Conditions{SubjectID: "contractor"},
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("CreatePolicy failed: %v", err)
	}

	allowed, err := engine.Check(ctx, "contractor", "org1", "report:read", "", map[string]string{})
	if err != nil || !allowed {
		t.Fatalf("policy must be able to grant to non-members, got (%v, %v)", allowed, err)
	}
}

func TestCheckCachesDecisions(t *testing.T) {
	ctx := context.Background()
	roles := &fakeRoles{roles: map[string]Role{"alice": RoleAdmin}, supers: map[string]bool{}}
	engine, _ := newTestEngine(t, roles, nil)

	if _, err := engine.Check(ctx, "alice", "org1", "project:read", "", nil); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	callsAfterFirst := roles.calls

	if _, err := engine.Check(ctx, "alice", "org1", "project:read", "", nil); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if roles.calls != callsAfterFirst {
		t.Fatal("second check must be served from cache")
	}

	// A role change is invisible until the cache is invalidated.
	roles.setRole("alice", RoleViewer)
	allowed, err := engine.Check(ctx, "alice", "org1", "project:read", "", nil)
	if err != nil || !allowed {
		t.Fatalf("stale grant expected before invalidation, got (%v, %v)", allowed, err)
	}

	engine.InvalidatePrincipal(ctx, "alice", "org1")
	allowed, err = engine.Check(ctx, "alice", "org1", "member:invite", "", nil)
	if err != nil || allowed {
		t.Fatalf("expected fresh evaluation after invalidation, got (%v, %v)", allowed, err)
	}
}

func TestPolicyWritesInvalidateCache(t *testing.T) {
	ctx := context.Background()
	roles := &fakeRoles{roles: map[string]Role{"bob": RoleViewer}, supers: map[string]bool{}}
	policies := newFakePolicies()
	engine, _ := newTestEngine(t, roles, policies)

	pol := &Policy{
		ID:             "pol-1",
		OrganizationID: "org1",
		Permission:     "project:write",
		Conditions:     Conditions{SubjectID: "bob"},
		IsActive:       true,
	}
	if err := engine.CreatePolicy(ctx, pol); err != nil {
		t.Fatalf("CreatePolicy failed: %v", err)
	}

	evalCtx := map[string]string{}
	allowed, err := engine.Check(ctx, "bob", "org1", "project:write", "", evalCtx)
	if err != nil || !allowed {
		t.Fatalf("expected policy grant, got (%v, %v)", allowed, err)
	}

	// Soft delete must take effect on the next check, not after TTL.
	if err := engine.DeletePolicy(ctx, "pol-1", "org1", "project:write"); err != nil {
		t.Fatalf("DeletePolicy failed: %v", err)
	}
	allowed, err = engine.Check(ctx, "bob", "org1", "project:write", "", evalCtx)
	if err != nil || allowed {
		t.Fatalf("expected denial after delete, got (%v, %v)", allowed, err)
	}
}

func TestCheckFailsOpenOnCacheOutage(t *testing.T) {
	ctx := context.Background()
	roles := &fakeRoles{roles: map[string]Role{"alice": RoleAdmin}, supers: map[string]bool{}}
	engine, mr := newTestEngine(t, roles, nil)

	mr.Close()

	allowed, err := engine.Check(ctx, "alice", "org1", "project:read", "", nil)
	if err != nil {
		t.Fatalf("cache outage must not surface, got %v", err)
	}
	if !allowed {
		t.Fatal("expected fresh evaluation to grant")
	}
}
