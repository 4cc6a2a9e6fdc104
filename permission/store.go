package permission

import (
	"context"
	"errors"
)

var (
	// ErrNotAMember is returned when a principal holds no role in the
	// target organization.
	ErrNotAMember = errors.New("principal is not a member of the organization")
	// ErrPolicyNotFound is returned for lookups of unknown policy ids.
	ErrPolicyNotFound = errors.New("policy not found")
)

// RoleDirectory resolves role assignments. It is a consumed collaborator
// interface; the identity system behind it is out of scope here.
type RoleDirectory interface {
	// Role returns the principal's role within the organization, or
	// ErrNotAMember when there is no assignment.
	Role(ctx context.Context, principalID, orgID string) (Role, error)
	IsSuperAdmin(ctx context.Context, principalID string) (bool, error)
}

// PolicyStore persists conditional grant policies. Delete is a soft
// delete: the row survives with IsActive=false.
type PolicyStore interface {
	ActivePolicies(ctx context.Context, orgID, permission string) ([]*Policy, error)
	Create(ctx context.Context, p *Policy) error
	Update(ctx context.Context, p *Policy) error
	Delete(ctx context.Context, id string) error
}
