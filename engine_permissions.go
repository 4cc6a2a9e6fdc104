package authcore

import (
	"context"

	"github.com/tidelock/authcore/permission"
)

// CheckPermission reports whether the principal holds the permission
// inside the organization, consulting role grants first and active
// conditional policies second. Results are cached per
// (principal, organization, permission) for the configured TTL.
func (e *Engine) CheckPermission(ctx context.Context, principalID, orgID, perm, resourceID string, evalCtx map[string]string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}

	allowed, err := e.permissions.Check(ctx, principalID, orgID, perm, resourceID, evalCtx)
	if err != nil {
		return false, err
	}
	if allowed {
		e.metricInc(MetricPermissionAllowed)
	} else {
		e.metricInc(MetricPermissionDenied)
	}
	return allowed, nil
}

// EnforcePermission is CheckPermission with a hard failure: a denial
// returns [ErrPermissionDenied] and emits an audit event.
func (e *Engine) EnforcePermission(ctx context.Context, principalID, orgID, perm, resourceID string, evalCtx map[string]string) error {
	allowed, err := e.CheckPermission(ctx, principalID, orgID, perm, resourceID, evalCtx)
	if err != nil {
		return err
	}
	if !allowed {
		e.emitAudit(ctx, auditEventPermissionDenied, false,
			principalID, "", orgID, "", "", ErrPermissionDenied,
			func() map[string]string {
				return map[string]string{"permission": perm}
			})
		return ErrPermissionDenied
	}
	return nil
}

// MemberRole returns the principal's role in the organization, or
// [ErrNotAMember] when no membership exists.
func (e *Engine) MemberRole(ctx context.Context, principalID, orgID string) (permission.Role, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	return e.permissions.MemberRole(ctx, principalID, orgID)
}

// CreatePolicy stores a conditional grant and invalidates any cached
// decisions it could change.
func (e *Engine) CreatePolicy(ctx context.Context, pol *permission.Policy) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.permissions.CreatePolicy(ctx, pol); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventPolicyCreated, true, "", "", pol.OrganizationID, "", "", nil,
		func() map[string]string {
			return map[string]string{"policy_id": pol.ID, "permission": pol.Permission}
		})
	return nil
}

// UpdatePolicy replaces a policy's conditions and activation flag.
func (e *Engine) UpdatePolicy(ctx context.Context, pol *permission.Policy) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.permissions.UpdatePolicy(ctx, pol); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventPolicyUpdated, true, "", "", pol.OrganizationID, "", "", nil,
		func() map[string]string {
			return map[string]string{"policy_id": pol.ID, "permission": pol.Permission}
		})
	return nil
}

// DeletePolicy soft-deletes a policy so it stops granting immediately.
func (e *Engine) DeletePolicy(ctx context.Context, id, orgID, perm string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.permissions.DeletePolicy(ctx, id, orgID, perm); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventPolicyDeleted, true, "", "", orgID, "", "", nil,
		func() map[string]string {
			return map[string]string{"policy_id": id, "permission": perm}
		})
	return nil
}

// InvalidatePrincipalPermissions drops every cached decision for the
// principal in the organization, forcing fresh evaluation on the next
// check. Call it after a role change.
func (e *Engine) InvalidatePrincipalPermissions(ctx context.Context, principalID, orgID string) {
	if e == nil {
		return
	}
	e.permissions.InvalidatePrincipal(ctx, principalID, orgID)
}
