package permission

import "time"

// Policy is an organization-scoped conditional grant evaluated when no
// static role pattern matches. Policies are created and soft-deleted
// by admins and read-only at request time.
type Policy struct {
	ID             string
	OrganizationID string
	Permission     string
	Conditions     Conditions
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Conditions are attribute predicates on a policy. A policy matches
// when every condition that is present passes; absent conditions are
// unconstrained.
type Conditions struct {
	// SubjectID restricts the grant to one principal.
	SubjectID string `json:"subject_id,omitempty"`
	// ResourceID restricts the grant to one resource.
	ResourceID string `json:"resource_id,omitempty"`
	// NotBefore / NotAfter bound the validity window.
	NotBefore *time.Time `json:"not_before,omitempty"`
	NotAfter  *time.Time `json:"not_after,omitempty"`
	// Attributes are key/value equality checks against the caller's
	// evaluation context.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Match evaluates all present conditions against the request.
func (c Conditions) Match(subjectID, resourceID string, now time.Time, evalCtx map[string]string) bool {
	if c.SubjectID != "" && c.SubjectID != subjectID {
		return false
	}
	if c.ResourceID != "" && c.ResourceID != resourceID {
		return false
	}
	if c.NotBefore != nil && now.Before(*c.NotBefore) {
		return false
	}
	if c.NotAfter != nil && now.After(*c.NotAfter) {
		return false
	}
	for key, want := range c.Attributes {
		if evalCtx[key] != want {
			return false
		}
	}
	return true
}
