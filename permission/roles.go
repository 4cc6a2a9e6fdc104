package permission

// Role is one step in the ordered privilege hierarchy. The order is a
// total one: comparisons use numeric levels, never string matching.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleMember     Role = "member"
	RoleAdmin      Role = "admin"
	RoleOwner      Role = "owner"
	RoleSuperAdmin Role = "super_admin"
)

var roleLevels = map[Role]int{
	RoleViewer:     0,
	RoleMember:     1,
	RoleAdmin:      2,
	RoleOwner:      3,
	RoleSuperAdmin: 4,
}

// Level returns the numeric privilege level of the role. Unknown roles
// report ok=false and must never satisfy a requirement.
func (r Role) Level() (int, bool) {
	level, ok := roleLevels[r]
	return level, ok
}

// Known reports whether the role is part of the hierarchy.
func (r Role) Known() bool {
	_, ok := roleLevels[r]
	return ok
}

// HasSufficientRole reports whether actual is at least as privileged
// as required. A required role of member is satisfied by admin, owner,
// and super_admin. Unknown roles on either side deny.
func HasSufficientRole(actual, required Role) bool {
	actualLevel, ok := actual.Level()
	if !ok {
		return false
	}
	requiredLevel, ok := required.Level()
	if !ok {
		return false
	}
	return actualLevel >= requiredLevel
}
