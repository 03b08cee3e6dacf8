package rbac

import (
	"slices"
	"strings"
)

// Role is a console access tier carried in the identity token's custom claims.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
	RoleTeacher     Role = "teacher"
)

// Capability names a console area that handlers and navigation can gate on.
type Capability string

const (
	CapRootView     Capability = "root.view"
	CapUsersManage  Capability = "users.manage"
	CapTeachersView Capability = "teachers.view"
	CapLearnersView Capability = "learners.view"
	CapSectionsView Capability = "sections.view"
)

var capabilityRoles = map[Capability]Roles{
	CapRootView:     {RoleAdmin, RoleCoordinator, RoleTeacher},
	CapUsersManage:  {RoleAdmin},
	CapTeachersView: {RoleAdmin, RoleCoordinator},
	CapLearnersView: {RoleAdmin, RoleCoordinator, RoleTeacher},
	CapSectionsView: {RoleAdmin, RoleCoordinator, RoleTeacher},
}

// Roles is a set of roles.
type Roles []Role

// Has returns true if the provided role exists in the set.
func (rs Roles) Has(role Role) bool {
	return slices.Contains(rs, role)
}

// Intersects returns true if any role in candidate is also present in the set.
func (rs Roles) Intersects(candidate Roles) bool {
	return slices.ContainsFunc(candidate, rs.Has)
}

// NormaliseRoles lowercases, trims and de-duplicates raw claim values.
func NormaliseRoles(raw []string) Roles {
	roles := make(Roles, 0, len(raw))
	for _, val := range raw {
		role := Role(strings.ToLower(strings.TrimSpace(val)))
		if role == "" || roles.Has(role) {
			continue
		}
		roles = append(roles, role)
	}
	return roles
}

// HasAnyRole reports whether userRoles and required overlap. Admins always pass.
func HasAnyRole(userRoles []string, required Roles) bool {
	roles := NormaliseRoles(userRoles)
	return roles.Has(RoleAdmin) || required.Intersects(roles)
}

// HasCapability reports whether userRoles grant capability. An empty
// capability is unconstrained; an unknown one is denied even to admins.
func HasCapability(userRoles []string, capability Capability) bool {
	if capability == "" {
		return true
	}
	allowed, ok := capabilityRoles[capability]
	if !ok {
		return false
	}
	return HasAnyRole(userRoles, allowed)
}

// CapabilitiesForRoles enumerates the capabilities userRoles grant.
func CapabilitiesForRoles(userRoles []string) map[Capability]bool {
	caps := make(map[Capability]bool, len(capabilityRoles))
	for capability := range capabilityRoles {
		if HasCapability(userRoles, capability) {
			caps[capability] = true
		}
	}
	return caps
}
