package helpers

import (
	"context"
	"path"
	"strings"

	"finitefield.org/tutor-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tutor-admin/internal/admin/rbac"
)

// NavActive reports whether the sidebar link for route matches the current
// request. With prefix set, nested pages keep their section highlighted.
func NavActive(ctx context.Context, route string, prefix bool) bool {
	if strings.TrimSpace(route) == "" {
		return false
	}
	current := cleanRoute(middleware.RequestPathFromContext(ctx))
	target := cleanRoute(route)
	switch {
	case current == target:
		return true
	case !prefix || target == "/":
		return false
	default:
		return strings.HasPrefix(current, target+"/")
	}
}

// HasCapability reports whether the signed-in operator holds capability.
func HasCapability(ctx context.Context, capability rbac.Capability) bool {
	if capability == "" {
		return true
	}
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		return false
	}
	return rbac.HasCapability(user.Roles, capability)
}

func cleanRoute(p string) string {
	return path.Clean("/" + strings.TrimSpace(p))
}
