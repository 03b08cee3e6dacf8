package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/tutor-admin/internal/admin/observability"
	"finitefield.org/tutor-admin/internal/admin/rbac"
)

// RequireCapability gates a console area. It runs after Auth; a request
// without a user or whose roles do not grant capability gets 403, and htmx
// callers are told to refresh so the shell re-renders without the area.
func RequireCapability(capability rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var roles []string
			uid := ""
			if user, ok := UserFromContext(r.Context()); ok && user != nil {
				roles, uid = user.Roles, user.UID
			}
			if uid == "" || !rbac.HasCapability(roles, capability) {
				observability.FromContext(r.Context()).Info("console area denied",
					zap.String("capability", string(capability)),
					zap.String("uid", uid),
					zap.Strings("roles", roles),
				)
				if IsHTMXRequest(r.Context()) {
					w.Header().Set("HX-Refresh", "true")
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
