package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/tutor-admin/internal/admin/authstate"
	"finitefield.org/tutor-admin/internal/admin/observability"
	"finitefield.org/tutor-admin/internal/admin/presentation"
)

// LoginEntry attaches the browser session's login entry root to the request
// so the layout shell renders with the flags the mounted login views hold.
// It creates the entry on first use and must run after Session.
func LoginEntry(registry *authstate.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok || registry == nil {
				next.ServeHTTP(w, r)
				return
			}
			ent, err := registry.Get(sess.ID())
			if err != nil {
				observability.FromContext(r.Context()).Warn("login entry unavailable", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			ctx := presentation.WithRoot(r.Context(), ent.Root)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LeaveLogin treats a request outside the login routes as navigation away
// from any login view the session still has mounted: those views are
// unmounted, restoring the shell flags, before the page renders.
func LeaveLogin(registry *authstate.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			root := presentation.NewRoot()
			if sess, ok := SessionFromContext(r.Context()); ok && registry != nil {
				if ent, found := registry.Peek(sess.ID()); found {
					if n := ent.UnmountAll(); n > 0 {
						observability.FromContext(r.Context()).Debug("login views unmounted on navigation", zap.Int("views", n))
					}
					root = ent.Root
				}
			}
			ctx := presentation.WithRoot(r.Context(), root)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
