package middleware

import (
	"context"
	"net/http"
	"strings"
)

type htmxContextKey struct{}

// HTMXRequest describes the htmx headers of a request. The login fragments
// only need to know whether htmx is driving the request and what it swaps.
type HTMXRequest struct {
	Enabled    bool
	Target     string
	Trigger    string
	CurrentURL string
}

// HTMX reads the HX-* request headers into the context.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := HTMXRequest{
				Enabled:    strings.EqualFold(r.Header.Get("HX-Request"), "true"),
				Target:     r.Header.Get("HX-Target"),
				Trigger:    r.Header.Get("HX-Trigger"),
				CurrentURL: r.Header.Get("HX-Current-URL"),
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxContextKey{}, req)))
		})
	}
}

// HTMXFromContext returns the htmx headers recorded by HTMX.
func HTMXFromContext(ctx context.Context) HTMXRequest {
	req, _ := ctx.Value(htmxContextKey{}).(HTMXRequest)
	return req
}

// IsHTMXRequest reports whether htmx issued the current request.
func IsHTMXRequest(ctx context.Context) bool {
	return HTMXFromContext(ctx).Enabled
}

// Redirect sends the client to target. htmx requests get HX-Redirect on a
// 204 so the browser performs a full navigation; others a 302 for reads and
// a 303 after a form post.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	status := http.StatusSeeOther
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		status = http.StatusFound
	}
	http.Redirect(w, r, target, status)
}

// Refresh asks htmx to reload the whole page, used when a fragment refers to
// server state that no longer exists.
func Refresh(w http.ResponseWriter) {
	w.Header().Set("HX-Refresh", "true")
	w.WriteHeader(http.StatusNoContent)
}

// RequireHTMX answers 404 to anything but htmx so fragment routes are not
// reachable by direct navigation.
func RequireHTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "HX-Request")
			if !IsHTMXRequest(r.Context()) {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
