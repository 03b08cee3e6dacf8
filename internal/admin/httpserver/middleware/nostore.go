package middleware

import "net/http"

// NoStore marks responses as uncacheable. Login pages carry per-session state
// and CSRF tokens that must never be replayed from a cache.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Cache-Control", "no-store, max-age=0")
			h.Set("Pragma", "no-cache")
			h.Add("Vary", "Cookie")
			next.ServeHTTP(w, r)
		})
	}
}
