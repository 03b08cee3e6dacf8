package middleware

import (
	"net/http"
	"strings"
	"time"

	"finitefield.org/tutor-admin/internal/admin/i18n"
)

const localeCookieMaxAge = 365 * 24 * time.Hour

// Locale resolves the UI locale for the request and stores it, together with
// the bundle, on the context. An explicit ?lang= choice is remembered in a
// cookie and in the session.
func Locale(bundle *i18n.Bundle, cookiePath string, secure bool) func(http.Handler) http.Handler {
	if bundle == nil {
		panic("i18n bundle is required")
	}
	if cookiePath == "" {
		cookiePath = "/"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := bundle.Resolve(r)
			explicit := strings.TrimSpace(r.URL.Query().Get("lang")) != ""
			sess, hasSession := SessionFromContext(r.Context())

			if !explicit && hasSession && sess.Locale() != "" {
				if _, err := r.Cookie(i18n.CookieName); err != nil {
					locale = bundle.Normalize(sess.Locale())
				}
			}
			if explicit {
				http.SetCookie(w, &http.Cookie{
					Name:     i18n.CookieName,
					Value:    locale,
					Path:     cookiePath,
					MaxAge:   int(localeCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure || r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}
			if hasSession {
				sess.SetLocale(locale)
			}

			ctx := i18n.WithBundle(r.Context(), bundle)
			ctx = i18n.WithLocale(ctx, locale)
			w.Header().Set("Content-Language", locale)
			w.Header().Add("Vary", "Accept-Language")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
