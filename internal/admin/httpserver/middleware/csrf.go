package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"finitefield.org/tutor-admin/internal/admin/observability"
)

// CSRFFormField carries the token on plain form posts, where no header can be set.
const CSRFFormField = "csrf_token"

const (
	defaultCSRFCookie = "admin_csrf"
	defaultCSRFHeader = "X-CSRF-Token"
	defaultCSRFMaxAge = 24 * time.Hour
	csrfTokenBytes    = 32
)

type csrfKey struct{}

// CSRFConfig controls where the double-submit token lives.
type CSRFConfig struct {
	CookieName string
	CookiePath string
	HeaderName string
	MaxAge     time.Duration
	Secure     bool
}

func (c CSRFConfig) withDefaults() CSRFConfig {
	if c.CookieName == "" {
		c.CookieName = defaultCSRFCookie
	}
	if c.HeaderName == "" {
		c.HeaderName = defaultCSRFHeader
	}
	if c.CookiePath == "" {
		c.CookiePath = "/"
	}
	if c.MaxAge <= 0 {
		c.MaxAge = defaultCSRFMaxAge
	}
	return c
}

type csrfGuard struct {
	cfg CSRFConfig
}

// CSRF issues a token cookie on every request and requires state-changing
// requests to echo it back through the header or the login form field.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	g := csrfGuard{cfg: cfg.withDefaults()}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := g.token(w, r)
			if err != nil {
				observability.FromContext(r.Context()).Error("csrf token issue failed", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if mutates(r.Method) && !g.verify(r, token) {
				g.reject(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
		})
	}
}

// CSRFTokenFromContext returns the token to embed in forms and htmx headers.
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfKey{}).(string)
	return token
}

func (g csrfGuard) token(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(g.cfg.CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	token, err := randomToken(csrfTokenBytes)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     g.cfg.CookiePath,
		MaxAge:   int(g.cfg.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   g.cfg.Secure || r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

func (g csrfGuard) verify(r *http.Request, token string) bool {
	got := r.Header.Get(g.cfg.HeaderName)
	if got == "" {
		got = r.PostFormValue(CSRFFormField)
	}
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

// reject answers 403. htmx callers are told to reload so the page picks up
// the current cookie token.
func (g csrfGuard) reject(w http.ResponseWriter, r *http.Request) {
	observability.FromContext(r.Context()).Warn("csrf check failed",
		zap.String("method", r.Method),
		zap.Bool("htmx", IsHTMXRequest(r.Context())),
	)
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Refresh", "true")
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func mutates(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
