package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"finitefield.org/tutor-admin/internal/admin/authstate"
	"finitefield.org/tutor-admin/internal/admin/httpserver"
	"finitefield.org/tutor-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tutor-admin/internal/admin/i18n"
	"finitefield.org/tutor-admin/internal/admin/identity"
	"finitefield.org/tutor-admin/internal/admin/session"
)

// DefaultAccounts seeds the static identity provider used by NewServer.
var DefaultAccounts = map[string]string{
	"staff@example.com": "correct-horse",
}

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*serverSettings)

type serverSettings struct {
	cfg      httpserver.Config
	provider authstate.Provider
}

// WithAuthenticator overrides the authenticator used by the admin server.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(s *serverSettings) {
		s.cfg.Authenticator = auth
	}
}

// WithBasePath sets a custom base path for the admin routes.
func WithBasePath(path string) ServerOption {
	return func(s *serverSettings) {
		s.cfg.BasePath = path
	}
}

// WithProvider replaces the identity provider backing login submissions.
func WithProvider(provider authstate.Provider) ServerOption {
	return func(s *serverSettings) {
		s.provider = provider
	}
}

// WithSubmitWait bounds how long a login POST waits for the provider.
func WithSubmitWait(d time.Duration) ServerOption {
	return func(s *serverSettings) {
		s.cfg.SubmitWait = d
	}
}

// NewServer constructs an httptest server running the admin HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	bundle, err := i18n.Load(i18n.DefaultLocale)
	if err != nil {
		t.Fatalf("load locales: %v", err)
	}
	sessions, err := session.NewManager(session.Config{
		HashKey:    []byte("0123456789abcdef0123456789abcdef"),
		CookiePath: "/",
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	settings := serverSettings{
		cfg: httpserver.Config{
			Address:           ":0",
			BasePath:          "/admin",
			CSRFCookieName:    "csrf_token",
			CSRFHeaderName:    "X-CSRF-Token",
			Authenticator:     middleware.DefaultAuthenticator(),
			Sessions:          sessions,
			Bundle:            bundle,
			MinPasswordLength: 6,
			SubmitWait:        2 * time.Second,
			MetricsPath:       "-",
		},
		provider: identity.NewStaticProvider(DefaultAccounts),
	}
	for _, opt := range opts {
		opt(&settings)
	}

	registry := authstate.NewRegistry(settings.provider, bundle)
	t.Cleanup(registry.Close)
	settings.cfg.Registry = registry

	srv, err := httpserver.New(settings.cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}
