package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeNextTarget(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"console path", "/admin/sections", "/admin/sections"},
		{"keeps query and fragment", "/admin/users?page=2#top", "/admin/users?page=2#top"},
		{"base itself", "/admin", "/admin"},
		{"absolute url", "https://evil.example/admin", ""},
		{"protocol relative", "//evil.example/admin", ""},
		{"backslash", "/admin\\..\\evil", ""},
		{"encoded backslash", "/admin/%5Cevil", ""},
		{"outside base", "/other", ""},
		{"prefix lookalike", "/administrator", ""},
		{"dot segments escape", "/admin/../other", ""},
		{"dot segments inside", "/admin/users/../sections", "/admin/sections"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, sanitizeNextTarget("/admin", tc.raw))
		})
	}
}

func TestRedirectTargetSkipsLoginPage(t *testing.T) {
	t.Parallel()

	h := &loginHandlers{basePath: "/admin", loginPath: "/admin/login"}
	require.Equal(t, "/admin", h.redirectTarget(""))
	require.Equal(t, "/admin", h.redirectTarget("/admin/login?next=/admin/users"))
	require.Equal(t, "/admin/learners", h.redirectTarget("/admin/learners"))
}

func TestLoginURLWithParams(t *testing.T) {
	t.Parallel()

	h := &loginHandlers{loginPath: "/admin/login"}
	require.Equal(t, "/admin/login?status=logged_out", h.loginURLWithParams(map[string]string{"status": "logged_out", "reason": ""}))
}

func TestForceLogin(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]bool{
		"/admin/login":            false,
		"/admin/login?force=1":    true,
		"/admin/login?force=no":   false,
		"/admin/login?force=TRUE": true,
	} {
		require.Equal(t, want, forceLogin(httptest.NewRequest(http.MethodGet, raw, nil)), raw)
	}
}

func TestAuthCookieRoundTrip(t *testing.T) {
	t.Parallel()

	h := &loginHandlers{basePath: "/admin"}
	rec := httptest.NewRecorder()
	h.setAuthCookie(rec, httptest.NewRequest(http.MethodPost, "/admin/login", nil), "tok")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "Authorization", cookies[0].Name)
	require.Equal(t, "Bearer tok", cookies[0].Value)
	require.Equal(t, "/admin", cookies[0].Path)
	require.True(t, cookies[0].HttpOnly)

	rec = httptest.NewRecorder()
	h.clearAuthCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)
}

func TestNormalizeBasePath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/admin", normalizeBasePath(""))
	require.Equal(t, "/console", normalizeBasePath("console/"))
	require.Equal(t, "/", normalizeBasePath("/"))
	require.Equal(t, "/admin/login", resolveLoginPath("/admin", ""))
	require.Equal(t, "/signin", resolveLoginPath("/admin", "/signin"))
}
