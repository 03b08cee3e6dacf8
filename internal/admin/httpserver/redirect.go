package httpserver

import (
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	custommw "finitefield.org/tutor-admin/internal/admin/httpserver/middleware"
)

// tokenCookieName is read back by custommw.Auth on every console request.
const tokenCookieName = "Authorization"

// redirectTarget is where a signed-in operator lands: a safe ?next= inside
// the console that is not the login page itself, else the console root.
func (h *loginHandlers) redirectTarget(raw string) string {
	next := sanitizeNextTarget(h.basePath, raw)
	if next == "" {
		return h.basePath
	}
	if u, err := url.Parse(next); err == nil && path.Clean(u.Path) == path.Clean(h.loginPath) {
		return h.basePath
	}
	return next
}

// loginURLWithParams is the login path with the non-empty params set.
func (h *loginHandlers) loginURLWithParams(params map[string]string) string {
	u, err := url.Parse(h.loginPath)
	if err != nil {
		return h.loginPath
	}
	q := u.Query()
	for k, v := range params {
		if v = strings.TrimSpace(v); v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// setAuthCookie stores the ID token for custommw.Auth. It lives as long as
// the browser session.
func (h *loginHandlers) setAuthCookie(w http.ResponseWriter, r *http.Request, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		h.clearAuthCookie(w)
		return
	}
	if len(token) < 7 || !strings.EqualFold(token[:7], "bearer ") {
		token = "Bearer " + token
	}
	c := h.authCookie(token, h.secureCookies || r.TLS != nil)
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if exp := sess.ExpiresAt(); !exp.IsZero() {
			c.Expires = exp.UTC()
			if left := time.Until(exp); left > 0 {
				c.MaxAge = int(left.Round(time.Second) / time.Second)
			}
		}
	}
	http.SetCookie(w, c)
}

func (h *loginHandlers) clearAuthCookie(w http.ResponseWriter) {
	c := h.authCookie("", h.secureCookies)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

func (h *loginHandlers) authCookie(value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieName,
		Value:    value,
		Path:     h.basePath,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// forceLogin reports whether ?force= asks for the login page even though the
// operator is signed in.
func forceLogin(r *http.Request) bool {
	v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("force")))
	return v == "1" || v == "true" || v == "yes" || v == "force"
}

// sanitizeNextTarget keeps raw only when it is a local path inside basePath.
// Anything carrying a scheme, a host or a backslash is dropped, and dot
// segments are resolved before the prefix check.
func sanitizeNextTarget(basePath, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "//") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" || u.User != nil || u.Opaque != "" {
		return ""
	}
	decoded, err := url.PathUnescape(u.Path)
	if err != nil || strings.ContainsRune(decoded, '\\') {
		return ""
	}

	clean := path.Clean("/" + decoded)
	if !within(normalizeBasePath(basePath), clean) {
		return ""
	}
	out := &url.URL{Path: clean, RawQuery: u.RawQuery, Fragment: u.Fragment}
	return out.String()
}

func within(base, p string) bool {
	if base == "/" {
		return true
	}
	return p == base || strings.HasPrefix(p, base+"/")
}
