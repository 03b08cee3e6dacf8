package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/tutor-admin/internal/admin/observability"
	appsession "finitefield.org/tutor-admin/internal/admin/session"
)

// User is the signed-in console operator.
type User struct {
	UID   string
	Email string
	Roles []string
	Token string
}

// Authenticator turns an ID token into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// ErrUnauthorized is the generic authentication failure.
var ErrUnauthorized = errors.New("unauthorized")

// Failure reasons reported by Authenticators through AuthError.
const (
	ReasonMissingToken   = "missing_token"
	ReasonTokenInvalid   = "token_invalid"
	ReasonTokenExpired   = "token_expired"
	ReasonSessionExpired = "session_expired"
)

// AuthError tags an authentication failure with a reason code.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError wraps err with reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

// tokenCookies are checked in order when no Authorization header is sent.
var tokenCookies = []string{"Authorization", "__session", "idToken", "IDToken"}

type userKey struct{}

// ContextWithUser stores user on ctx.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the operator attached by Auth.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey{}).(*User)
	return user, ok && user != nil
}

// DefaultAuthenticator trusts any non-empty token and grants the admin role.
// Only meant for local runs without an identity backend.
func DefaultAuthenticator() Authenticator {
	return devAuthenticator{}
}

type devAuthenticator struct{}

func (devAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	return &User{UID: token, Roles: []string{"admin"}, Token: token}, nil
}

// Auth requires a valid ID token on every request. Failures clear the
// session and send the browser to loginPath.
func Auth(authenticator Authenticator, loginPath string) func(http.Handler) http.Handler {
	if authenticator == nil {
		authenticator = DefaultAuthenticator()
	}
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, source := credential(r)
			if token == "" {
				denyAuth(w, r, loginPath, ReasonMissingToken, ErrUnauthorized)
				return
			}

			user, err := authenticator.Authenticate(r, token)
			if err != nil || user == nil {
				reason, cause := classify(err)
				denyAuth(w, r, loginPath, reason, cause)
				return
			}

			if sess, ok := SessionFromContext(r.Context()); ok {
				sess.SetUser(&appsession.User{
					UID:   user.UID,
					Email: user.Email,
					Roles: append([]string(nil), user.Roles...),
				})
			}
			observability.FromContext(r.Context()).Debug("operator authenticated",
				zap.String("uid", user.UID),
				zap.String("source", source),
			)
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// credential finds the bearer token and names where it came from.
func credential(r *http.Request) (token, source string) {
	if v, ok := stripBearer(r.Header.Get("Authorization")); ok && v != "" {
		return v, "header"
	}
	for _, name := range tokenCookies {
		c, err := r.Cookie(name)
		if err != nil {
			continue
		}
		raw := strings.TrimSpace(c.Value)
		if v, ok := stripBearer(raw); ok {
			raw = v
		}
		if raw != "" {
			return raw, "cookie:" + name
		}
	}
	return "", ""
}

func stripBearer(v string) (string, bool) {
	const prefix = "bearer "
	if len(v) < len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(v[len(prefix):]), true
}

func classify(err error) (string, error) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		reason := authErr.Reason
		if reason == "" {
			reason = ReasonTokenInvalid
		}
		cause := authErr.Err
		if cause == nil {
			cause = ErrUnauthorized
		}
		return reason, cause
	}
	if err == nil {
		err = ErrUnauthorized
	}
	return ReasonTokenInvalid, err
}

func denyAuth(w http.ResponseWriter, r *http.Request, loginPath, reason string, cause error) {
	observability.FromContext(r.Context()).Info("auth failure",
		zap.String("reason", reason),
		zap.Error(cause),
	)
	if sess, ok := SessionFromContext(r.Context()); ok && sess != nil {
		sess.Destroy()
	}

	if IsHTMXRequest(r.Context()) {
		// An expired token is usually refreshed by the page itself.
		if reason == ReasonTokenExpired {
			w.Header().Set("HX-Refresh", "true")
		} else {
			w.Header().Set("HX-Redirect", loginPath)
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginTarget(r, loginPath, reason), http.StatusFound)
}

// loginTarget is loginPath plus reason=expired for aged-out credentials and a
// next parameter for GETs below the console root.
func loginTarget(r *http.Request, loginPath, reason string) string {
	u, err := url.Parse(loginPath)
	if err != nil {
		return loginPath
	}
	q := u.Query()
	if reason == ReasonTokenExpired || reason == ReasonSessionExpired {
		q.Set("reason", "expired")
	}
	if info, ok := RequestInfoFromContext(r.Context()); ok && r.Method == http.MethodGet {
		if p := strings.TrimSuffix(r.URL.Path, "/"); p != "" && p != strings.TrimSuffix(info.BasePath, "/") {
			q.Set("next", r.URL.RequestURI())
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
