package middleware

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// ErrIDTokenExpired lets verifiers other than the Admin SDK report expiry.
var ErrIDTokenExpired = errors.New("id token expired")

// IDTokenVerifier is the slice of *firebaseauth.Client the console needs.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

type revocationChecker interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

var defaultRoleClaims = []string{"role", "roles"}

// FirebaseAuthenticator checks Firebase ID tokens and reads the operator's
// roles from custom claims.
type FirebaseAuthenticator struct {
	verifier     IDTokenVerifier
	checkRevoked bool
	roleClaims   []string
}

// FirebaseOption configures a FirebaseAuthenticator.
type FirebaseOption func(*FirebaseAuthenticator)

// WithRevocationCheck also rejects tokens whose session was revoked, for
// example after a password change. It needs a verifier that supports it.
func WithRevocationCheck() FirebaseOption {
	return func(f *FirebaseAuthenticator) { f.checkRevoked = true }
}

// WithRoleClaims overrides the custom claim names roles are read from.
func WithRoleClaims(names ...string) FirebaseOption {
	return func(f *FirebaseAuthenticator) {
		if len(names) > 0 {
			f.roleClaims = names
		}
	}
}

// NewFirebaseAuthenticator panics on a nil verifier.
func NewFirebaseAuthenticator(verifier IDTokenVerifier, opts ...FirebaseOption) *FirebaseAuthenticator {
	if verifier == nil {
		panic("middleware: nil IDTokenVerifier")
	}
	f := &FirebaseAuthenticator{verifier: verifier, roleClaims: defaultRoleClaims}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Authenticate implements Authenticator.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	var (
		verified *firebaseauth.Token
		err      error
	)
	if rc, ok := f.verifier.(revocationChecker); ok && f.checkRevoked {
		verified, err = rc.VerifyIDTokenAndCheckRevoked(r.Context(), token)
	} else {
		verified, err = f.verifier.VerifyIDToken(r.Context(), token)
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrIDTokenExpired), firebaseauth.IsIDTokenExpired(err), firebaseauth.IsIDTokenRevoked(err):
		return nil, NewAuthError(ReasonTokenExpired, err)
	default:
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}

	email, _ := verified.Claims["email"].(string)
	var raw []any
	for _, name := range f.roleClaims {
		raw = append(raw, verified.Claims[name])
	}
	return &User{
		UID:   verified.UID,
		Email: strings.TrimSpace(email),
		Roles: claimRoles(raw...),
		Token: token,
	}, nil
}

// claimRoles accepts each claim as a string, a list of strings or a
// {"role": true} object. Duplicates are dropped; object keys are taken in
// sorted order.
func claimRoles(claims ...any) []string {
	var roles []string
	seen := map[string]bool{}
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" && !seen[s] {
			seen[s] = true
			roles = append(roles, s)
		}
	}
	for _, claim := range claims {
		switch v := claim.(type) {
		case string:
			add(v)
		case []string:
			for _, s := range v {
				add(s)
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case map[string]any:
			keys := make([]string, 0, len(v))
			for k, on := range v {
				if b, _ := on.(bool); b {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			for _, k := range keys {
				add(k)
			}
		}
	}
	return roles
}
