package session

import (
	"slices"
	"time"
)

// User is the operator profile remembered between requests.
type User struct {
	UID   string   `json:"uid"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// SignIn records how and when the operator last completed the login page.
type SignIn struct {
	Method       string    `json:"method"`
	At           time.Time `json:"at"`
	RefreshToken string    `json:"refreshToken,omitempty"`
}

// Data is the cookie payload.
type Data struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
	Locale     string    `json:"locale,omitempty"`
	User       *User     `json:"user,omitempty"`
	SignIn     *SignIn   `json:"signIn,omitempty"`
}

// Session is the per-request view of the cookie payload. Mutators mark it
// dirty only when a value actually changes.
type Session struct {
	data      Data
	dirty     bool
	destroyed bool
}

// ID is the stable browser-session key. Login state is registered under it.
func (s *Session) ID() string { return s.data.ID }

// CreatedAt is when the browser session started.
func (s *Session) CreatedAt() time.Time { return s.data.CreatedAt }

// ExpiresAt is the absolute expiry; zero means none.
func (s *Session) ExpiresAt() time.Time { return s.data.ExpiresAt }

// Dirty reports whether anything changed during the request.
func (s *Session) Dirty() bool { return s.dirty }

// Destroyed reports whether Destroy was called.
func (s *Session) Destroyed() bool { return s.destroyed }

// User returns the signed-in operator, or nil.
func (s *Session) User() *User { return s.data.User }

// SetUser stores a copy of user; nil clears it.
func (s *Session) SetUser(user *User) {
	if sameUser(s.data.User, user) {
		return
	}
	if user == nil {
		s.data.User = nil
	} else {
		copied := *user
		copied.Roles = slices.Clone(user.Roles)
		s.data.User = &copied
	}
	s.dirty = true
}

// Locale returns the stored UI language tag.
func (s *Session) Locale() string { return s.data.Locale }

// SetLocale stores the UI language tag.
func (s *Session) SetLocale(locale string) {
	if s.data.Locale != locale {
		s.data.Locale = locale
		s.dirty = true
	}
}

// MarkSignedIn records a completed sign-in. A previously stored refresh
// token is kept.
func (s *Session) MarkSignedIn(method string, at time.Time) {
	next := SignIn{Method: method, At: at.UTC()}
	if s.data.SignIn != nil {
		next.RefreshToken = s.data.SignIn.RefreshToken
	}
	s.data.SignIn = &next
	s.dirty = true
}

// SignInMethod is "password" or "emailLink" after a sign-in, empty otherwise.
func (s *Session) SignInMethod() string {
	if s.data.SignIn == nil {
		return ""
	}
	return s.data.SignIn.Method
}

// SignedInAt is the time of the last sign-in.
func (s *Session) SignedInAt() time.Time {
	if s.data.SignIn == nil {
		return time.Time{}
	}
	return s.data.SignIn.At
}

// RefreshToken returns the provider refresh token, if one was issued.
func (s *Session) RefreshToken() string {
	if s.data.SignIn == nil {
		return ""
	}
	return s.data.SignIn.RefreshToken
}

// SetRefreshToken stores the provider refresh token.
func (s *Session) SetRefreshToken(token string) {
	if s.RefreshToken() == token {
		return
	}
	if s.data.SignIn == nil {
		s.data.SignIn = &SignIn{}
	}
	s.data.SignIn.RefreshToken = token
	s.dirty = true
}

// SignOut forgets the operator but keeps the session ID and locale, so the
// login page that follows stays in the same browser session.
func (s *Session) SignOut() {
	if s.data.User == nil && s.data.SignIn == nil {
		return
	}
	s.data.User = nil
	s.data.SignIn = nil
	s.dirty = true
}

// Destroy drops the cookie when the response is written.
func (s *Session) Destroy() {
	s.destroyed = true
	s.dirty = true
}

// Touch moves the idle clock forward.
func (s *Session) Touch(now time.Time) {
	if now = now.UTC(); now.After(s.data.LastActive) {
		s.data.LastActive = now
		s.dirty = true
	}
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UID == b.UID && a.Email == b.Email && slices.Equal(a.Roles, b.Roles)
}
