package login

import (
	"net/url"
	"strings"
)

// Mode selects which submission protocol a login view activation uses.
type Mode int

const (
	// ModePasswordSignIn submits email and password for a plain sign-in.
	ModePasswordSignIn Mode = iota
	// ModeSetNewPassword exchanges a one-time email link and sets a password.
	ModeSetNewPassword
)

// String returns the label used in logs and metrics.
func (m Mode) String() string {
	switch m {
	case ModeSetNewPassword:
		return "set_new_password"
	default:
		return "password_sign_in"
	}
}

// LinkPredicate reports whether a URL is a provider one-time sign-in link.
type LinkPredicate func(rawURL string) bool

// DetectMode picks the mode for the URL the view was activated with. Anything
// the predicate does not recognise, including URLs that fail to parse, falls
// back to password sign-in.
func DetectMode(rawURL string, isLink LinkPredicate) Mode {
	if isLink == nil {
		return ModePasswordSignIn
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ModePasswordSignIn
	}
	if _, err := url.Parse(rawURL); err != nil {
		return ModePasswordSignIn
	}
	if isLink(rawURL) {
		return ModeSetNewPassword
	}
	return ModePasswordSignIn
}
