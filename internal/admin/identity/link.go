package identity

import (
	"net/url"
	"strings"
)

const emailSignInMode = "signIn"

// IsSignInWithEmailLink reports whether rawURL is an email sign-in link issued
// by the identity provider. Links wrapped by dynamic links are unwrapped first.
func IsSignInWithEmailLink(rawURL string) bool {
	params, ok := actionParams(rawURL)
	if !ok {
		return false
	}
	return params.Get("mode") == emailSignInMode
}

// OOBCode extracts the one-time code from an email sign-in link.
func OOBCode(rawURL string) string {
	params, ok := actionParams(rawURL)
	if !ok {
		return ""
	}
	return params.Get("oobCode")
}

func actionParams(rawURL string) (url.Values, bool) {
	link := deepLink(strings.TrimSpace(rawURL))
	params := queryOf(link)
	if params == nil {
		return nil, false
	}
	for _, key := range []string{"apiKey", "oobCode", "mode"} {
		if strings.TrimSpace(params.Get(key)) == "" {
			return nil, false
		}
	}
	return params, true
}

// deepLink follows the provider's precedence: link inside deep_link_id, then
// deep_link_id itself, then deep_link_id inside link, then the URL as given.
func deepLink(rawURL string) string {
	params := queryOf(rawURL)
	if params == nil {
		return rawURL
	}
	var nested, fromLink string
	if v := params.Get("deep_link_id"); v != "" {
		if inner := queryOf(v); inner != nil {
			nested = inner.Get("link")
		}
	}
	if v := params.Get("link"); v != "" {
		if inner := queryOf(v); inner != nil {
			fromLink = inner.Get("deep_link_id")
		}
	}
	return firstNonEmpty(nested, params.Get("deep_link_id"), fromLink, rawURL)
}

func queryOf(raw string) url.Values {
	if raw == "" {
		return nil
	}
	idx := strings.Index(raw, "?")
	if idx < 0 {
		return nil
	}
	query := raw[idx+1:]
	if hash := strings.Index(query, "#"); hash >= 0 {
		query = query[:hash]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil
	}
	return values
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
