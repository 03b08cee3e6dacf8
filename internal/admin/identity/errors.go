package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Reason classifies provider failures for display.
type Reason string

const (
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonLinkInvalid        Reason = "link_invalid"
	ReasonLinkExpired        Reason = "link_expired"
	ReasonTooManyAttempts    Reason = "too_many_attempts"
	ReasonUserDisabled       Reason = "user_disabled"
	ReasonWeakPassword       Reason = "weak_password"
	ReasonUnavailable        Reason = "unavailable"
	ReasonUnknown            Reason = "unknown"
)

// ErrNotConfigured is returned when a call needs configuration that is missing.
var ErrNotConfigured = errors.New("identity: provider not configured")

// ProviderError wraps a failure reported by the identity provider.
type ProviderError struct {
	Code   string
	Reason Reason
	Err    error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("identity: %s (%s): %v", e.Reason, e.Code, e.Err)
	}
	return fmt.Sprintf("identity: %s (%s)", e.Reason, e.Code)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ReasonOf returns the classified reason of err, or ReasonUnknown.
func ReasonOf(err error) Reason {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.Reason != "" {
		return perr.Reason
	}
	return ReasonUnknown
}

func classify(code string) Reason {
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "MISSING_PASSWORD":
		return ReasonInvalidCredentials
	case "INVALID_OOB_CODE", "INVALID_ID_TOKEN", "MISSING_OOB_CODE":
		return ReasonLinkInvalid
	case "EXPIRED_OOB_CODE", "TOKEN_EXPIRED", "CREDENTIAL_TOO_OLD_LOGIN_AGAIN":
		return ReasonLinkExpired
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return ReasonTooManyAttempts
	case "USER_DISABLED":
		return ReasonUserDisabled
	case "WEAK_PASSWORD":
		return ReasonWeakPassword
	default:
		return ReasonUnknown
	}
}

// errorCode strips the human suffix the REST API appends, e.g.
// "WEAK_PASSWORD : Password should be at least 6 characters".
func errorCode(message string) string {
	code := message
	if idx := strings.Index(code, ":"); idx >= 0 {
		code = code[:idx]
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
