package login

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

// DefaultMinPasswordLength matches the identity provider's own minimum.
const DefaultMinPasswordLength = 6

// Message keys selected by the validator.
const (
	KeyEmailRequired    = "Login.emailRequired"
	KeyEmailInvalid     = "Login.emailInvalid"
	KeyPasswordRequired = "Login.passwordRequired"
	KeyPasswordTooShort = "Login.passwordTooShort"
)

var validate = validator.New()

// Translator resolves message keys for a locale.
type Translator interface {
	T(locale, key string) string
}

// FieldResult is the outcome for a single form field.
type FieldResult struct {
	Valid      bool
	MessageKey string
	Message    string
}

// ValidationResult is derived from the credentials and never stored.
type ValidationResult struct {
	Email     FieldResult
	Password  FieldResult
	CanSubmit bool
}

// PasswordModeResult is the fixed result used in password sign-in mode, where
// the server is authoritative. CanSubmit is false but is never consulted.
func PasswordModeResult() ValidationResult {
	return ValidationResult{
		Email:    FieldResult{Valid: true},
		Password: FieldResult{Valid: true},
	}
}

// Validator checks credentials entered on the set-new-password path.
type Validator struct {
	minLength  int
	passwordOK string
	translator Translator
}

// NewValidator builds a validator. A non-positive minimum uses the default;
// a nil translator leaves Message equal to the key.
func NewValidator(minLength int, translator Translator) *Validator {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	return &Validator{
		minLength:  minLength,
		passwordOK: "min=" + strconv.Itoa(minLength),
		translator: translator,
	}
}

// MinLength returns the configured minimum password length in runes.
func (v *Validator) MinLength() int { return v.minLength }

// Validate is pure: equal inputs always produce equal results.
func (v *Validator) Validate(email, password, locale string) ValidationResult {
	res := ValidationResult{
		Email:    v.field(email, locale, "required", KeyEmailRequired, "email", KeyEmailInvalid),
		Password: v.field(password, locale, "required", KeyPasswordRequired, v.passwordOK, KeyPasswordTooShort),
	}
	res.CanSubmit = res.Email.Valid && res.Password.Valid
	return res
}

func (v *Validator) field(value, locale, presence, presenceKey, shape, shapeKey string) FieldResult {
	if err := validate.Var(value, presence); err != nil {
		return v.invalid(locale, presenceKey)
	}
	if err := validate.Var(value, shape); err != nil {
		return v.invalid(locale, shapeKey)
	}
	return FieldResult{Valid: true}
}

func (v *Validator) invalid(locale, key string) FieldResult {
	msg := key
	if v.translator != nil {
		msg = v.translator.T(locale, key)
	}
	return FieldResult{MessageKey: key, Message: msg}
}
