package login

import "context"

// Message keys for titles and submit labels.
const (
	KeyTitleLogin       = "Login.login"
	KeyTitleSetPassword = "Login.setNewPassword"
	KeySubmitLogin      = "Login.login"
	KeySubmitSetPwd     = "Login.setPassword"
)

type submission struct {
	email    string
	password string
	url      string
}

type modeHandler struct {
	titleKey       string
	submitKey      string
	forgotPassword bool
	// gated handlers block submission until validation passes.
	gated    bool
	validate func(v *Validator, email, password, locale string) ValidationResult
	submit   func(ctx context.Context, store Store, s submission)
}

var handlers = map[Mode]modeHandler{
	ModePasswordSignIn: {
		titleKey:       KeyTitleLogin,
		submitKey:      KeySubmitLogin,
		forgotPassword: true,
		validate: func(*Validator, string, string, string) ValidationResult {
			return PasswordModeResult()
		},
		submit: func(ctx context.Context, store Store, s submission) {
			store.SubmitCredentials(ctx, s.email, s.password)
		},
	},
	ModeSetNewPassword: {
		titleKey:  KeyTitleSetPassword,
		submitKey: KeySubmitSetPwd,
		gated:     true,
		validate: func(v *Validator, email, password, locale string) ValidationResult {
			return v.Validate(email, password, locale)
		},
		submit: func(ctx context.Context, store Store, s submission) {
			store.SubmitPassword(ctx, s.email, s.password, s.url)
		},
	},
}

func handlerFor(m Mode) modeHandler {
	if h, ok := handlers[m]; ok {
		return h
	}
	return handlers[ModePasswordSignIn]
}
