package login

import (
	"context"
	"sync"
)

// Phase is the state of a login view activation.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseEditing
	PhaseSubmitting
	PhaseRedirecting
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseSubmitting:
		return "submitting"
	case PhaseRedirecting:
		return "redirecting"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// SubmitOutcome reports what Submit did with a submit event.
type SubmitOutcome int

const (
	SubmitDispatched SubmitOutcome = iota
	SubmitRejectedInvalid
	SubmitRejectedBusy
	SubmitRejectedRedirecting
	SubmitRejectedUnmounted
)

func (o SubmitOutcome) String() string {
	switch o {
	case SubmitDispatched:
		return "dispatched"
	case SubmitRejectedInvalid:
		return "invalid"
	case SubmitRejectedBusy:
		return "busy"
	case SubmitRejectedRedirecting:
		return "redirecting"
	default:
		return "unmounted"
	}
}

// Credentials is the form text owned by one view activation.
type Credentials struct {
	Email    string
	Password string
}

// ViewConfig wires a view to its collaborators.
type ViewConfig struct {
	// URL is the navigation URL the view was activated with.
	URL       string
	IsLink    LinkPredicate
	Store     Store
	Flags     Flags
	Validator *Validator
	Locale    string
	// RootPath is the redirect target once the session is authenticated.
	RootPath string
	// ForgotPasswordPath is linked from password sign-in mode only.
	ForgotPasswordPath string
}

// Render is what the view shows at a point in time. When Redirect is set
// nothing else is meaningful. The password is never part of the output.
type Render struct {
	Redirect           string
	Mode               Mode
	Phase              Phase
	TitleKey           string
	SubmitKey          string
	Email              string
	Validation         ValidationResult
	ShowValidation     bool
	SubmitDisabled     bool
	Loading            bool
	Error              string
	ForgotPasswordPath string
}

// View orchestrates mode detection, validation and the store for a single
// activation of the login surface.
type View struct {
	mode       Mode
	handler    modeHandler
	url        string
	store      Store
	validator  *Validator
	locale     string
	rootPath   string
	forgotPath string
	lifecycle  *Lifecycle
	changes    chan State

	mu          sync.Mutex
	phase       Phase
	creds       Credentials
	validation  ValidationResult
	state       State
	mounted     bool
	unmounted   bool
	dispatching bool
	cancel      func()
}

// NewView detects the mode once; it stays fixed for the view's lifetime.
func NewView(cfg ViewConfig) *View {
	validator := cfg.Validator
	if validator == nil {
		validator = NewValidator(0, nil)
	}
	rootPath := cfg.RootPath
	if rootPath == "" {
		rootPath = "/"
	}
	mode := DetectMode(cfg.URL, cfg.IsLink)
	v := &View{
		mode:       mode,
		handler:    handlerFor(mode),
		url:        cfg.URL,
		store:      cfg.Store,
		validator:  validator,
		locale:     cfg.Locale,
		rootPath:   rootPath,
		forgotPath: cfg.ForgotPasswordPath,
		lifecycle:  NewLifecycle(cfg.Flags, cfg.Store),
		changes:    make(chan State, 1),
	}
	v.validation = v.handler.validate(v.validator, "", "", v.locale)
	return v
}

// Mode returns the mode detected at construction.
func (v *View) Mode() Mode { return v.mode }

// Mount activates the view: flags are suspended and the store observed.
// Subsequent calls are no-ops.
func (v *View) Mount() {
	v.mu.Lock()
	if v.mounted || v.unmounted {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	v.mu.Unlock()

	v.lifecycle.Activate()
	cancel := v.store.Subscribe(v.observe)

	v.mu.Lock()
	v.cancel = cancel
	v.mu.Unlock()
	v.observe(v.store.State())
}

// Unmount deactivates the view exactly once: the subscription is dropped, the
// flags restored and the store reset.
func (v *View) Unmount() {
	v.mu.Lock()
	if !v.mounted || v.unmounted {
		v.mu.Unlock()
		return
	}
	v.unmounted = true
	cancel := v.cancel
	v.cancel = nil
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	v.lifecycle.Deactivate()
}

// Mounted reports whether the view is currently active.
func (v *View) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted && !v.unmounted
}

// Changes delivers the latest observed store state. Older undelivered values
// are replaced.
func (v *View) Changes() <-chan State { return v.changes }

// SetEmail records a keystroke in the email field.
func (v *View) SetEmail(email string) {
	v.edit(func(c *Credentials) { c.Email = email })
}

// SetPassword records a keystroke in the password field.
func (v *View) SetPassword(password string) {
	v.edit(func(c *Credentials) { c.Password = password })
}

func (v *View) edit(apply func(*Credentials)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	apply(&v.creds)
	v.validation = v.handler.validate(v.validator, v.creds.Email, v.creds.Password, v.locale)
	switch v.phase {
	case PhaseIdle, PhaseFailed:
		v.phase = PhaseEditing
	}
}

// Submit handles a submit event. At most one request is dispatched and
// never while the store is loading.
func (v *View) Submit(ctx context.Context) SubmitOutcome {
	v.mu.Lock()
	if !v.mounted || v.unmounted {
		v.mu.Unlock()
		return SubmitRejectedUnmounted
	}
	state := v.store.State()
	if state.IsAuthenticated {
		v.phase = PhaseRedirecting
		v.mu.Unlock()
		return SubmitRejectedRedirecting
	}
	if state.IsLoading || v.dispatching {
		v.mu.Unlock()
		return SubmitRejectedBusy
	}
	if v.handler.gated && !v.validation.CanSubmit {
		v.mu.Unlock()
		return SubmitRejectedInvalid
	}
	v.dispatching = true
	v.phase = PhaseSubmitting
	req := submission{email: v.creds.Email, password: v.creds.Password, url: v.url}
	v.mu.Unlock()

	v.handler.submit(ctx, v.store, req)

	v.mu.Lock()
	v.dispatching = false
	v.mu.Unlock()

	// A store that declined the request publishes nothing new; settle on
	// what it holds so the view does not wait in Submitting.
	if s := v.store.State(); !s.IsLoading {
		v.observe(s)
	}
	return SubmitDispatched
}

// Phase returns the current phase.
func (v *View) Phase() Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

// Render computes the output from the latest observed state.
func (v *View) Render() Render {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state.IsAuthenticated {
		v.phase = PhaseRedirecting
		return Render{Redirect: v.rootPath, Mode: v.mode, Phase: v.phase}
	}

	out := Render{
		Mode:           v.mode,
		Phase:          v.phase,
		TitleKey:       v.handler.titleKey,
		SubmitKey:      v.handler.submitKey,
		Email:          v.creds.Email,
		Validation:     v.validation,
		ShowValidation: v.handler.gated,
		Loading:        v.state.IsLoading,
		SubmitDisabled: v.state.IsLoading || (v.handler.gated && !v.validation.CanSubmit),
	}
	if v.state.Error != "" && !v.state.IsLoading {
		out.Error = v.state.Error
	}
	if v.handler.forgotPassword {
		out.ForgotPasswordPath = v.forgotPath
	}
	return out
}

func (v *View) observe(s State) {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.state = s
	switch {
	case s.IsAuthenticated:
		v.phase = PhaseRedirecting
	case s.IsLoading:
		v.phase = PhaseSubmitting
	case s.Error != "" && (v.phase == PhaseSubmitting || v.phase == PhaseIdle):
		v.phase = PhaseFailed
	case v.phase == PhaseSubmitting && !v.dispatching:
		v.phase = PhaseEditing
	}
	v.mu.Unlock()

	select {
	case v.changes <- s:
	default:
		select {
		case <-v.changes:
		default:
		}
		select {
		case v.changes <- s:
		default:
		}
	}
}
