package authstate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"finitefield.org/tutor-admin/internal/admin/i18n"
	"finitefield.org/tutor-admin/internal/admin/identity"
	"finitefield.org/tutor-admin/internal/admin/login"
	"finitefield.org/tutor-admin/internal/admin/metrics"
	"finitefield.org/tutor-admin/internal/admin/observability"
)

// Provider performs the sign-in calls on behalf of the store.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	SetPassword(ctx context.Context, email, newPassword, signInLink string) (*identity.Session, error)
}

// Store is the shared authentication state of one browser session. It is
// the only writer of its state; views observe it through Subscribe.
type Store struct {
	provider   Provider
	translator login.Translator

	mu        sync.Mutex
	state     login.State
	session   *identity.Session
	gen       uint64
	listeners map[uint64]func(login.State)
	nextID    uint64

	// notifyMu serialises delivery so listeners see states in order.
	notifyMu sync.Mutex
	notified login.State

	inflight sync.WaitGroup
}

var _ login.Store = (*Store)(nil)

// NewStore constructs a Store with default state. A nil translator leaves
// error messages as message keys.
func NewStore(provider Provider, translator login.Translator) *Store {
	return &Store{
		provider:   provider,
		translator: translator,
		listeners:  make(map[uint64]func(login.State)),
	}
}

// State returns a snapshot of the current state.
func (s *Store) State() login.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the provider session once authenticated.
func (s *Store) Identity() (*identity.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsAuthenticated || s.session == nil {
		return nil, false
	}
	sess := *s.session
	return &sess, true
}

// Subscribe registers fn for state changes. fn runs outside the store lock
// and must not call back into notification paths synchronously.
func (s *Store) Subscribe(fn func(login.State)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// SubmitCredentials starts a password sign-in.
func (s *Store) SubmitCredentials(ctx context.Context, email, password string) {
	s.begin(ctx, login.ModePasswordSignIn, func(ctx context.Context) (*identity.Session, error) {
		return s.provider.SignInWithPassword(ctx, email, password)
	})
}

// SubmitPassword exchanges an email link and sets the new password.
func (s *Store) SubmitPassword(ctx context.Context, email, newPassword, signInLink string) {
	s.begin(ctx, login.ModeSetNewPassword, func(ctx context.Context) (*identity.Session, error) {
		return s.provider.SetPassword(ctx, email, newPassword, signInLink)
	})
}

// Reset clears error and loading. Completions of requests started before the
// reset are dropped.
func (s *Store) Reset() {
	s.mu.Lock()
	s.gen++
	s.state = login.State{IsAuthenticated: s.state.IsAuthenticated}
	s.mu.Unlock()
	s.publish()
}

// Restore marks the store authenticated with a session obtained earlier,
// e.g. from the signed session cookie.
func (s *Store) Restore(sess *identity.Session) {
	if sess == nil {
		return
	}
	copied := *sess
	s.mu.Lock()
	s.gen++
	s.session = &copied
	s.state = login.State{IsAuthenticated: true}
	s.mu.Unlock()
	s.publish()
}

// SignOut drops the identity and returns to defaults.
func (s *Store) SignOut() {
	s.mu.Lock()
	s.gen++
	s.session = nil
	s.state = login.State{}
	s.mu.Unlock()
	s.publish()
}

// Wait blocks until every in-flight provider call has finished.
func (s *Store) Wait() {
	s.inflight.Wait()
}

func (s *Store) begin(ctx context.Context, mode login.Mode, call func(context.Context) (*identity.Session, error)) {
	locale := i18n.LocaleFromContext(ctx)
	logger := observability.FromContext(ctx).With(zap.Stringer("mode", mode))

	s.mu.Lock()
	if s.state.IsAuthenticated {
		s.mu.Unlock()
		logger.Debug("login submission ignored")
		return
	}
	if s.provider == nil {
		s.gen++
		s.state = login.State{Error: s.message(locale, identity.ReasonUnavailable)}
		s.mu.Unlock()
		metrics.LoginOutcomesTotal.WithLabelValues(mode.String(), string(identity.ReasonUnavailable)).Inc()
		logger.Warn("login submission without an identity provider")
		s.publish()
		return
	}
	s.gen++
	gen := s.gen
	s.state = login.State{IsLoading: true}
	s.mu.Unlock()
	s.publish()

	metrics.LoginSubmissionsTotal.WithLabelValues(mode.String()).Inc()

	// The provider call outlives the request that started it.
	callCtx := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		sess, err := call(callCtx)

		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			metrics.LoginOutcomesTotal.WithLabelValues(mode.String(), "discarded").Inc()
			logger.Debug("login completion discarded after reset")
			return
		}
		if err != nil {
			reason := identity.ReasonOf(err)
			s.state = login.State{Error: s.message(locale, reason)}
			s.mu.Unlock()
			metrics.LoginOutcomesTotal.WithLabelValues(mode.String(), string(reason)).Inc()
			logger.Info("login failed", zap.String("reason", string(reason)), zap.Error(err))
			s.publish()
			return
		}
		s.session = sess
		s.state = login.State{IsAuthenticated: true}
		s.mu.Unlock()
		metrics.LoginOutcomesTotal.WithLabelValues(mode.String(), "success").Inc()
		if sess != nil {
			logger.Info("login succeeded", zap.String("uid", sess.UID))
		}
		s.publish()
	}()
}

// publish delivers the latest state to listeners when it differs from the
// last delivered state.
func (s *Store) publish() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	current := s.state
	if current == s.notified {
		s.mu.Unlock()
		return
	}
	s.notified = current
	fns := make([]func(login.State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(current)
	}
}

func (s *Store) message(locale string, reason identity.Reason) string {
	key := messageKey(reason)
	if s.translator == nil {
		return key
	}
	return s.translator.T(locale, key)
}

func messageKey(reason identity.Reason) string {
	switch reason {
	case identity.ReasonInvalidCredentials:
		return "Auth.invalidCredentials"
	case identity.ReasonLinkInvalid:
		return "Auth.linkInvalid"
	case identity.ReasonLinkExpired:
		return "Auth.linkExpired"
	case identity.ReasonTooManyAttempts:
		return "Auth.tooManyAttempts"
	case identity.ReasonUserDisabled:
		return "Auth.userDisabled"
	case identity.ReasonWeakPassword:
		return "Auth.weakPassword"
	case identity.ReasonUnavailable:
		return "Auth.unavailable"
	default:
		return "Auth.unknown"
	}
}
