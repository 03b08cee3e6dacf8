package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/tutor-admin/internal/admin/authstate"
	custommw "finitefield.org/tutor-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tutor-admin/internal/admin/i18n"
	"finitefield.org/tutor-admin/internal/admin/identity"
	"finitefield.org/tutor-admin/internal/admin/login"
	"finitefield.org/tutor-admin/internal/admin/metrics"
	"finitefield.org/tutor-admin/internal/admin/navigation"
	"finitefield.org/tutor-admin/internal/admin/observability"
	appsession "finitefield.org/tutor-admin/internal/admin/session"
	"finitefield.org/tutor-admin/internal/admin/templates/auth"
)

const defaultSubmitWait = 5 * time.Second

type loginHandlers struct {
	authenticator custommw.Authenticator
	registry      *authstate.Registry
	validator     *login.Validator
	basePath      string
	loginPath     string
	submitWait    time.Duration
	secureCookies bool
	now           func() time.Time
}

// Form activates a login view for the browser session and renders it. A
// session that is already authenticated is redirected away by the view.
// Loading the page leaves every earlier login view of the session, so their
// error and loading state is reset before the new view mounts.
func (h *loginHandlers) Form(w http.ResponseWriter, r *http.Request) {
	ent, sess, ok := h.entry(w, r)
	if !ok {
		return
	}
	if n := ent.UnmountAll(); n > 0 {
		observability.FromContext(r.Context()).Debug("login views superseded", zap.Int("views", n))
	}

	if forceLogin(r) {
		ent.Store.SignOut()
		sess.SignOut()
		h.clearAuthCookie(w)
	} else if user := sess.User(); user != nil && strings.TrimSpace(user.UID) != "" {
		ent.Store.Restore(&identity.Session{UID: user.UID, Email: user.Email, Method: sess.SignInMethod()})
	}

	viewID, v := h.activate(r, ent)
	if render := v.Render(); render.Redirect != "" {
		ent.Detach(viewID)
		custommw.Redirect(w, r, render.Redirect)
		return
	}
	h.render(w, r, auth.Page(h.pageData(r, viewID, v.Render())), http.StatusOK)
}

// Submit feeds the posted credentials into the view and waits, bounded, for
// the store to settle before rendering the outcome.
func (h *loginHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	ent, _, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	viewID, v := h.lookup(r, ent, r.PostFormValue(auth.ViewField))
	v.SetEmail(strings.TrimSpace(r.PostFormValue("email")))
	v.SetPassword(r.PostFormValue("password"))

	outcome := v.Submit(r.Context())
	logger := observability.FromContext(r.Context()).With(zap.String("view", viewID), zap.Stringer("mode", v.Mode()))
	if outcome != login.SubmitDispatched {
		metrics.LoginSubmitRejectedTotal.WithLabelValues(outcome.String()).Inc()
		logger.Debug("login submit rejected", zap.Stringer("outcome", outcome))
	} else {
		h.settle(r.Context(), v)
	}

	render := v.Render()
	if render.Redirect != "" {
		h.complete(w, r, ent, viewID, render.Redirect)
		return
	}

	status := http.StatusOK
	if !custommw.IsHTMXRequest(r.Context()) {
		switch {
		case render.Error != "":
			status = http.StatusUnauthorized
		case outcome == login.SubmitRejectedInvalid:
			status = http.StatusUnprocessableEntity
		}
		h.render(w, r, auth.Page(h.pageData(r, viewID, render)), status)
		return
	}
	h.render(w, r, auth.Form(h.pageData(r, viewID, render)), status)
}

// Validate re-validates the form on keystrokes (htmx only).
func (h *loginHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	ent, _, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	viewID := r.PostFormValue(auth.ViewField)
	v, found := ent.View(viewID)
	if !found {
		custommw.Refresh(w)
		return
	}
	v.SetEmail(strings.TrimSpace(r.PostFormValue("email")))
	v.SetPassword(r.PostFormValue("password"))
	h.render(w, r, auth.Validation(h.pageData(r, viewID, v.Render())), http.StatusOK)
}

// Status is polled by the login fragment while a submission is in flight.
func (h *loginHandlers) Status(w http.ResponseWriter, r *http.Request) {
	ent, _, ok := h.entry(w, r)
	if !ok {
		return
	}
	viewID := r.URL.Query().Get(auth.ViewField)
	v, found := ent.View(viewID)
	if !found {
		custommw.Refresh(w)
		return
	}
	render := v.Render()
	if render.Redirect != "" {
		h.complete(w, r, ent, viewID, render.Redirect)
		return
	}
	h.render(w, r, auth.Form(h.pageData(r, viewID, render)), http.StatusOK)
}

// Recover renders the forgot-password page.
func (h *loginHandlers) Recover(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, auth.Recover(auth.RecoverPageData{LoginPath: h.loginPath}), http.StatusOK)
}

// Logout drops the login entry and destroys the session.
func (h *loginHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		h.registry.Drop(sess.ID())
		sess.Destroy()
	}
	h.clearAuthCookie(w)
	custommw.Redirect(w, r, h.loginURLWithParams(map[string]string{"status": "logged_out"}))
}

// complete persists the authenticated identity into the cookie session and
// leaves the login surface. Leaving unmounts the view.
func (h *loginHandlers) complete(w http.ResponseWriter, r *http.Request, ent *authstate.Entry, viewID, target string) {
	defer ent.Detach(viewID)
	logger := observability.FromContext(r.Context())

	sess, _ := custommw.SessionFromContext(r.Context())
	id, ok := ent.Store.Identity()
	if !ok || id.IDToken == "" || sess == nil {
		// Restored from the cookie session; nothing new to persist.
		custommw.Redirect(w, r, target)
		return
	}

	user, err := h.authenticator.Authenticate(r, id.IDToken)
	if err != nil || user == nil {
		logger.Warn("issued token rejected", zap.Error(err))
		ent.Store.SignOut()
		custommw.Redirect(w, r, h.loginURLWithParams(map[string]string{"reason": custommw.ReasonTokenInvalid}))
		return
	}
	if user.Email == "" {
		user.Email = id.Email
	}

	sess.SetUser(&appsession.User{
		UID:   user.UID,
		Email: user.Email,
		Roles: append([]string(nil), user.Roles...),
	})
	sess.MarkSignedIn(id.Method, h.now())
	if id.RefreshToken != "" {
		sess.SetRefreshToken(id.RefreshToken)
	}
	h.setAuthCookie(w, r, id.IDToken)

	logger.Info("console sign-in", zap.String("uid", user.UID), zap.String("method", id.Method))
	custommw.Redirect(w, r, target)
}

// settle blocks until the view observes the end of the loading state, the
// wait budget is spent or the client goes away. The outcome is picked up by
// polling otherwise.
func (h *loginHandlers) settle(ctx context.Context, v *login.View) {
	timer := time.NewTimer(h.submitWait)
	defer timer.Stop()
	for v.Render().Loading {
		select {
		case <-v.Changes():
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *loginHandlers) entry(w http.ResponseWriter, r *http.Request) (*authstate.Entry, *appsession.Session, bool) {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, nil, false
	}
	ent, err := h.registry.Get(sess.ID())
	if err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return nil, nil, false
	}
	return ent, sess, true
}

// lookup returns the mounted view for id, or activates a new one when the
// view was evicted or never existed (e.g. after a restart).
func (h *loginHandlers) lookup(r *http.Request, ent *authstate.Entry, id string) (string, *login.View) {
	if v, ok := ent.View(id); ok {
		return id, v
	}
	return h.activate(r, ent)
}

func (h *loginHandlers) activate(r *http.Request, ent *authstate.Entry) (string, *login.View) {
	v := login.NewView(login.ViewConfig{
		URL:                activationURL(r),
		IsLink:             identity.IsSignInWithEmailLink,
		Store:              ent.Store,
		Flags:              ent.Root,
		Validator:          h.validator,
		Locale:             i18n.LocaleFromContext(r.Context()),
		RootPath:           h.redirectTarget(r.URL.Query().Get("next")),
		ForgotPasswordPath: navigation.Join(h.basePath, navigation.PathRecoverPassword),
	})
	v.Mount()
	id := newViewID()
	ent.Attach(id, v)
	return id, v
}

func (h *loginHandlers) pageData(r *http.Request, viewID string, render login.Render) auth.LoginPageData {
	ctx := r.Context()
	return auth.LoginPageData{
		View:         render,
		ViewID:       viewID,
		Action:       custommw.RequestURIFromContext(ctx),
		ValidatePath: navigation.Join(h.basePath, navigation.PathLogin+"/validate"),
		StatusPath:   navigation.Join(h.basePath, navigation.PathLogin+"/status"),
		CSRFToken:    custommw.CSRFTokenFromContext(ctx),
		Message:      i18n.T(ctx, messageKeyFor(r)),
		MinLength:    h.validator.MinLength(),
	}
}

func (h *loginHandlers) render(w http.ResponseWriter, r *http.Request, component templ.Component, status int) {
	if status != http.StatusOK {
		templ.Handler(component, templ.WithStatus(status)).ServeHTTP(w, r)
		return
	}
	templ.Handler(component).ServeHTTP(w, r)
}

// messageKeyFor picks the informational notice for the login page.
func messageKeyFor(r *http.Request) string {
	q := r.URL.Query()
	switch {
	case q.Get("status") == "logged_out":
		return "Auth.loggedOut"
	case custommw.SessionExpiredFromContext(r.Context()),
		q.Get("reason") == "expired",
		q.Get("reason") == custommw.ReasonTokenExpired:
		return "Auth.sessionExpired"
	default:
		return ""
	}
}

// activationURL reconstructs the absolute URL the view was activated with;
// sign-in links are recognised from it.
func activationURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	uri := custommw.RequestURIFromContext(r.Context())
	if uri == "" {
		uri = r.URL.RequestURI()
	}
	return scheme + "://" + r.Host + uri
}

func newViewID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
