package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finitefield.org/tutor-admin/internal/admin/authstate"
	"finitefield.org/tutor-admin/internal/admin/identity"
	"finitefield.org/tutor-admin/internal/admin/login"
	"finitefield.org/tutor-admin/internal/admin/presentation"
)

func TestLoginEntryAndLeaveLogin(t *testing.T) {
	clock := &sessionTestClock{now: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)}
	store := newSessionStoreForTest(t, clock)
	registry := authstate.NewRegistry(identity.NewStaticProvider(nil), nil)
	t.Cleanup(registry.Close)

	var view *login.View
	var loginClasses, pageClasses []string

	loginHandler := Session(store)(LoginEntry(registry)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		ent, _ := registry.Peek(sess.ID())
		root := presentation.RootFromContext(r.Context())
		if root != ent.Root {
			t.Fatalf("expected the entry root in context")
		}
		view = login.NewView(login.ViewConfig{Store: ent.Store, Flags: root})
		view.Mount()
		ent.Attach("v1", view)
		loginClasses = root.Classes()
	})))

	pageHandler := Session(store)(LeaveLogin(registry)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageClasses = presentation.RootFromContext(r.Context()).Classes()
	})))

	rec := httptest.NewRecorder()
	loginHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	if len(loginClasses) != 0 {
		t.Fatalf("expected shell flags suspended while login is mounted, got %v", loginClasses)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	pageHandler.ServeHTTP(httptest.NewRecorder(), req)

	if view.Mounted() {
		t.Fatalf("expected login view unmounted after navigating away")
	}
	if len(pageClasses) != len(presentation.ShellFlags) {
		t.Fatalf("expected shell flags restored, got %v", pageClasses)
	}
}

func TestLeaveLoginWithoutEntryUsesDefaultRoot(t *testing.T) {
	registry := authstate.NewRegistry(identity.NewStaticProvider(nil), nil)
	t.Cleanup(registry.Close)

	var classes []string
	handler := LeaveLogin(registry)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		classes = presentation.RootFromContext(r.Context()).Classes()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin", nil))
	if registry.Len() != 0 {
		t.Fatalf("navigation must not create login entries")
	}
	if len(classes) != len(presentation.ShellFlags) {
		t.Fatalf("expected default shell flags, got %v", classes)
	}
}
