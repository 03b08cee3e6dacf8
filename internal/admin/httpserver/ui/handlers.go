package ui

import (
	"net/http"

	"github.com/a-h/templ"

	custommw "finitefield.org/tutor-admin/internal/admin/httpserver/middleware"
	roottpl "finitefield.org/tutor-admin/internal/admin/templates/root"
)

// Handlers exposes HTTP handlers for the console pages behind sign-in.
type Handlers struct{}

// NewHandlers wires the UI handler set.
func NewHandlers() *Handlers {
	return &Handlers{}
}

// Root renders the console landing page.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	data := roottpl.PageData{}
	if user, ok := custommw.UserFromContext(r.Context()); ok && user != nil {
		data.UserEmail = user.Email
		if data.UserEmail == "" {
			data.UserEmail = user.UID
		}
	}
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		data.SignInMethod = sess.SignInMethod()
	}
	templ.Handler(roottpl.Index(data)).ServeHTTP(w, r)
}

// Section renders the shell for a console area whose content is served by
// another service; titleKey names the area.
func (h *Handlers) Section(titleKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templ.Handler(roottpl.Section(titleKey)).ServeHTTP(w, r)
	}
}
