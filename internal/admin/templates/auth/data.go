package auth

import "finitefield.org/tutor-admin/internal/admin/login"

// LoginPageData encapsulates rendering state for the console login screen.
type LoginPageData struct {
	// View is the login view output; the password is never part of it.
	View login.Render
	// ViewID identifies the mounted view activation the form posts back to.
	ViewID string
	// Action is the form target, including the query string of the
	// activation URL so sign-in link parameters survive the post.
	Action       string
	ValidatePath string
	StatusPath   string
	CSRFToken    string
	// Message is an informational notice (logged out, session expired).
	Message   string
	MinLength int
}

// RecoverPageData backs the password recovery notice page.
type RecoverPageData struct {
	LoginPath string
}
