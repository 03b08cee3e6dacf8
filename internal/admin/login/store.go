package login

import "context"

// State is the shared authentication state owned by a Store.
type State struct {
	Error           string
	IsLoading       bool
	IsAuthenticated bool
}

// Store holds the authentication state shared by every login view of a
// browser session. Submissions are fire-and-forget; their effects arrive
// through Subscribe.
type Store interface {
	State() State
	// Subscribe registers fn for state changes and returns a cancel func.
	// fn is only called when the state differs from the last delivered one.
	Subscribe(fn func(State)) (cancel func())
	SubmitCredentials(ctx context.Context, email, password string)
	SubmitPassword(ctx context.Context, email, newPassword, signInLink string)
	// Reset clears error and loading so the next activation starts clean and
	// in-flight completions become inert.
	Reset()
}

// Flags suspends presentation flags on the shared root node until release.
type Flags interface {
	Suspend(names ...string) (release func())
}
