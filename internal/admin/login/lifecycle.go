package login

import (
	"sync"

	"finitefield.org/tutor-admin/internal/admin/presentation"
)

// Lifecycle suspends the shell flags on activation, then restores them and
// resets the store on deactivation. Each transition runs at most once.
type Lifecycle struct {
	flags Flags
	store Store
	names []string

	mu      sync.Mutex
	active  bool
	done    bool
	release func()
}

// NewLifecycle binds the side effect to a flag service and store. Without
// names the layout shell flags are suspended. A nil flag service skips the
// flag toggling.
func NewLifecycle(flags Flags, store Store, names ...string) *Lifecycle {
	if len(names) == 0 {
		names = presentation.ShellFlags
	}
	return &Lifecycle{flags: flags, store: store, names: names}
}

// Activate suspends the flags. It reports false when already active or
// already deactivated.
func (l *Lifecycle) Activate() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active || l.done {
		return false
	}
	l.active = true
	if l.flags != nil {
		l.release = l.flags.Suspend(l.names...)
	}
	return true
}

// Deactivate restores the flags and resets the store. It reports false when
// the lifecycle was never activated or already deactivated.
func (l *Lifecycle) Deactivate() bool {
	l.mu.Lock()
	if !l.active || l.done {
		l.mu.Unlock()
		return false
	}
	l.active = false
	l.done = true
	release := l.release
	l.release = nil
	l.mu.Unlock()

	if release != nil {
		release()
	}
	if l.store != nil {
		l.store.Reset()
	}
	return true
}

// Active reports whether the flags are currently suspended by this lifecycle.
func (l *Lifecycle) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}
