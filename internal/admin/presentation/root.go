package presentation

import (
	"context"
	"strings"
	"sync"
)

const (
	// FlagAsideLeft keeps the left navigation column visible in the layout shell.
	FlagAsideLeft = "has-aside-left"
	// FlagNavbarFixedTop pins the top navbar in the layout shell.
	FlagNavbarFixedTop = "has-navbar-fixed-top"
)

// ShellFlags lists the root classes owned by the layout shell.
var ShellFlags = []string{FlagAsideLeft, FlagNavbarFixedTop}

// Root tracks the classes applied to the document root node. Classes can be
// suspended by any number of holders; a class is hidden while at least one
// holder keeps it suspended.
type Root struct {
	mu        sync.Mutex
	base      []string
	suspended map[string]int
}

// NewRoot constructs a Root carrying the provided classes. Without arguments
// the layout shell defaults are used.
func NewRoot(classes ...string) *Root {
	if len(classes) == 0 {
		classes = ShellFlags
	}
	base := make([]string, 0, len(classes))
	seen := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		base = append(base, c)
	}
	return &Root{
		base:      base,
		suspended: make(map[string]int),
	}
}

// Suspend hides the named classes until the returned release func runs.
// Release is safe to call more than once; only the first call counts.
func (r *Root) Suspend(names ...string) func() {
	held := make([]string, 0, len(names))
	r.mu.Lock()
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		r.suspended[name]++
		held = append(held, name)
	}
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for _, name := range held {
				n := r.suspended[name] - 1
				if n <= 0 {
					delete(r.suspended, name)
					continue
				}
				r.suspended[name] = n
			}
		})
	}
}

// Has reports whether the class is currently applied.
func (r *Root) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.suspended[name] > 0 {
		return false
	}
	for _, c := range r.base {
		if c == name {
			return true
		}
	}
	return false
}

// Classes returns the applied classes in declaration order.
func (r *Root) Classes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.base))
	for _, c := range r.base {
		if r.suspended[c] > 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ClassAttr renders the applied classes as a class attribute value.
func (r *Root) ClassAttr() string {
	return strings.Join(r.Classes(), " ")
}

type rootContextKey struct{}

// WithRoot attaches the root to the context for the layout templates.
func WithRoot(ctx context.Context, root *Root) context.Context {
	return context.WithValue(ctx, rootContextKey{}, root)
}

// RootFromContext returns the root stored on the context, or a fresh root
// with every shell flag applied.
func RootFromContext(ctx context.Context) *Root {
	if ctx != nil {
		if root, ok := ctx.Value(rootContextKey{}).(*Root); ok && root != nil {
			return root
		}
	}
	return NewRoot()
}
