package view

import (
	"context"
	"io"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
)

// NodeFunc builds a gomponents node from the render context. It satisfies
// templ.Component, so pages written with gomponents plug into templ.Handler
// and templ layouts directly.
type NodeFunc func(ctx context.Context) g.Node

// Render implements templ.Component.
func (f NodeFunc) Render(ctx context.Context, w io.Writer) error {
	node := f(ctx)
	if node == nil {
		return nil
	}
	return node.Render(w)
}

// Component wraps a context-free node as a templ.Component.
func Component(node g.Node) templ.Component {
	return NodeFunc(func(context.Context) g.Node { return node })
}

type templNode struct {
	ctx       context.Context
	component templ.Component
}

func (n templNode) Render(w io.Writer) error {
	return n.component.Render(n.ctx, w)
}

// Embed renders a templ.Component inside a gomponents tree with ctx, so
// nested components keep access to request-scoped values.
func Embed(ctx context.Context, component templ.Component) g.Node {
	if component == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return templNode{ctx: ctx, component: component}
}
