package root

import (
	"context"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"finitefield.org/tutor-admin/internal/admin/templates/helpers"
	"finitefield.org/tutor-admin/internal/admin/templates/layouts"
	"finitefield.org/tutor-admin/internal/admin/view"
)

// PageData backs the console landing page.
type PageData struct {
	UserEmail    string
	SignInMethod string
}

// Index renders the console landing page shown after sign-in.
func Index(data PageData) templ.Component {
	return layouts.Base("Root.title", view.NodeFunc(func(ctx context.Context) g.Node {
		return h.Section(
			g.Attr("data-root", ""),
			h.H1(h.Class("title"), g.Text(helpers.T(ctx, "Root.title"))),
			h.P(
				h.Class("subtitle"),
				g.Text(helpers.T(ctx, "Root.welcome")),
				g.If(data.UserEmail != "", h.Strong(g.Attr("data-user-email", ""), g.Text(" "+data.UserEmail))),
			),
			g.If(data.SignInMethod != "", h.P(
				h.Class("is-size-7 has-text-grey"),
				g.Attr("data-sign-in-method", data.SignInMethod),
			)),
		)
	}))
}

// Section renders an empty console area framed by the layout shell.
func Section(titleKey string) templ.Component {
	return layouts.Base(titleKey, view.NodeFunc(func(ctx context.Context) g.Node {
		return h.Section(
			g.Attr("data-section", titleKey),
			h.H1(h.Class("title"), g.Text(helpers.T(ctx, titleKey))),
		)
	}))
}
