package auth

import (
	"context"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"finitefield.org/tutor-admin/internal/admin/templates/helpers"
	"finitefield.org/tutor-admin/internal/admin/templates/layouts"
	"finitefield.org/tutor-admin/internal/admin/view"
)

// Recover renders the page linked as "forgot password". Recovery emails are
// sent by the identity provider's own flow; this page explains it.
func Recover(data RecoverPageData) templ.Component {
	return layouts.Base("Recover.title", view.NodeFunc(func(ctx context.Context) g.Node {
		return h.Div(
			h.Class("box"),
			g.Attr("data-recover-password", ""),
			h.H1(h.Class("title"), g.Text(helpers.T(ctx, "Recover.title"))),
			h.P(g.Text(helpers.T(ctx, "Recover.body"))),
			h.A(h.Href(data.LoginPath), h.Class("button is-text"), g.Text(helpers.T(ctx, "Recover.back"))),
		)
	}))
}
