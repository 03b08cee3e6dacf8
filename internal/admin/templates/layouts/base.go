package layouts

import (
	"context"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"finitefield.org/tutor-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tutor-admin/internal/admin/navigation"
	"finitefield.org/tutor-admin/internal/admin/presentation"
	"finitefield.org/tutor-admin/internal/admin/templates/helpers"
	"finitefield.org/tutor-admin/internal/admin/templates/partials"
	"finitefield.org/tutor-admin/internal/admin/view"
)

const (
	productName = "Tutor Admin"
	htmxScript  = "https://unpkg.com/htmx.org@2.0.4"
	stylesheet  = "/public/static/admin.css"
)

// Base renders the layout shell around content. The root element carries the
// classes held by the request's presentation root; the navbar and the left
// aside render only while their flags are applied.
func Base(titleKey string, content templ.Component) templ.Component {
	return view.NodeFunc(func(ctx context.Context) g.Node {
		root := presentation.RootFromContext(ctx)
		title := helpers.T(ctx, titleKey)
		menu := navigation.BuildMenu(middleware.BasePathFromContext(ctx))

		return h.Doctype(
			h.HTML(
				h.Lang(helpers.Locale(ctx)),
				h.Class(root.ClassAttr()),
				h.Head(
					h.Meta(h.Charset("utf-8")),
					h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
					h.TitleEl(g.Text(title+" | "+productName)),
					h.Link(h.Rel("stylesheet"), h.Href(stylesheet)),
					h.Script(h.Src(htmxScript), h.Defer()),
				),
				h.Body(
					g.If(root.Has(presentation.FlagNavbarFixedTop), view.Embed(ctx, partials.Topbar())),
					g.If(root.Has(presentation.FlagAsideLeft), view.Embed(ctx, partials.Sidebar(menu))),
					h.Main(
						h.Class("section"),
						g.Attr("data-page", titleKey),
						view.Embed(ctx, content),
					),
				),
			),
		)
	})
}
