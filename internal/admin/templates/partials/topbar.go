package partials

import (
	"context"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"finitefield.org/tutor-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tutor-admin/internal/admin/i18n"
	"finitefield.org/tutor-admin/internal/admin/navigation"
	"finitefield.org/tutor-admin/internal/admin/templates/helpers"
	"finitefield.org/tutor-admin/internal/admin/view"
)

// Topbar renders the fixed navbar: brand, environment badge, locale switcher
// and the signed-in user's menu.
func Topbar() templ.Component {
	return view.NodeFunc(func(ctx context.Context) g.Node {
		base := middleware.BasePathFromContext(ctx)
		env := middleware.EnvironmentFromContext(ctx)
		return h.Nav(
			h.Class("navbar is-fixed-top"),
			g.Attr("role", "navigation"),
			h.Div(
				h.Class("navbar-brand"),
				h.A(h.Class("navbar-item"), h.Href(navigation.Join(base, navigation.PathRoot)), g.Text(helpers.T(ctx, "Root.title"))),
				h.Span(
					g.Attr("data-environment-badge", ""),
					h.Class(helpers.BadgeClass(env)),
					g.Attr("title", env),
					h.Span(g.Attr("aria-hidden", "true"), g.Text(helpers.EnvironmentCode(env))),
				),
			),
			h.Div(
				h.Class("navbar-end"),
				view.Embed(ctx, LocaleSwitcher()),
				userMenu(ctx, base),
			),
		)
	})
}

// LocaleSwitcher links to the current page in every supported locale while
// keeping the rest of the query string.
func LocaleSwitcher() templ.Component {
	return view.NodeFunc(func(ctx context.Context) g.Node {
		bundle := i18n.BundleFromContext(ctx)
		if bundle == nil {
			return nil
		}
		current := i18n.LocaleFromContext(ctx)
		info, _ := middleware.RequestInfoFromContext(ctx)
		path, rawQuery := "", ""
		if info != nil {
			path, rawQuery = info.Path, info.RawQuery
		}
		return h.Div(
			h.Class("navbar-item buttons are-small"),
			g.Attr("data-locale-switcher", ""),
			g.Map(bundle.Supported(), func(locale string) g.Node {
				return h.A(
					h.Href(helpers.BuildURL(path, helpers.SetRawQuery(rawQuery, "lang", locale))),
					h.Class("button is-text"),
					g.Attr("hreflang", locale),
					g.If(locale == current, g.Attr("aria-current", "true")),
					g.Text(locale),
				)
			}),
		)
	})
}

func userMenu(ctx context.Context, base string) g.Node {
	user, ok := middleware.UserFromContext(ctx)
	if !ok || user == nil {
		return nil
	}
	name := user.Email
	if name == "" {
		name = user.UID
	}
	return h.Div(
		h.Class("navbar-item"),
		g.Attr("data-user-menu", ""),
		h.Span(h.Class("is-size-7 mr-3"), g.Text(name)),
		h.Form(
			g.Attr("data-user-menu-logout", ""),
			h.Method("post"),
			h.Action(navigation.Join(base, navigation.PathLogout)),
			h.Input(h.Type("hidden"), h.Name(middleware.CSRFFormField), h.Value(middleware.CSRFTokenFromContext(ctx))),
			h.Button(h.Type("submit"), h.Class("button is-small"), g.Text(helpers.T(ctx, "Nav.logout"))),
		),
	)
}
