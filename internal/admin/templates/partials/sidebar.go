package partials

import (
	"context"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"finitefield.org/tutor-admin/internal/admin/navigation"
	"finitefield.org/tutor-admin/internal/admin/templates/helpers"
	"finitefield.org/tutor-admin/internal/admin/view"
)

// Sidebar renders the left navigation column, hiding entries the current
// user cannot access and highlighting the active route.
func Sidebar(menu []navigation.MenuGroup) templ.Component {
	return view.NodeFunc(func(ctx context.Context) g.Node {
		var groups []g.Node
		for _, group := range menu {
			if !hasVisibleItems(group, ctx) {
				continue
			}
			groups = append(groups, sidebarGroup(ctx, group))
		}
		return h.Aside(
			h.Class("aside is-placed-left menu"),
			g.Attr("data-sidebar", ""),
			g.Group(groups),
		)
	})
}

func sidebarGroup(ctx context.Context, group navigation.MenuGroup) g.Node {
	items := visibleItems(group, ctx)
	return h.Div(
		g.Attr("data-nav-group", group.Key),
		h.P(h.Class("menu-label"), g.Text(helpers.T(ctx, group.Label))),
		h.Ul(
			h.Class("menu-list"),
			g.Map(items, func(item navigation.MenuItem) g.Node {
				active := helpers.NavActive(ctx, item.Pattern, item.MatchPrefix)
				return h.Li(
					h.A(
						h.Href(item.Href),
						h.Class(helpers.NavClass(active)),
						g.If(active, g.Attr("aria-current", "page")),
						g.Text(helpers.T(ctx, item.Label)),
					),
				)
			}),
		),
	)
}

func hasVisibleItems(group navigation.MenuGroup, ctx context.Context) bool {
	return len(visibleItems(group, ctx)) > 0
}

func visibleItems(group navigation.MenuGroup, ctx context.Context) []navigation.MenuItem {
	if !helpers.HasCapability(ctx, group.Capability) {
		return nil
	}
	var items []navigation.MenuItem
	for _, item := range group.Items {
		if helpers.HasCapability(ctx, item.Capability) {
			items = append(items, item)
		}
	}
	return items
}
