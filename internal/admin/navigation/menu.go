package navigation

import (
	"strings"

	"finitefield.org/tutor-admin/internal/admin/rbac"
)

// Route suffixes relative to the console base path.
const (
	PathRoot            = "/"
	PathLogin           = "/login"
	PathLogout          = "/logout"
	PathRecoverPassword = "/recover-password"
	PathUsers           = "/users"
	PathTeachers        = "/teachers"
	PathLearners        = "/learners"
	PathSections        = "/sections"
)

// MenuItem is a single sidebar link. Label is an i18n key.
type MenuItem struct {
	Key         string
	Label       string
	Capability  rbac.Capability
	Href        string
	Pattern     string
	MatchPrefix bool
}

// MenuGroup clusters related items under a heading.
type MenuGroup struct {
	Key        string
	Label      string
	Capability rbac.Capability
	Items      []MenuItem
}

// BuildMenu returns the sidebar menu rooted at basePath.
func BuildMenu(basePath string) []MenuGroup {
	item := func(key, label, suffix string, capability rbac.Capability, prefix bool) MenuItem {
		href := Join(basePath, suffix)
		return MenuItem{
			Key:         key,
			Label:       label,
			Capability:  capability,
			Href:        href,
			Pattern:     href,
			MatchPrefix: prefix,
		}
	}
	return []MenuGroup{
		{
			Key:   "overview",
			Label: "Nav.root",
			Items: []MenuItem{
				item("root", "Nav.root", PathRoot, rbac.CapRootView, false),
			},
		},
		{
			Key:   "people",
			Label: "Nav.users",
			Items: []MenuItem{
				item("users", "Nav.users", PathUsers, rbac.CapUsersManage, true),
				item("teachers", "Nav.teachers", PathTeachers, rbac.CapTeachersView, true),
				item("learners", "Nav.learners", PathLearners, rbac.CapLearnersView, true),
			},
		},
		{
			Key:        "classes",
			Label:      "Nav.sections",
			Capability: rbac.CapSectionsView,
			Items: []MenuItem{
				item("sections", "Nav.sections", PathSections, rbac.CapSectionsView, true),
			},
		},
	}
}

// Join appends suffix to basePath, collapsing duplicate slashes. The root
// suffix yields the base path itself.
func Join(basePath, suffix string) string {
	base := strings.TrimRight(strings.TrimSpace(basePath), "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	suffix = strings.TrimSpace(suffix)
	if suffix == "" || suffix == "/" {
		if base == "" {
			return "/"
		}
		return base
	}
	if !strings.HasPrefix(suffix, "/") {
		suffix = "/" + suffix
	}
	return base + suffix
}
