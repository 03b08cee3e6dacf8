package helpers

import (
	"net/url"
	"strings"
)

// NavClass returns sidebar link classes.
func NavClass(active bool) string {
	if active {
		return "navbar-item is-active has-background-dark has-text-white"
	}
	return "navbar-item has-text-grey-dark"
}

// EnvironmentCode abbreviates the deployment environment for the topbar badge.
func EnvironmentCode(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "production", "prod", "prd":
		return "PRD"
	case "staging", "stg":
		return "STG"
	case "", "development", "dev", "local":
		return "DEV"
	default:
		code := strings.ToUpper(label)
		if len(code) > 3 {
			code = code[:3]
		}
		return code
	}
}

// BadgeClass maps the environment onto a tag colour.
func BadgeClass(label string) string {
	switch EnvironmentCode(label) {
	case "PRD":
		return "tag is-danger"
	case "STG":
		return "tag is-warning"
	default:
		return "tag is-info is-light"
	}
}

// SetRawQuery returns rawQuery with key set to value.
func SetRawQuery(rawQuery, key, value string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		values = url.Values{}
	}
	values.Set(key, value)
	return values.Encode()
}

// BuildURL replaces the query of path with rawQuery, dropping the "?" when
// rawQuery is empty.
func BuildURL(path, rawQuery string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
