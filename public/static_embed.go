// Package public embeds the console's static assets.
package public

import (
	"embed"
	"io/fs"
)

//go:embed static
var assets embed.FS

// StaticFS returns the assets rooted at the static directory, served under
// /public/static/.
func StaticFS() (fs.FS, error) {
	return fs.Sub(assets, "static")
}
