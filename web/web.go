// Package web embeds the browser client: the HTML templates for the map page
// and the static script and stylesheet it loads.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html static
var files embed.FS

// Templates returns the page templates (base.html, map.html).
func Templates() fs.FS {
	return mustSub("templates")
}

// Static returns the assets served under /static/.
func Static() fs.FS {
	return mustSub("static")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		// Only reachable if the embed pattern above stops matching dir.
		panic(err)
	}
	return sub
}
