package web

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:static
var staticFS embed.FS

// TemplateFS provides access to the embedded template files.
var TemplateFS fs.FS = templateFS

// StaticFS serves the editor's script and stylesheet, rooted at static/.
var StaticFS fs.FS = mustSub(staticFS, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
