package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"nomad-cms/internal/editor"
	"path/filepath"
)

// View represents a collection of parsed HTML templates.
type View struct {
	templates map[string]*template.Template
}

// New creates a new View by parsing all templates from the given filesystem.
func New(templateFS fs.FS) (*View, error) {
	v := &View{
		templates: make(map[string]*template.Template),
	}

	layouts, err := fs.Glob(templateFS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}

	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	// Each page is parsed together with every layout.
	for _, page := range pages {
		files := append(append([]string{}, layouts...), page)
		name := filepath.Base(page)
		ts, err := template.New(name).Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.templates[name] = ts
	}

	return v, nil
}

var sanitizer = editor.NewSanitizer()

var funcs = template.FuncMap{
	// sanitized marks article markup safe after passing it through the
	// body allow-list.
	"sanitized": func(markup string) template.HTML {
		return template.HTML(sanitizer.Sanitize(markup))
	},
	// derefID renders an optional reference for <select> matching.
	"derefID": func(id *int64) int64 {
		if id == nil {
			return 0
		}
		return *id
	},
}

// Render executes a specific template by name.
func (v *View) Render(w io.Writer, name string, data map[string]interface{}) error {
	ts, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	// Execute into a buffer first so a failing template writes nothing.
	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		return err
	}

	_, err := buf.WriteTo(w)
	return err
}
