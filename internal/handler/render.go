package handler

import (
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin/render"
	"github.com/samber/lo"

	"github.com/noah-isme/stages-admin/internal/table"
)

const (
	layoutTemplate = "templates/layout.html"
	partialsGlob   = "templates/partials/*.html"
	pagesGlob      = "templates/pages/*.html"
)

// Renderer is the gin HTML renderer over the embedded templates. Every page
// is parsed once, on top of its own clone of the layout and partials.
type Renderer struct {
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*Renderer)(nil)

// NewRenderer parses the templates found in fsys.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	base, err := template.New("base").Funcs(templateFuncs).ParseFS(fsys, layoutTemplate, partialsGlob)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(fsys, pagesGlob)
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		page, err := clone.ParseFS(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[strings.TrimSuffix(path.Base(file), ".html")] = page
	}
	return r, nil
}

// Instance implements render.HTMLRender. Unknown names fall back to the
// error page so a missing template never panics a request.
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		t = r.pages[errorPage]
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

var templateFuncs = template.FuncMap{
	"add":  func(a, b int) int { return a + b },
	"join": strings.Join,
	"date": table.FormatDate,
	"bytes": func(n int64) string {
		return humanize.Bytes(uint64(max(n, 0)))
	},
	"contains": lo.Contains[string],
}
