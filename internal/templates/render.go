// Package templates renders the HTML fragments patched into the viewer.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"os"
	"strconv"
	"sync"
)

//go:embed fragments/*.html
var embedded embed.FS

var funcMap = template.FuncMap{
	"coord": func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) },
	"zoom":  func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
	dir       string
}

func parse(fsys fs.FS) (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(fsys, "*.html")
}

// New loads fragments from fragmentsDir, or the built-in fragments when
// fragmentsDir is empty.
func New(fragmentsDir string) (*Renderer, error) {
	fsys, err := source(fragmentsDir)
	if err != nil {
		return nil, err
	}
	tmpl, err := parse(fsys)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl, dir: fragmentsDir}, nil
}

// Default returns a renderer over the built-in fragments.
func Default() *Renderer {
	r, err := New("")
	if err != nil {
		panic(err)
	}
	return r
}

func source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "fragments")
	}
	return os.DirFS(dir), nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// Reload re-reads fragments from their source.
func (r *Renderer) Reload() error {
	fsys, err := source(r.dir)
	if err != nil {
		return err
	}
	tmpl, err := parse(fsys)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
