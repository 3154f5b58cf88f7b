// Package site renders the public website: pages assembled from ordered,
// typed sections inside a shared layout, plus the blog, careers and SEO
// documents.
package site

import (
	"fmt"
	"html/template"
	"io/fs"
	"sync/atomic"
)

var (
	publicPatterns = []string{"layout.html", "sections/*.html", "views/*.html"}
	adminPatterns  = []string{"admin/*.html"}
)

// Templates holds the parsed public and admin template sets. Reload swaps
// both atomically so in-flight renders keep the set they started with.
type Templates struct {
	source fs.FS
	public atomic.Pointer[template.Template]
	admin  atomic.Pointer[template.Template]
}

// LoadTemplates parses every template under fsys.
func LoadTemplates(fsys fs.FS) (*Templates, error) {
	t := &Templates{source: fsys}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-parses the templates. On error the current sets stay in use.
func (t *Templates) Reload() error {
	public, err := template.New("public").Funcs(funcMap()).ParseFS(t.source, publicPatterns...)
	if err != nil {
		return fmt.Errorf("parse public templates: %w", err)
	}
	admin, err := template.New("admin").Funcs(funcMap()).ParseFS(t.source, adminPatterns...)
	if err != nil {
		return fmt.Errorf("parse admin templates: %w", err)
	}
	t.public.Store(public)
	t.admin.Store(admin)
	return nil
}

func (t *Templates) Public() *template.Template {
	return t.public.Load()
}

func (t *Templates) Admin() *template.Template {
	return t.admin.Load()
}
