// Package web embeds the site templates and static assets.
package web

import (
	"embed"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates returns the embedded template tree rooted at templates/.
func Templates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic("web: templates sub-filesystem: " + err.Error())
	}
	return sub
}

// StaticHandler serves the embedded assets under prefix. Assets change only
// with a new build, so they are cached for a day.
func StaticHandler(prefix string) http.Handler {
	stripped, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: static sub-filesystem: " + err.Error())
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(path.Clean(strings.TrimPrefix(r.URL.Path, prefix)), "/")
		if name == "" || name == "." {
			http.NotFound(w, r)
			return
		}
		file, err := stripped.Open(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer file.Close()

		stat, err := file.Stat()
		if err != nil || stat.IsDir() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeContent(w, r, name, stat.ModTime(), file.(io.ReadSeeker))
	})
}
