//go:build ui_embed

// Package ui embeds the drop-zone frontend.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Build with: go build -tags ui_embed .
// Requires: cd ui && pnpm build

//go:embed all:dist
var distFS embed.FS

// Handler serves the embedded single page app. Unknown paths without an
// extension fall back to index.html so client routes survive a reload.
func Handler() (http.Handler, error) {
	fsys, err := fs.Sub(distFS, "dist")
	if err != nil {
		return nil, err
	}
	files := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := path.Clean(r.URL.Path)
		if isFile(fsys, strings.TrimPrefix(p, "/")) {
			// Hashed asset names never change content.
			if strings.HasPrefix(p, "/assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			files.ServeHTTP(w, r)
			return
		}
		if strings.Contains(path.Base(p), ".") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFileFS(w, r, fsys, "index.html")
	}), nil
}

func isFile(fsys fs.FS, name string) bool {
	if name == "" {
		return false
	}
	stat, err := fs.Stat(fsys, name)
	return err == nil && !stat.IsDir()
}
