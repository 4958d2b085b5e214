// Package web embeds the chat page (dist/).
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"

	"github.com/ashureev/loanbot/internal/api"
)

//go:embed all:dist
var distFS embed.FS

// Handler serves the chat page at / and any other file shipped in dist/.
// Everything else, /api/ typos included, gets a JSON 404.
func Handler() http.Handler {
	pages, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: dist: " + err.Error())
	}
	files := http.FileServer(http.FS(pages))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)[1:]
		if name == "" {
			files.ServeHTTP(w, r)
			return
		}
		if info, err := fs.Stat(pages, name); err != nil || info.IsDir() {
			api.Error(w, http.StatusNotFound, "not found")
			return
		}
		files.ServeHTTP(w, r)
	})
}
