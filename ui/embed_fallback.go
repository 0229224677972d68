//go:build !ui_embed

// Package ui provides a fallback handler when the frontend is not embedded.
package ui

import (
	"net/http"
)

// Handler sends browsers to the API docs, where files can still be uploaded
// and compressed, when the drop-zone frontend is not built in.
func Handler() (http.Handler, error) {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/docs", http.StatusFound)
	}), nil
}
