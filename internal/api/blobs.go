package api

import (
	"errors"
	"mime"
	"net/http"

	"github.com/smazurov/videosqueeze/internal/blob"
)

// registerBlobRoutes serves preview and output bytes. It sits outside Huma
// because http.ServeContent answers Range requests, which video elements
// depend on for seeking.
func (s *Server) registerBlobRoutes() {
	cors := DefaultCORSConfig()
	if s.options.CORSOrigin != "" {
		cors.AllowOrigin = s.options.CORSOrigin
	}
	handler := withCORS(cors, withRequestLog(s.requireAuth(http.HandlerFunc(s.serveBlob))))
	s.mux.Handle("GET "+blob.DefaultPrefix+"{id}", handler)
}

// serveBlob writes one blob. Downloads are named by the blob's filename;
// ?inline=1 asks the browser to play instead of save.
func (s *Server) serveBlob(w http.ResponseWriter, r *http.Request) {
	b, err := s.blobs.Open(r.PathValue("id"))
	if errors.Is(err, blob.ErrNotFound) {
		http.Error(w, "blob not found or revoked", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	disposition := "attachment"
	if r.URL.Query().Get("inline") != "" {
		disposition = "inline"
	}
	if b.Filename != "" {
		if v := mime.FormatMediaType(disposition, map[string]string{"filename": b.Filename}); v != "" {
			disposition = v
		}
	}
	w.Header().Set("Content-Disposition", disposition)
	if b.ContentType != "" {
		w.Header().Set("Content-Type", b.ContentType)
	}
	w.Header().Set("Cache-Control", "private, no-store")

	http.ServeContent(w, r, b.Filename, b.Created, b.Reader())
}
