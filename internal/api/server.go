package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"golang.org/x/crypto/bcrypt"

	"github.com/smazurov/videosqueeze/internal/blob"
	"github.com/smazurov/videosqueeze/internal/config"
	"github.com/smazurov/videosqueeze/internal/conversion"
	"github.com/smazurov/videosqueeze/internal/events"
	"github.com/smazurov/videosqueeze/internal/logging"
	"github.com/smazurov/videosqueeze/internal/version"
	"github.com/smazurov/videosqueeze/ui"
)

const authRealm = `Basic realm="VideoSqueeze API"`

// DefaultMaxUploadBytes bounds a dropped file when Options leaves it unset.
const DefaultMaxUploadBytes int64 = 2 << 30

// Options wires the server to the conversion runtime.
type Options struct {
	AuthUsername   string
	AuthPassword   string
	CORSOrigin     string // "*" when empty
	MaxUploadBytes int64

	Driver         *conversion.Driver
	Sessions       *conversion.Sessions
	Presets        *config.PresetStore
	Blobs          *blob.Store
	EventBus       *events.Bus
	MetricsHandler http.Handler // served at GET /metrics when set
}

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	driver     *conversion.Driver
	sessions   *conversion.Sessions
	presets    *config.PresetStore
	blobs      *blob.Store
	eventBus   *events.Bus
	logger     *slog.Logger

	verified atomic.Pointer[[sha256.Size]byte]

	// jobs outlive the request that started them.
	jobCtx    context.Context
	jobCancel context.CancelFunc
}

// NewServer creates the API server using Go 1.22+ routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	if opts.CORSOrigin != "" {
		corsConfig.AllowOrigin = opts.CORSOrigin
	}
	AddCORSHandler(mux, corsConfig)

	cfg := huma.DefaultConfig("VideoSqueeze API", version.String())
	cfg.Info.Description = "Compress videos with ffmpeg: drop a file, pick settings, download the result"
	cfg.Servers = []*huma.Server{}
	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, cfg)

	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Sessions == nil {
		opts.Sessions = conversion.NewSessions()
	}
	if opts.EventBus == nil {
		opts.EventBus = events.New()
	}
	if opts.Blobs == nil {
		opts.Blobs = blob.NewStore("")
	}
	if opts.Presets == nil {
		opts.Presets = config.NewPresetStore("", opts.EventBus)
	}

	jobCtx, jobCancel := context.WithCancel(context.Background())
	server := &Server{
		api:       api,
		mux:       mux,
		options:   opts,
		driver:    opts.Driver,
		sessions:  opts.Sessions,
		presets:   opts.Presets,
		blobs:     opts.Blobs,
		eventBus:  opts.EventBus,
		logger:    logging.GetLogger("api"),
		jobCtx:    jobCtx,
		jobCancel: jobCancel,
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if server.authEnabled() {
		api.UseMiddleware(server.basicAuthMiddleware)
	}

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	server.registerRoutes()

	if frontend, err := ui.Handler(); err == nil {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api") {
				http.NotFound(w, r)
				return
			}
			frontend.ServeHTTP(w, r)
		})
	}

	return server
}

// GetMux returns the underlying HTTP ServeMux.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves on addr until Stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting VideoSqueeze API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop closes the listener and every open connection, SSE streams included.
// Conversions already handed to the engine run to completion.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	s.jobCancel()
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.registerSystemRoutes()
	s.registerSessionRoutes()
	s.registerBlobRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}

func (s *Server) authEnabled() bool {
	return s.options.AuthUsername != "" && s.options.AuthPassword != ""
}

// credentials extracts user:password from an Authorization header or, for
// EventSource and media elements that cannot set headers, from ?auth=.
func credentials(header, query string) (user, pass string, err error) {
	var encoded string
	switch {
	case header != "":
		const prefix = "Basic "
		if !strings.HasPrefix(header, prefix) {
			return "", "", errors.New("invalid authentication type")
		}
		encoded = header[len(prefix):]
	case query != "":
		encoded = query
	default:
		return "", "", errors.New("authentication required")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", errors.New("invalid credentials format")
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", errors.New("invalid credentials format")
	}
	return user, pass, nil
}

func (s *Server) checkCredentials(header, query string) error {
	user, pass, err := credentials(header, query)
	if err != nil {
		return err
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.options.AuthUsername)) == 1
	passOK := s.passwordOK(pass)
	if !userOK || !passOK {
		return errors.New("invalid credentials")
	}
	return nil
}

// isBcryptHash reports whether a configured password is a bcrypt hash.
func isBcryptHash(p string) bool {
	return len(p) == 60 && (strings.HasPrefix(p, "$2a$") || strings.HasPrefix(p, "$2b$") || strings.HasPrefix(p, "$2y$"))
}

// passwordOK checks pass against the configured password, which may be a
// bcrypt hash. The last accepted password is remembered by digest because
// media elements issue many range requests.
func (s *Server) passwordOK(pass string) bool {
	want := s.options.AuthPassword
	if !isBcryptHash(want) {
		return subtle.ConstantTimeCompare([]byte(pass), []byte(want)) == 1
	}
	sum := sha256.Sum256([]byte(pass))
	if last := s.verified.Load(); last != nil && subtle.ConstantTimeCompare(last[:], sum[:]) == 1 {
		return true
	}
	if bcrypt.CompareHashAndPassword([]byte(want), []byte(pass)) != nil {
		return false
	}
	s.verified.Store(&sum)
	return true
}

// basicAuthMiddleware enforces basic auth on operations that declare security.
func (s *Server) basicAuthMiddleware(ctx huma.Context, next func(huma.Context)) {
	if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
		next(ctx)
		return
	}
	if err := s.checkCredentials(ctx.Header("Authorization"), ctx.Query("auth")); err != nil {
		ctx.SetHeader("WWW-Authenticate", authRealm)
		_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, err.Error())
		return
	}
	next(ctx)
}

// requireAuth guards plain handlers registered outside Huma.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	if !s.authEnabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.checkCredentials(r.Header.Get("Authorization"), r.URL.Query().Get("auth")); err != nil {
			w.Header().Set("WWW-Authenticate", authRealm)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAuth returns the basic auth security requirement.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
