package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/videosqueeze/internal/logging"
)

// HTTPLoggingMiddleware logs each request at a level derived from its status.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)
	logRequest(ctx.Context(), logging.GetLogger("http"), ctx.Method(), ctx.URL().Path, ctx.URL().RawQuery,
		ctx.RemoteAddr(), ctx.Header("User-Agent"), ctx.Status(), time.Since(start))
}

// statusRecorder captures the status written by a plain handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog logs plain handlers the way HTTPLoggingMiddleware logs Huma ones.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logRequest(r.Context(), logging.GetLogger("http"), r.Method, r.URL.Path, r.URL.RawQuery,
			r.RemoteAddr, r.UserAgent(), rec.status, time.Since(start))
	})
}

func logRequest(ctx context.Context, logger *slog.Logger, method, path, query, remoteAddr, userAgent string, status int, duration time.Duration) {
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.String("remote_addr", remoteAddr),
		slog.Int("status", status),
		slog.Duration("duration", duration),
	}
	if q := redactQuery(query); q != "" {
		attrs = append(attrs, slog.String("query", q))
	}
	if userAgent != "" {
		attrs = append(attrs, slog.String("user_agent", userAgent))
	}

	level := slog.LevelInfo
	switch {
	case method == http.MethodOptions:
		level = slog.LevelDebug
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	logger.LogAttrs(ctx, level, "HTTP request completed", attrs...)
}

// redactQuery masks the ?auth= credentials in a raw query.
func redactQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	if values.Has("auth") {
		values.Set("auth", "REDACTED")
	}
	return values.Encode()
}
