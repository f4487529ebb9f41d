package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/pathwise/internal/api/shared"
	"github.com/phrazzld/pathwise/internal/platform/logger"
)

// TraceMiddleware adds a trace ID to the request context and attaches a
// logger carrying it. Apply it before any middleware that logs.
func TraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set("X-Trace-ID", traceID)
			next.ServeHTTP(w, r.WithContext(logger.WithLogger(ctx, log)))
		})
	}
}
