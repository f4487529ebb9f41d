package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/redact"
)

// Transport-level error codes. Engine results carry their own codes; these
// cover failures that happen before a request reaches the dispatcher.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeBadRequest   = "VALIDATION_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
	CodeNotFound     = "NOT_FOUND"
)

// ErrorResponse is the envelope for failures raised by the HTTP layer. It has
// the same shape as a failed engine result.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
	Status  int    `json:"-"` // used for logging only
}

// ResponseOption defines a function to customize response behavior.
type ResponseOption func(*responseOptions)

type responseOptions struct {
	elevateLogLevel bool
}

// WithElevatedLogLevel raises 4xx errors to WARN instead of DEBUG. Use it for
// operational issues such as repeated auth failures.
func WithElevatedLogLevel() ResponseOption {
	return func(opts *responseOptions) {
		opts.elevateLogLevel = true
	}
}

// RespondWithJSON writes a JSON response with the given status code and data.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode JSON response", "error", err)
	}
}

// RespondWithError writes an error envelope with the request's trace ID.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	traceID := GetTraceID(r.Context())

	logger.FromContext(r.Context()).Debug("sending error response",
		"status_code", status,
		"code", code,
		"message", message,
		"trace_id", traceID,
		"path", r.URL.Path,
		"method", r.Method)

	RespondWithJSON(w, r, status, ErrorResponse{
		Code:    code,
		Message: message,
		TraceID: traceID,
		Status:  status,
	})
}

// RespondWithErrorAndLog writes an error envelope carrying only userMessage
// and logs the redacted err.
//
// 5xx responses log at ERROR and 429 at WARN. Other statuses log at DEBUG
// unless WithElevatedLogLevel is given.
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	code string,
	userMessage string,
	err error,
	opts ...ResponseOption,
) {
	traceID := GetTraceID(r.Context())

	logAttrs := []slog.Attr{
		slog.String("trace_id", traceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
		slog.String("code", code),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		logAttrs = append(logAttrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	responseOpts := responseOptions{}
	for _, opt := range opts {
		opt(&responseOpts)
	}

	logLevel := slog.LevelDebug
	switch {
	case status >= http.StatusInternalServerError:
		logLevel = slog.LevelError
	case status == http.StatusTooManyRequests:
		logLevel = slog.LevelWarn
	case responseOpts.elevateLogLevel && status >= http.StatusBadRequest:
		logLevel = slog.LevelWarn
	}

	logger.FromContext(r.Context()).LogAttrs(r.Context(), logLevel, "API error response", logAttrs...)

	RespondWithJSON(w, r, status, ErrorResponse{
		Code:    code,
		Message: userMessage,
		TraceID: traceID,
		Status:  status,
	})
}
