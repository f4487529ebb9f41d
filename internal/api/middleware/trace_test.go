package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/pathwise/internal/api/middleware"
	"github.com/phrazzld/pathwise/internal/api/shared"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger()
	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	})

	w := httptest.NewRecorder()
	middleware.TraceMiddleware(log)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Len(t, traceID, 32)
	assert.Equal(t, traceID, w.Header().Get("X-Trace-ID"))

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "request started", entries[0]["msg"])
	for _, e := range entries {
		assert.Equal(t, traceID, e["trace_id"])
	}
}
