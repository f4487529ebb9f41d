package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
)

// maxQueryLimit bounds the ?limit= query parameter.
const maxQueryLimit = 100

// getPathID extracts a positive content ID from the URL path parameters.
func getPathID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrValidation, paramName)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrInvalidID, paramName)
	}
	return id, nil
}

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrValidation, paramName)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", domain.ErrInvalidID, paramName)
	}
	return id, nil
}

// getLimit reads the optional ?limit= query parameter. Absent means zero,
// which the engine replaces with its default.
func getLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxQueryLimit {
		return 0, fmt.Errorf("%w: limit must be in 1..%d", domain.ErrInvalidLimit, maxQueryLimit)
	}
	return limit, nil
}
