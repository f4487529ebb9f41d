package events

import (
	"context"
	"log/slog"

	"github.com/phrazzld/pathwise/internal/platform/logger"
)

// LogHandler records invalidation events at debug level.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(log *slog.Logger) *LogHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LogHandler{logger: log.With(slog.String("component", "invalidation_log"))}
}

// HandleEvent implements EventHandler.
func (h *LogHandler) HandleEvent(ctx context.Context, event *InvalidationEvent) error {
	tags := make([]string, len(event.Tags))
	for i, t := range event.Tags {
		tags[i] = string(t)
	}
	logger.FromContextOrDefault(ctx, h.logger).Debug("cache invalidation",
		slog.String("event_id", event.ID.String()),
		slog.String("user_id", event.UserID.String()),
		slog.String("operation", event.Operation),
		slog.Any("tags", tags))
	return nil
}
