package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter is a simple implementation of the EventEmitter interface
// that stores registered handlers in memory and dispatches events to them.
type InMemoryEventEmitter struct {
	handlers []EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		handlers: make([]EventHandler, 0),
		logger:   logger.With(slog.String("component", "in_memory_event_emitter")),
	}
}

// RegisterHandler adds a new event handler to receive events.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered new event handler", slog.Int("handler_count", len(e.handlers)))
}

// EmitEvent publishes the given event to all registered handlers.
// If any handler returns an error, the event will still be sent to all other handlers,
// and the first error encountered will be returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *InvalidationEvent) error {
	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	if len(handlers) == 0 {
		e.logger.Debug("no handlers registered for event",
			slog.String("event_id", event.ID.String()),
			slog.String("operation", event.Operation))
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				slog.String("error", err.Error()),
				slog.Int("handler_index", i),
				slog.String("event_id", event.ID.String()),
				slog.String("operation", event.Operation))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
