package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/pathwise/internal/platform/logger"
)

// Errors returned by AsyncHandler.HandleEvent.
var (
	ErrQueueClosed = errors.New("event queue is closed")
	ErrQueueFull   = errors.New("event queue is full")
)

// AsyncConfig sizes an AsyncHandler.
type AsyncConfig struct {
	// Workers is the number of goroutines delivering events. Defaults to 1.
	Workers int
	// QueueSize bounds the number of undelivered events. Defaults to 64.
	QueueSize int
	// Timeout bounds a single delivery. Defaults to 5s.
	Timeout time.Duration
}

type queuedEvent struct {
	ctx   context.Context
	event *InvalidationEvent
}

// AsyncHandler delivers events to another handler on a pool of workers so a
// slow sink never holds up the request that produced the event. HandleEvent
// never blocks: when the queue is full the event is dropped with ErrQueueFull.
type AsyncHandler struct {
	next    EventHandler
	queue   chan queuedEvent
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncHandler starts the workers. Call Close to drain and stop them.
func NewAsyncHandler(next EventHandler, cfg AsyncConfig, log *slog.Logger) *AsyncHandler {
	if next == nil {
		panic("next handler cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	h := &AsyncHandler{
		next:    next,
		queue:   make(chan queuedEvent, cfg.QueueSize),
		timeout: cfg.Timeout,
		logger:  log.With(slog.String("component", "async_event_handler")),
	}
	for i := 0; i < cfg.Workers; i++ {
		h.wg.Add(1)
		go h.worker(i)
	}
	return h
}

// HandleEvent implements EventHandler by enqueueing the event.
func (h *AsyncHandler) HandleEvent(ctx context.Context, event *InvalidationEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrQueueClosed
	}

	// keep request-scoped values such as the trace logger, drop cancellation
	select {
	case h.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(h.queue))
	}
}

func (h *AsyncHandler) worker(id int) {
	defer h.wg.Done()
	for item := range h.queue {
		h.deliver(id, item)
	}
}

func (h *AsyncHandler) deliver(workerID int, item queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("event handler panicked",
				slog.Int("worker_id", workerID),
				slog.String("event_id", item.event.ID.String()),
				slog.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(item.ctx, h.timeout)
	defer cancel()

	if err := h.next.HandleEvent(ctx, item.event); err != nil {
		logger.FromContextOrDefault(ctx, h.logger).Warn("async event delivery failed",
			slog.Int("worker_id", workerID),
			slog.String("event_id", item.event.ID.String()),
			slog.String("operation", item.event.Operation),
			slog.String("error", err.Error()))
	}
}

// Close stops accepting events, delivers what is queued and waits for the
// workers to exit or ctx to end.
func (h *AsyncHandler) Close(ctx context.Context) error {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.queue)
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
