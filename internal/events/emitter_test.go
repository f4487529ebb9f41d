package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *InvalidationEvent
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(_ context.Context, event *InvalidationEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func testEvent() *InvalidationEvent {
	userID := uuid.New()
	return NewInvalidationEvent(userID, "RefillHearts",
		[]domain.Tag{domain.HeartsTag(userID, 10)},
		time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
}

func TestNewInvalidationEvent(t *testing.T) {
	event := testEvent()

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "RefillHearts", event.Operation)
	require.Len(t, event.Tags, 1)
	assert.Contains(t, string(event.Tags[0]), ":hearts:path:10")
}

func TestInMemoryEventEmitter(t *testing.T) {
	log, _ := logger.NewTestLogger()

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		assert.NoError(t, emitter.EmitEvent(context.Background(), testEvent()))
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := testEvent()
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Same(t, event, handler1.LastEvent)
		assert.Same(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		failingHandler := &MockEventHandler{HandlerError: errors.New("handler error")}
		successHandler := &MockEventHandler{}
		emitter.RegisterHandler(failingHandler)
		emitter.RegisterHandler(successHandler)

		err := emitter.EmitEvent(context.Background(), testEvent())
		require.Error(t, err)
		assert.Equal(t, "handler error", err.Error())

		// Both handlers should still have received the event
		assert.Equal(t, 1, successHandler.HandledCount)
		assert.Equal(t, 1, failingHandler.HandledCount)
	})
}

func TestLogHandler(t *testing.T) {
	log, buf := logger.NewTestLogger()
	event := testEvent()

	require.NoError(t, NewLogHandler(log).HandleEvent(context.Background(), event))

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cache invalidation", entries[0]["msg"])
	assert.Equal(t, event.UserID.String(), entries[0]["user_id"])
	assert.Equal(t, []any{string(event.Tags[0])}, entries[0]["tags"])
}
