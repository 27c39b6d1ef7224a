package events

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	HandledCount int
	LastEvent    *JobEvent
	HandlerError error
}

func (m *MockEventHandler) HandleEvent(ctx context.Context, event *JobEvent) error {
	m.HandledCount++
	m.LastEvent = event
	return m.HandlerError
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testEvent(t *testing.T, eventType EventType) *JobEvent {
	t.Helper()
	job, err := domain.NewJob(domain.JobSpec{Kind: domain.JobKindExtract, Title: "clip"})
	require.NoError(t, err)
	return NewJobEvent(eventType, job)
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	t.Run("no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(testLogger())
		err := emitter.EmitEvent(context.Background(), testEvent(t, EventTypeSubmitted))
		assert.NoError(t, err)
	})

	t.Run("successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(testLogger())
		h1 := &MockEventHandler{}
		h2 := &MockEventHandler{}
		emitter.RegisterHandler(h1)
		emitter.RegisterHandler(h2)

		event := testEvent(t, EventTypeStarted)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, h1.HandledCount)
		assert.Equal(t, 1, h2.HandledCount)
		assert.Same(t, event, h1.LastEvent)
		assert.Same(t, event, h2.LastEvent)
	})

	t.Run("failing handler does not stop delivery", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(testLogger())
		handlerErr := errors.New("handler failed")
		failing := &MockEventHandler{HandlerError: handlerErr}
		after := &MockEventHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(after)

		err := emitter.EmitEvent(context.Background(), testEvent(t, EventTypeFailed))
		assert.ErrorIs(t, err, handlerErr)
		assert.Equal(t, 1, failing.HandledCount)
		assert.Equal(t, 1, after.HandledCount)
	})

	t.Run("errors from every handler are joined", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(testLogger())
		first := errors.New("first")
		second := errors.New("second")
		emitter.RegisterHandler(&MockEventHandler{HandlerError: first})
		emitter.RegisterHandler(&MockEventHandler{HandlerError: second})

		err := emitter.EmitEvent(context.Background(), testEvent(t, EventTypeRemoved))
		assert.ErrorIs(t, err, first)
		assert.ErrorIs(t, err, second)
	})

	t.Run("typed subscription", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(testLogger())
		var seen []EventType
		emitter.RegisterHandler(HandlerFunc(func(_ context.Context, e *JobEvent) error {
			seen = append(seen, e.Type)
			return nil
		}), EventTypeSucceeded, EventTypeFailed)

		for _, typ := range []EventType{EventTypeSubmitted, EventTypeStarted, EventTypeFailed, EventTypeSucceeded} {
			require.NoError(t, emitter.EmitEvent(context.Background(), testEvent(t, typ)))
		}
		assert.Equal(t, []EventType{EventTypeFailed, EventTypeSucceeded}, seen)
	})
}

func TestLogHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	handler := NewLogHandler(logger)

	require.NoError(t, handler.HandleEvent(context.Background(), testEvent(t, EventTypeProgress)))
	assert.Empty(t, buf.String(), "progress events are logged at debug level")

	failed := testEvent(t, EventTypeFailed)
	failed.Message = "network down"
	require.NoError(t, handler.HandleEvent(context.Background(), failed))
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"msg":"job_failed"`)
	assert.Contains(t, buf.String(), "network down")
}
