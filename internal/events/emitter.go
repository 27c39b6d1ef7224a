package events

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *JobEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *JobEvent) error {
	return f(ctx, event)
}

type subscription struct {
	handler EventHandler
	types   []EventType // empty means every type
}

func (s subscription) wants(t EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// InMemoryEventEmitter dispatches job events synchronously to its
// subscribers in registration order. The queue publishes while holding its
// emit lock, so handlers must not call back into it.
type InMemoryEventEmitter struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no subscribers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{logger: logger.With("component", "job_events")}
}

// RegisterHandler subscribes handler to the given event types, or to every
// type when none are given.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, types ...EventType) {
	e.mu.Lock()
	e.subs = append(e.subs, subscription{handler: handler, types: types})
	n := len(e.subs)
	e.mu.Unlock()

	e.logger.Debug("event handler registered", "subscribers", n, "types", types)
}

// EmitEvent delivers event to every interested subscriber. A failing
// handler does not stop delivery; all handler errors are joined.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *JobEvent) error {
	e.mu.RLock()
	subs := slices.Clone(e.subs)
	e.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if !sub.wants(event.Type) {
			continue
		}
		if err := sub.handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("event handler failed",
				"error", err,
				"event_type", event.Type,
				"job_id", event.JobID)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
