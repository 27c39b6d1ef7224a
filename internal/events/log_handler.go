package events

import (
	"context"
	"log/slog"
)

// LogHandler writes job events to a structured logger. Progress events are
// logged at debug level, failures at warn, everything else at info.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	return &LogHandler{logger: logger.With("component", "job_event_log")}
}

// HandleEvent implements EventHandler.
func (h *LogHandler) HandleEvent(ctx context.Context, event *JobEvent) error {
	level := slog.LevelInfo
	switch event.Type {
	case EventTypeProgress:
		level = slog.LevelDebug
	case EventTypeFailed:
		level = slog.LevelWarn
	}

	attrs := []any{
		"job_id", event.JobID,
		"job_kind", event.JobKind,
		"status", event.Status,
		"title", event.Title,
	}
	if event.Message != "" {
		attrs = append(attrs, "message", event.Message)
	}
	if event.Type == EventTypeProgress {
		attrs = append(attrs, "progress", event.Progress)
	}

	h.logger.Log(ctx, level, string(event.Type), attrs...)
	return nil
}
