package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/domain"
)

// EventType classifies job lifecycle events.
type EventType string

// Possible event types
const (
	EventTypeSubmitted EventType = "job_submitted"
	EventTypeStarted   EventType = "job_started"
	EventTypeProgress  EventType = "job_progress"
	EventTypeSucceeded EventType = "job_succeeded"
	EventTypeFailed    EventType = "job_failed"
	EventTypeRetried   EventType = "job_retried"
	EventTypeRemoved   EventType = "job_removed"
)

// JobEvent describes one change in a job's lifecycle.
type JobEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Seq is assigned by the Buffer; zero until buffered
	Seq int64 `json:"seq,omitempty"`

	Type      EventType        `json:"type"`
	JobID     uuid.UUID        `json:"job_id"`
	JobKind   domain.JobKind   `json:"job_kind"`
	Title     string           `json:"title"`
	Status    domain.JobStatus `json:"status"`
	Message   string           `json:"message,omitempty"`
	Progress  int              `json:"progress,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewJobEvent creates an event of the given type from a job snapshot.
func NewJobEvent(eventType EventType, job *domain.Job) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		Type:      eventType,
		JobID:     job.ID,
		JobKind:   job.Kind,
		Title:     job.Title,
		Status:    job.Status,
		Message:   job.Error,
		Progress:  job.Progress,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *JobEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the job queue to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *JobEvent) error
}
