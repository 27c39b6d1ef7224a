package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/domain"
)

// HistoryStore persists history records. Implementations must be safe for
// concurrent use; jobs write to it from their own goroutines.
type HistoryStore interface {
	// Create stores a new record built from fields and returns its id.
	Create(ctx context.Context, fields domain.HistoryFields) (uuid.UUID, error)

	// Update applies the non-nil fields to the record with id.
	// Returns an error matching domain.ErrHistoryNotFound if it does not exist.
	Update(ctx context.Context, id uuid.UUID, fields domain.HistoryFields) error

	// Find returns the record with id.
	// Returns an error matching domain.ErrHistoryNotFound if it does not exist.
	Find(ctx context.Context, id uuid.UUID) (*domain.HistoryRecord, error)

	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]domain.HistoryRecord, error)

	// Delete removes the record with id.
	// Returns an error matching domain.ErrHistoryNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
