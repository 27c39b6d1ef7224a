package store

import (
	"errors"
	"fmt"

	"github.com/phrazzld/clipscribe/internal/domain"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity violates a storage constraint.
	ErrInvalidEntity = errors.New("invalid entity")
)

// NotFoundHistory returns the error reported for a missing history record.
// It matches both ErrNotFound and domain.ErrHistoryNotFound.
func NotFoundHistory(id fmt.Stringer) error {
	return fmt.Errorf("%w: %w %s", domain.ErrHistoryNotFound, ErrNotFound, id)
}

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, domain.ErrHistoryNotFound)
}
