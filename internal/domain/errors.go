package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidJobKind is returned when a job kind is not one of the known kinds.
	ErrInvalidJobKind = errors.New("invalid job kind")

	// ErrInvalidJobStatus is returned when a job status is not a known status.
	ErrInvalidJobStatus = errors.New("invalid job status")

	// ErrInvalidTransition is returned when a job status change is not
	// permitted by the lifecycle state machine.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrHistoryNotFound is returned when a history record does not exist.
	ErrHistoryNotFound = errors.New("history record not found")
)
