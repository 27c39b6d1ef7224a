package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrModelNotConfigured is returned when a request names a model with no backend.
	ErrModelNotConfigured = errors.New("model is not configured")

	// ErrEmptyInput is returned when there is no text to rewrite.
	ErrEmptyInput = errors.New("no text to rewrite")

	// ErrEmptyResult is returned when a backend answers with no content.
	ErrEmptyResult = errors.New("rewrite result is empty, please retry")

	// ErrContentBlocked is returned when the backend blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during rewrite")

	// ErrInvalidConfig is returned when a backend configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
