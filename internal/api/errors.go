package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/clipscribe/internal/api/shared"
	"github.com/phrazzld/clipscribe/internal/config"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/platform/localfs"
	"github.com/phrazzld/clipscribe/internal/service/auth"
	"github.com/phrazzld/clipscribe/internal/store"
	"github.com/phrazzld/clipscribe/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so internal
// error types never reach clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	case errors.Is(err, task.ErrJobNotFound),
		errors.Is(err, domain.ErrHistoryNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, task.ErrJobRunning),
		errors.Is(err, task.ErrNotRetryable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, localfs.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidJobKind),
		errors.Is(err, domain.ErrInvalidJobStatus),
		errors.Is(err, config.ErrInvalidLimit),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that reveals no
// internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, task.ErrJobNotFound):
		return "Job not found"
	case errors.Is(err, domain.ErrHistoryNotFound),
		errors.Is(err, store.ErrNotFound):
		return "History record not found"

	case errors.Is(err, task.ErrJobRunning):
		return "Job is running and cannot be removed"
	case errors.Is(err, task.ErrNotRetryable):
		return "Only failed jobs can be retried"

	case errors.Is(err, localfs.ErrUnsupportedType):
		return "Unsupported file type"

	case errors.Is(err, domain.ErrInvalidJobKind):
		return "Invalid job kind"
	case errors.Is(err, config.ErrInvalidLimit):
		return fmt.Sprintf("Concurrency limit must be between 1 and %d", config.MaxConcurrentCeiling)
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted details.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
}

// SanitizeValidationError turns a validator error into a short message that
// names the first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	first := verrs[0]
	field := first.Field()
	if ns := first.Namespace(); ns != "" {
		// Drop the top-level struct name: "SubmitJobRequest.Params.AIModel" -> "Params.AIModel".
		if _, rest, ok := strings.Cut(ns, "."); ok {
			field = rest
		}
	}
	return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(first.Tag()))
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required", "required_if", "required_without":
		return "required field"
	case "url", "http_url":
		return "invalid URL"
	case "uuid", "uuid4":
		return "invalid id"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "dive":
		return "invalid element"
	default:
		return "validation failed"
	}
}
