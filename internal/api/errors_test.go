package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/api/shared"
	"github.com/phrazzld/clipscribe/internal/config"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/platform/localfs"
	"github.com/phrazzld/clipscribe/internal/service/auth"
	"github.com/phrazzld/clipscribe/internal/store"
	"github.com/phrazzld/clipscribe/internal/task"
	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "Token expired"},
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
		{"job not found", task.ErrJobNotFound, http.StatusNotFound, "Job not found"},
		{"history not found", store.NotFoundHistory(uuid.New()), http.StatusNotFound, "History record not found"},
		{"job running", task.ErrJobRunning, http.StatusConflict, "Job is running and cannot be removed"},
		{"not retryable", fmt.Errorf("%w: job is queued", task.ErrNotRetryable), http.StatusConflict, "Only failed jobs can be retried"},
		{"unsupported upload", fmt.Errorf("%w: a.txt", localfs.ErrUnsupportedType), http.StatusUnsupportedMediaType, "Unsupported file type"},
		{"invalid kind", fmt.Errorf("job 1: %w", domain.ErrInvalidJobKind), http.StatusBadRequest, "Invalid job kind"},
		{"invalid limit", config.ErrInvalidLimit, http.StatusBadRequest, "Concurrency limit must be between 1 and 32"},
		{"validation", fmt.Errorf("%w: id is required", domain.ErrValidation), http.StatusBadRequest, "Invalid request data"},
		{"empty body", shared.ErrEmptyBody, http.StatusBadRequest, "Request body is required"},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.message, GetSafeErrorMessage(tt.err))
		})
	}

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

func TestHandleAPIErrorHidesDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()

	HandleAPIError(rec, req, fmt.Errorf("query failed for postgres://app:hunter2@db/clipscribe: %w", errors.New("timeout")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.NotContains(t, rec.Body.String(), "postgres")
}

func TestSanitizeValidationError(t *testing.T) {
	err := shared.ValidateRequest(ConcurrencyRequest{MaxConcurrent: 99})
	assert.Equal(t, "Invalid MaxConcurrent: too large", SanitizeValidationError(err))

	err = shared.ValidateRequest(SubmitBatchRequest{Jobs: []SubmitJobRequest{{Kind: "nope"}}})
	assert.Equal(t, "Invalid Jobs[0].Kind: invalid value", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}

func TestSubmitJobRequestToSpec(t *testing.T) {
	historyID := uuid.New()
	req := SubmitJobRequest{
		Kind:      "extract",
		HistoryID: historyID.String(),
		Params:    JobParamsRequest{RewriteStyle: "humorous", AIModel: "deepseek"},
		LocalData: &LocalDataRequest{
			IsLocal:         true,
			LocalType:       domain.LocalTypeAudio,
			LocalAudioPath:  "audio/1_clip.mp3",
			LocalSourceType: "video",
		},
	}

	spec := req.ToSpec()
	assert.Equal(t, domain.JobKindExtract, spec.Kind)
	assert.Equal(t, historyID, spec.HistoryID)
	assert.Equal(t, "humorous", spec.Params.RewriteStyle)
	assert.Equal(t, "deepseek", spec.Params.AIModel)
	assert.Nil(t, spec.Params.Download)
	if assert.NotNil(t, spec.LocalData) {
		assert.True(t, spec.LocalData.IsLocalAudio())
		assert.Equal(t, "audio/1_clip.mp3", spec.LocalData.LocalAudioPath)
	}

	assert.Equal(t, uuid.Nil, SubmitJobRequest{Kind: "rewrite"}.ToSpec().HistoryID)
}
