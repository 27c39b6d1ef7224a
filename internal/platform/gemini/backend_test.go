package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/clipscribe/internal/config"
	"github.com/phrazzld/clipscribe/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	model     string
	contents  []*genai.Content
	config    *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.model, f.contents, f.config = model, contents, config
	var resp *genai.GenerateContentResponse
	var err error
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func testBackend(models contentGenerator, retries int) *Backend {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newBackend(models, "gemini-test", Options{MaxRetries: retries, BaseDelay: time.Millisecond}, logger)
}

func TestNewBackendValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewBackend(ctx, nil, config.GeminiConfig{APIKey: "k", ModelName: "m"}, Options{})
	assert.Error(t, err)

	_, err = NewBackend(ctx, logger, config.GeminiConfig{ModelName: "m"}, Options{})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewBackend(ctx, logger, config.GeminiConfig{APIKey: "k"}, Options{})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestCompleteSendsPrompts(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse(" rewritten ")}}
	out, err := testBackend(models, 0).Complete(context.Background(), "system", "user text")

	require.NoError(t, err)
	assert.Equal(t, "rewritten", out)
	assert.Equal(t, "gemini-test", models.model)
	require.Len(t, models.contents, 1)
	assert.Equal(t, "user text", models.contents[0].Parts[0].Text)
	assert.Equal(t, "system", models.config.SystemInstruction.Parts[0].Text)
}

func TestCompleteRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	models := &fakeModels{
		errs:      []error{errors.New("503"), errors.New("503")},
		responses: []*genai.GenerateContentResponse{nil, nil, textResponse("ok")},
	}
	out, err := testBackend(models, 3).Complete(context.Background(), "s", "u")

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, models.calls)
}

func TestCompleteGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	boom := errors.New("unavailable")
	models := &fakeModels{errs: []error{boom, boom, boom}}
	_, err := testBackend(models, 2).Complete(context.Background(), "s", "u")

	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, models.calls)
}

func TestCompletePermanentFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want error
	}{
		{"nil response", nil, ErrInvalidResponse},
		{"no candidates", &genai.GenerateContentResponse{}, ErrInvalidResponse},
		{"blank text", textResponse("   "), ErrInvalidResponse},
		{"blocked", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}, generation.ErrContentBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{responses: []*genai.GenerateContentResponse{tt.resp}}
			_, err := testBackend(models, 3).Complete(context.Background(), "s", "u")
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, models.calls, "permanent errors are not retried")
		})
	}
}

func TestCompleteStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	models := &fakeModels{errs: []error{errors.New("503")}}
	b := newBackend(models, "m", Options{MaxRetries: 5, BaseDelay: time.Hour}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := b.Complete(ctx, "s", "u")
	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.Equal(t, 1, models.calls)
}

func TestBackoffGrows(t *testing.T) {
	t.Parallel()

	b := testBackend(&fakeModels{}, 0)
	b.options.BaseDelay = 100 * time.Millisecond

	d0 := b.backoff(0)
	d3 := b.backoff(3)
	assert.GreaterOrEqual(t, d0, 50*time.Millisecond)
	assert.Less(t, d0, 100*time.Millisecond)
	assert.GreaterOrEqual(t, d3, 400*time.Millisecond)
	assert.Less(t, d3, 800*time.Millisecond)
}
