package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/phrazzld/clipscribe/internal/config"
	"github.com/phrazzld/clipscribe/internal/generation"
	"google.golang.org/genai"
)

// Defaults applied by NewBackend.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 2 * time.Second
	DefaultTimeout    = 60 * time.Second
)

// ErrInvalidResponse is returned when the API answers without usable text.
var ErrInvalidResponse = errors.New("invalid response from language model")

// contentGenerator is the part of *genai.Models the backend uses.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Options tunes retries and timeouts.
type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Timeout bounds each API call.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries < 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Backend implements generation.Backend on the Gemini API.
type Backend struct {
	models  contentGenerator
	model   string
	options Options
	logger  *slog.Logger
	rng     *rand.Rand
}

var _ generation.Backend = (*Backend)(nil)

// NewBackend creates a Backend from cfg.
func NewBackend(ctx context.Context, logger *slog.Logger, cfg config.GeminiConfig, options Options) (*Backend, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newBackend(client.Models, cfg.ModelName, options, logger), nil
}

func newBackend(models contentGenerator, model string, options Options, logger *slog.Logger) *Backend {
	return &Backend{
		models:  models,
		model:   model,
		options: options.withDefaults(),
		logger:  logger.With("component", "gemini_backend", "model", model),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Complete implements generation.Backend.
func (b *Backend) Complete(ctx context.Context, system, user string) (string, error) {
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: user}},
	}}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       genai.Ptr[float32](0.7),
	}

	maxRetries := b.options.MaxRetries
	for attempt := 0; ; attempt++ {
		text, err := b.call(ctx, contents, cfg)
		if err == nil {
			return text, nil
		}

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, ErrInvalidResponse) {
			b.logger.WarnContext(ctx, "Permanent error occurred, not retrying", "error", err)
			return "", err
		}
		if attempt >= maxRetries {
			b.logger.WarnContext(ctx, "Maximum retry attempts reached", "max_retries", maxRetries)
			return "", fmt.Errorf("%w: %w", generation.ErrTransientFailure, err)
		}

		delay := b.backoff(attempt)
		b.logger.InfoContext(ctx, "Retrying after delay",
			"attempt", attempt+1,
			"delay_ms", delay.Milliseconds(),
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

func (b *Backend) call(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.options.Timeout)
	defer cancel()

	resp, err := b.models.GenerateContent(ctx, b.model, contents, cfg)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// backoff returns base * 2^attempt scaled by a jitter factor in [0.5, 1.0).
func (b *Backend) backoff(attempt int) time.Duration {
	base := float64(b.options.BaseDelay) * math.Pow(2, float64(attempt))
	return time.Duration(base * (0.5 + b.rng.Float64()*0.5))
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text in response", ErrInvalidResponse)
	}
	return text, nil
}
