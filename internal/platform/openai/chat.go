package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/phrazzld/clipscribe/internal/config"
	"github.com/phrazzld/clipscribe/internal/generation"
)

const (
	// DefaultTimeout bounds one API call.
	DefaultTimeout = 60 * time.Second

	// MaxBackoff caps the wait between rate-limited attempts.
	MaxBackoff = 32 * time.Second

	defaultMaxTokens   = 2000
	defaultTemperature = 0.7
)

// ErrAPIKeyNotSet is returned when a backend is built without an API key.
var ErrAPIKeyNotSet = errors.New("API key not set")

// ChatOptions tunes a ChatBackend.
type ChatOptions struct {
	Timeout     time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
}

// ChatBackend implements generation.Backend on a chat completions API.
type ChatBackend struct {
	client  openai.Client
	name    string
	model   string
	options ChatOptions
	logger  *slog.Logger
}

var _ generation.Backend = (*ChatBackend)(nil)

// NewChatBackend creates a backend named name from cfg. Extra request
// options are appended after the ones derived from cfg.
func NewChatBackend(
	name string,
	cfg config.OpenAICompatibleLLM,
	options ChatOptions,
	logger *slog.Logger,
	extra ...option.RequestOption,
) (*ChatBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %w for %s", generation.ErrInvalidConfig, ErrAPIKeyNotSet, name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model cannot be empty for %s", generation.ErrInvalidConfig, name)
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.BaseBackoff <= 0 {
		options.BaseBackoff = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	return &ChatBackend{
		client:  openai.NewClient(opts...),
		name:    name,
		model:   cfg.Model,
		options: options,
		logger:  logger.With("component", "chat_backend", "backend", name),
	}, nil
}

// Complete implements generation.Backend. Rate-limited calls are retried
// with exponential backoff; other API errors are returned at once.
func (b *ChatBackend) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.options.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(defaultTemperature),
		MaxTokens:   openai.Int(defaultMaxTokens),
	}

	var lastErr error
	for attempt := 0; attempt <= b.options.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * b.options.BaseBackoff
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		completion, err := b.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				b.logger.WarnContext(ctx, "rate limited, retrying", "attempt", attempt+1)
				continue
			}
			return "", fmt.Errorf("%s API call failed: %w", b.name, err)
		}

		if len(completion.Choices) == 0 {
			return "", generation.ErrEmptyResult
		}
		b.logger.DebugContext(ctx, "chat completion finished",
			"tokens", completion.Usage.TotalTokens)
		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, lastErr)
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
