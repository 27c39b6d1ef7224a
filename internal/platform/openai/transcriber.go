package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/phrazzld/clipscribe/internal/config"
	"github.com/phrazzld/clipscribe/internal/task"
)

// DefaultTranscriptionModel is used when the configuration names none.
const DefaultTranscriptionModel = "whisper-1"

// ErrEmptyAudio is returned when there is nothing to transcribe.
var ErrEmptyAudio = errors.New("audio is empty")

// Transcriber implements task.Transcriber on an OpenAI-compatible
// audio transcription endpoint.
type Transcriber struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

var _ task.Transcriber = (*Transcriber)(nil)

// NewTranscriber creates a Transcriber from cfg.
func NewTranscriber(cfg config.TranscriptionConfig, logger *slog.Logger, extra ...option.RequestOption) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("transcription: %w", ErrAPIKeyNotSet)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultTranscriptionModel
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	return &Transcriber{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
		logger:  logger.With("component", "transcriber"),
	}, nil
}

// Recognize implements task.Transcriber.
func (t *Transcriber) Recognize(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "audio.mp3", "audio/mpeg"),
		Model: openai.AudioModel(t.model),
	})
	if err != nil {
		return "", fmt.Errorf("speech recognition failed: %w", err)
	}

	t.logger.DebugContext(ctx, "audio transcribed",
		"audio_bytes", len(audio),
		"text_length", len(resp.Text))
	return strings.TrimSpace(resp.Text), nil
}
