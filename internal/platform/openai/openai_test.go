package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go/v3/option"
	"github.com/phrazzld/clipscribe/internal/config"
	"github.com/phrazzld/clipscribe/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chatReply(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	})
	return string(body)
}

func TestNewChatBackendValidation(t *testing.T) {
	t.Parallel()

	_, err := NewChatBackend("doubao", config.OpenAICompatibleLLM{Model: "m"}, ChatOptions{}, nil)
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewChatBackend("doubao", config.OpenAICompatibleLLM{APIKey: "k"}, ChatOptions{}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestChatBackendComplete(t *testing.T) {
	t.Parallel()

	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatReply("rewritten text"))
	}))
	defer srv.Close()

	b, err := NewChatBackend("doubao",
		config.OpenAICompatibleLLM{APIKey: "secret-key", Model: "doubao-test", BaseURL: srv.URL + "/"},
		ChatOptions{}, discardLogger(), option.WithMaxRetries(0))
	require.NoError(t, err)

	out, err := b.Complete(context.Background(), "sys", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "rewritten text", out)
	assert.Equal(t, "Bearer secret-key", auth)
	assert.Equal(t, "doubao-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "user prompt", got.Messages[1].Content)
}

func TestChatBackendRetriesRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
			return
		}
		_, _ = io.WriteString(w, chatReply("ok"))
	}))
	defer srv.Close()

	b, err := NewChatBackend("deepseek",
		config.OpenAICompatibleLLM{APIKey: "k", Model: "m", BaseURL: srv.URL + "/"},
		ChatOptions{MaxRetries: 2, BaseBackoff: time.Millisecond}, discardLogger(), option.WithMaxRetries(0))
	require.NoError(t, err)

	out, err := b.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChatBackendServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad model","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	b, err := NewChatBackend("qianwen",
		config.OpenAICompatibleLLM{APIKey: "k", Model: "m", BaseURL: srv.URL + "/"},
		ChatOptions{MaxRetries: 3, BaseBackoff: time.Millisecond}, discardLogger(), option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = b.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qianwen API call failed")
}

func TestTranscriberRecognize(t *testing.T) {
	t.Parallel()

	var model string
	var fileBytes []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/audio/transcriptions"), r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		model = r.FormValue("model")
		f, _, err := r.FormFile("file")
		if assert.NoError(t, err) {
			fileBytes, _ = io.ReadAll(f)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  hello world  "}`)
	}))
	defer srv.Close()

	tr, err := NewTranscriber(config.TranscriptionConfig{APIKey: "k", BaseURL: srv.URL + "/"}, discardLogger(), option.WithMaxRetries(0))
	require.NoError(t, err)

	text, err := tr.Recognize(context.Background(), []byte("RIFFdata"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, DefaultTranscriptionModel, model)
	assert.Equal(t, []byte("RIFFdata"), fileBytes)
}

func TestTranscriberValidation(t *testing.T) {
	t.Parallel()

	_, err := NewTranscriber(config.TranscriptionConfig{}, nil)
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)

	tr, err := NewTranscriber(config.TranscriptionConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1/"}, nil)
	require.NoError(t, err)
	_, err = tr.Recognize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyAudio)
}
