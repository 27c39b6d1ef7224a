// Package parser is a client for the media parser service, which extracts
// audio tracks from platform videos with ffmpeg and returns them base64
// encoded.
package parser

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/clipscribe/internal/task"
)

// DefaultTimeout bounds one extraction; the service downloads the whole video.
const DefaultTimeout = 180 * time.Second

// ErrExtractionFailed is returned when the service reports failure.
var ErrExtractionFailed = errors.New("audio extraction failed")

type extractAudioRequest struct {
	VideoURL string `json:"video_url"`
	Platform string `json:"platform"`
}

type extractAudioResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AudioBase64 string `json:"audio_base64"`
	AudioSize   int64  `json:"audio_size"`
	Duration    int    `json:"duration"`
}

// Client implements task.AudioExtractor against the parser service.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

var _ task.AudioExtractor = (*Client)(nil)

// NewClient creates a Client for the service at baseURL. A nil httpClient
// uses a default client.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: timeout,
		logger:  logger.With("component", "parser_client"),
	}
}

// ExtractAudio implements task.AudioExtractor.
func (c *Client) ExtractAudio(ctx context.Context, videoURL, platform string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(extractAudioRequest{VideoURL: videoURL, Platform: platform})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract-audio", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", ErrExtractionFailed, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var out extractAudioResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", ErrExtractionFailed, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: %s", ErrExtractionFailed, out.Message)
	}

	audio, err := base64.StdEncoding.DecodeString(out.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid audio payload: %v", ErrExtractionFailed, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrExtractionFailed)
	}

	c.logger.DebugContext(ctx, "audio extracted",
		"platform", platform,
		"bytes", len(audio),
		"duration_seconds", out.Duration)
	return audio, nil
}

// Health reports whether the service answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("parser service unhealthy: %s", resp.Status)
	}
	return nil
}
