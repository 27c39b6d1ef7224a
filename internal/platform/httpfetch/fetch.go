// Package httpfetch downloads media over HTTP with the platform headers the
// video sites require. Client saves files for download jobs and reads audio
// streams into memory for extract jobs.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/phrazzld/clipscribe/internal/media"
	"github.com/phrazzld/clipscribe/internal/task"
	"github.com/spf13/afero"
)

// Progress is reported every reportPercentStep percent when the size is
// known, and every reportByteStep bytes otherwise.
const (
	reportPercentStep = 2.0
	reportByteStep    = 512 * 1024
)

// DefaultTimeout bounds one download.
const DefaultTimeout = 300 * time.Second

// ErrHTTPStatus is returned for non-2xx responses.
var ErrHTTPStatus = errors.New("HTTP error")

// Options configures a Client.
type Options struct {
	SaveDir   string
	UserAgent string
	Timeout   time.Duration
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	// Fs overrides the OS filesystem used for saved files.
	Fs afero.Fs
}

// Client implements task.Downloader and task.AudioFetcher.
type Client struct {
	http      *http.Client
	fs        afero.Fs
	saveDir   string
	userAgent string
	timeout   time.Duration
	logger    *slog.Logger
}

var (
	_ task.Downloader   = (*Client)(nil)
	_ task.AudioFetcher = (*Client)(nil)
)

// New creates a Client.
func New(opts Options, logger *slog.Logger) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:      opts.HTTPClient,
		fs:        opts.Fs,
		saveDir:   opts.SaveDir,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		logger:    logger.With("component", "http_fetch"),
	}
}

// Fetch implements task.Downloader. The file is written to the save
// directory; a partial file is removed when the download fails.
func (c *Client) Fetch(ctx context.Context, req task.DownloadRequest, onProgress task.ProgressFunc) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.get(ctx, req.URL, req.Platform)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.fs.MkdirAll(c.saveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}
	target := filepath.Join(c.saveDir, fileName(req.FileName, req.URL))

	f, err := c.fs.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	reporter := newReporter(resp.ContentLength, onProgress)
	written, copyErr := io.Copy(f, io.TeeReader(resp.Body, reporter))
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = c.fs.Remove(target)
		return fmt.Errorf("download failed: %w", err)
	}

	c.logger.InfoContext(ctx, "file downloaded",
		"path", target,
		"bytes", written,
		"platform", req.Platform)
	return nil
}

// FetchAudio implements task.AudioFetcher.
func (c *Client) FetchAudio(ctx context.Context, rawURL, platform string, limit int64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.get(ctx, rawURL, platform)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("audio download failed: %w", err)
	}
	c.logger.DebugContext(ctx, "audio fetched", "bytes", len(data), "platform", platform)
	return data, nil
}

func (c *Client) get(ctx context.Context, rawURL, platform string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid download URL: %w", err)
	}
	req.Header = media.Headers(platform, c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}
	return resp, nil
}

// fileName returns a safe base name for the saved file, falling back to the
// last URL path segment.
func fileName(name, rawURL string) string {
	name = strings.TrimSpace(filepath.Base(filepath.FromSlash(name)))
	if name != "" && name != "." && name != string(filepath.Separator) {
		return name
	}
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return "download"
}

// reporter converts bytes written into throttled percentage callbacks.
type reporter struct {
	total      int64
	downloaded int64
	last       int64
	onProgress task.ProgressFunc
}

func newReporter(total int64, onProgress task.ProgressFunc) *reporter {
	return &reporter{total: total, onProgress: onProgress}
}

func (r *reporter) Write(p []byte) (int, error) {
	r.downloaded += int64(len(p))
	if r.onProgress == nil {
		return len(p), nil
	}

	if r.total > 0 {
		diff := float64(r.downloaded-r.last) / float64(r.total) * 100
		if diff >= reportPercentStep {
			r.last = r.downloaded
			r.onProgress(int(float64(r.downloaded) / float64(r.total) * 100))
		}
	} else if r.downloaded-r.last >= reportByteStep {
		r.last = r.downloaded
		r.onProgress(0)
	}
	return len(p), nil
}
