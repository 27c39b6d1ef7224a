package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/media"
)

// Download progress texts
const (
	ProgressTextPreparing = "preparing download..."
	ProgressTextDone      = "done"
)

// DownloadExecutor downloads a job's file, falling back through its backup
// URLs.
type DownloadExecutor struct {
	downloader Downloader
	logger     *slog.Logger
}

// NewDownloadExecutor creates a DownloadExecutor.
func NewDownloadExecutor(downloader Downloader, logger *slog.Logger) (*DownloadExecutor, error) {
	if downloader == nil {
		return nil, ErrNilDownloader
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	return &DownloadExecutor{
		downloader: downloader,
		logger:     logger.With("component", "download_executor"),
	}, nil
}

// Execute implements Executor. URLs are tried in order; when all fail the
// error of the last attempt is returned.
func (e *DownloadExecutor) Execute(ctx context.Context, job domain.Job, progress Progress) error {
	log := e.logger.With("job_id", job.ID, "job_kind", job.Kind)

	params := job.Params.Download
	if params == nil || params.URL == "" {
		return ErrNoDownloadURL
	}

	switch job.Platform {
	case domain.PlatformBilibili, domain.PlatformDouyin, domain.PlatformXiaohongshu:
	default:
		return fmt.Errorf("%w: %q", ErrDownloadPlatform, job.Platform)
	}

	urls := append([]string{params.URL}, params.BackupURLs...)
	if job.Platform == domain.PlatformBilibili {
		urls = media.FilterBilibiliURLs(urls)
	}

	progress.Report(0, ProgressTextPreparing)
	onProgress := func(percent int) {
		percent = clampPercent(percent)
		progress.Report(percent, fmt.Sprintf("%d%%", percent))
	}

	var lastErr error
	for i, url := range urls {
		err := e.downloader.Fetch(ctx, DownloadRequest{
			URL:      url,
			FileName: params.FileName,
			Platform: job.Platform,
		}, onProgress)
		if err == nil {
			progress.Report(100, ProgressTextDone)
			log.Info("download finished", "attempt", i+1, "file_name", params.FileName)
			return nil
		}
		lastErr = err
		log.Warn("download attempt failed", "attempt", i+1, "of", len(urls), "error", err)
	}

	return lastErr
}
