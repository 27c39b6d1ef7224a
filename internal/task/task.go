package task

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/domain"
)

// Executor drives one running job to a terminal state. A nil error marks
// the job successful; any error (or panic) marks it failed with the error's
// message. Executors report progress and history links through progress
// and never touch the queue directly.
type Executor interface {
	Execute(ctx context.Context, job domain.Job, progress Progress) error
}

// ExecutorFunc adapts an ordinary function to the Executor interface.
type ExecutorFunc func(ctx context.Context, job domain.Job, progress Progress) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, job domain.Job, progress Progress) error {
	return f(ctx, job, progress)
}

// Progress routes an executor's intermediate state changes back into the
// queue, which applies them under its lock.
type Progress interface {
	// Report sets the job's progress percentage (clamped to 0..100) and text.
	Report(percent int, text string)
	// LinkHistory records the history record the job produced.
	LinkHistory(id uuid.UUID)
}

// ConcurrencyLimiter supplies the concurrency limit. It is read on every
// scheduling pass so changes apply without a restart.
type ConcurrencyLimiter interface {
	MaxConcurrent() int
}

// Transcriber turns audio bytes into text.
type Transcriber interface {
	Recognize(ctx context.Context, audio []byte) (string, error)
}

// RewriteRequest describes one rewrite call.
type RewriteRequest struct {
	Text  string
	Style string
	Model string
	// ExtraInstructions are appended to the style prompt when non-empty.
	ExtraInstructions string
}

// Rewriter rewrites text in a style using a named model.
type Rewriter interface {
	Rewrite(ctx context.Context, req RewriteRequest) (string, error)
}

// DownloadRequest describes one download attempt.
type DownloadRequest struct {
	URL      string
	FileName string
	Platform string
}

// ProgressFunc receives download progress as a percentage.
type ProgressFunc func(percent int)

// Downloader saves the resource at req.URL, reporting progress as it goes.
type Downloader interface {
	Fetch(ctx context.Context, req DownloadRequest, onProgress ProgressFunc) error
}

// HistoryStore persists the text results jobs produce.
type HistoryStore interface {
	Create(ctx context.Context, fields domain.HistoryFields) (uuid.UUID, error)
	// Update applies the non-nil fields; it returns domain.ErrHistoryNotFound
	// for an unknown id.
	Update(ctx context.Context, id uuid.UUID, fields domain.HistoryFields) error
	// Find returns domain.ErrHistoryNotFound for an unknown id.
	Find(ctx context.Context, id uuid.UUID) (*domain.HistoryRecord, error)
}

// LocalAudioStorage resolves and opens locally stored audio files.
type LocalAudioStorage interface {
	ResolveLocalAudioPath(ref string) (string, error)
	Open(path string) (io.ReadCloser, error)
}

// AudioFetcher downloads an audio stream into memory, reading at most limit bytes.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, url, platform string, limit int64) ([]byte, error)
}

// AudioExtractor pulls the audio track out of a platform video.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoURL, platform string) ([]byte, error)
}
