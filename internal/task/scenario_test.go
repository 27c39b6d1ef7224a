package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWiredQueue builds a Queue backed by the real executors and mock capabilities.
func newWiredQueue(t *testing.T, limit int, downloader *MockDownloader, history *MockHistoryStore) (*Queue, *recordingHandler) {
	t.Helper()

	extract, err := NewExtractExecutor(&MockTranscriber{}, history, &MockLocalAudioStorage{},
		&MockAudioFetcher{}, &MockAudioExtractor{}, testLogger())
	require.NoError(t, err)
	rewrite, err := NewRewriteExecutor(&MockRewriter{}, history, "", testLogger())
	require.NoError(t, err)
	download, err := NewDownloadExecutor(downloader, testLogger())
	require.NoError(t, err)

	handler := &recordingHandler{}
	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler(handler)

	q, err := NewQueue(&StaticLimiter{Limit: limit}, map[domain.JobKind]Executor{
		domain.JobKindExtract:  extract,
		domain.JobKindRewrite:  rewrite,
		domain.JobKindDownload: download,
	}, DefaultQueueConfig(), emitter, testLogger())
	require.NoError(t, err)
	q.afterFunc = func(time.Duration, func()) {}
	return q, handler
}

func waitIdle(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, q.Wait(ctx))
}

func TestScenarioDownloadBackupSucceeds(t *testing.T) {
	t.Parallel()

	downloader := &MockDownloader{
		FetchFn: func(ctx context.Context, req DownloadRequest, onProgress ProgressFunc) error {
			if req.URL == "https://douyin/primary.mp4" {
				onProgress(30)
				return errors.New("connection reset")
			}
			onProgress(60)
			return nil
		},
	}
	q, handler := newWiredQueue(t, 1, downloader, NewMockHistoryStore())

	id, err := q.Submit(domain.JobSpec{
		Kind:     domain.JobKindDownload,
		Platform: domain.PlatformDouyin,
		Params: domain.JobParams{Download: &domain.DownloadParams{
			URL:        "https://douyin/primary.mp4",
			FileName:   "v.mp4",
			BackupURLs: []string{"https://douyin/backup.mp4"},
		}},
	})
	require.NoError(t, err)
	waitIdle(t, q)

	job, ok := q.Job(id)
	require.True(t, ok)
	assert.Equal(t, domain.JobStatusSuccess, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, ProgressTextDone, job.ProgressText)
	assert.Empty(t, job.Error)
	assert.NotContains(t, handler.statuses(id), domain.JobStatusError)
	assert.NotContains(t, handler.types(id), events.EventTypeFailed)
}

func TestScenarioRewriteWithoutText(t *testing.T) {
	t.Parallel()

	q, handler := newWiredQueue(t, 1, &MockDownloader{}, NewMockHistoryStore())

	id, err := q.Submit(domain.JobSpec{Kind: domain.JobKindRewrite, Title: "no text yet"})
	require.NoError(t, err)
	waitIdle(t, q)

	job, ok := q.Job(id)
	require.True(t, ok)
	assert.Equal(t, domain.JobStatusError, job.Status)
	assert.Equal(t, ErrNoSourceText.Error(), job.Error)
	assert.Contains(t, handler.types(id), events.EventTypeFailed)
}

func TestScenarioExtractThenRewrite(t *testing.T) {
	t.Parallel()

	history := NewMockHistoryStore()
	q, _ := newWiredQueue(t, 2, &MockDownloader{}, history)

	record := domain.NewHistoryRecord(domain.HistoryFields{Title: domain.Ptr("talk")})
	history.Put(*record)

	extractID, err := q.Submit(domain.JobSpec{
		Kind:      domain.JobKindExtract,
		Platform:  domain.PlatformBilibili,
		HistoryID: record.ID,
		VideoInfo: &domain.VideoInfo{AudioStream: &domain.AudioStream{URL: "https://upos/a.m4s"}},
	})
	require.NoError(t, err)
	waitIdle(t, q)
	assert.Equal(t, domain.JobStatusSuccess, jobStatus(q, extractID))

	rewriteID, err := q.Submit(domain.JobSpec{Kind: domain.JobKindRewrite, HistoryID: record.ID})
	require.NoError(t, err)
	waitIdle(t, q)
	assert.Equal(t, domain.JobStatusSuccess, jobStatus(q, rewriteID))

	final, _ := history.Get(record.ID)
	assert.Equal(t, "transcribed text", final.OriginalText)
	assert.Equal(t, "rewritten: transcribed text", final.RewrittenText)
}
