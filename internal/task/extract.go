package task

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/media"
)

// MaxAudioBytes caps the audio handed to the transcriber. Longer audio is
// truncated.
const MaxAudioBytes = 5 * 1024 * 1024

// ExtractExecutor transcribes a job's audio and stores the text in history.
type ExtractExecutor struct {
	transcriber Transcriber
	history     HistoryStore
	storage     LocalAudioStorage
	fetcher     AudioFetcher
	extractor   AudioExtractor
	logger      *slog.Logger
}

// NewExtractExecutor creates an ExtractExecutor. All dependencies are required.
func NewExtractExecutor(
	transcriber Transcriber,
	history HistoryStore,
	storage LocalAudioStorage,
	fetcher AudioFetcher,
	extractor AudioExtractor,
	logger *slog.Logger,
) (*ExtractExecutor, error) {
	if transcriber == nil {
		return nil, ErrNilTranscriber
	}
	if history == nil {
		return nil, ErrNilHistory
	}
	if storage == nil {
		return nil, ErrNilStorage
	}
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if extractor == nil {
		return nil, ErrNilExtractor
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &ExtractExecutor{
		transcriber: transcriber,
		history:     history,
		storage:     storage,
		fetcher:     fetcher,
		extractor:   extractor,
		logger:      logger.With("component", "extract_executor"),
	}, nil
}

// Execute implements Executor.
func (e *ExtractExecutor) Execute(ctx context.Context, job domain.Job, progress Progress) error {
	log := e.logger.With("job_id", job.ID, "job_kind", job.Kind)

	if job.LocalData.IsLocalAudio() {
		return e.extractLocal(ctx, job, progress, log)
	}
	return e.extractRemote(ctx, job, progress, log)
}

func (e *ExtractExecutor) extractLocal(
	ctx context.Context,
	job domain.Job,
	progress Progress,
	log *slog.Logger,
) error {
	path, err := e.storage.ResolveLocalAudioPath(job.LocalData.LocalAudioPath)
	if err != nil {
		return err
	}

	rc, err := e.storage.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	audio, err := io.ReadAll(io.LimitReader(rc, MaxAudioBytes))
	if err != nil {
		return fmt.Errorf("failed to read local audio: %w", err)
	}
	log.Debug("read local audio", "bytes", len(audio))

	text, err := e.recognize(ctx, audio)
	if err != nil {
		return err
	}

	id, err := e.history.Create(ctx, domain.HistoryFields{
		Title:           domain.Ptr(job.Title),
		Platform:        domain.Ptr(domain.PlatformLocal),
		OriginalText:    domain.Ptr(text),
		IsLocal:         domain.Ptr(true),
		LocalType:       domain.Ptr(domain.LocalTypeAudio),
		LocalAudioPath:  domain.Ptr(job.LocalData.LocalAudioPath),
		LocalSourceType: domain.Ptr(job.LocalData.LocalSourceType),
	})
	if err != nil {
		return err
	}
	progress.LinkHistory(id)

	log.Info("local audio transcribed", "history_id", id, "chars", len(text))
	return nil
}

func (e *ExtractExecutor) extractRemote(
	ctx context.Context,
	job domain.Job,
	progress Progress,
	log *slog.Logger,
) error {
	audio, err := e.loadRemoteAudio(ctx, job, log)
	if err != nil {
		return err
	}
	if len(audio) > MaxAudioBytes {
		audio = audio[:MaxAudioBytes]
	}

	text, err := e.recognize(ctx, audio)
	if err != nil {
		return err
	}

	if job.HistoryID != uuid.Nil {
		if err := e.history.Update(ctx, job.HistoryID, domain.HistoryFields{
			OriginalText: domain.Ptr(text),
		}); err != nil {
			return err
		}
		log.Info("audio transcribed", "history_id", job.HistoryID, "chars", len(text))
		return nil
	}

	id, err := e.history.Create(ctx, domain.HistoryFields{
		Title:        domain.Ptr(job.Title),
		Platform:     domain.Ptr(job.Platform),
		OriginalText: domain.Ptr(text),
	})
	if err != nil {
		return err
	}
	progress.LinkHistory(id)

	log.Info("audio transcribed", "history_id", id, "chars", len(text))
	return nil
}

// loadRemoteAudio picks the audio source for the job's platform and fetches it.
func (e *ExtractExecutor) loadRemoteAudio(ctx context.Context, job domain.Job, log *slog.Logger) ([]byte, error) {
	info := job.VideoInfo
	if info == nil {
		info = &domain.VideoInfo{}
	}
	stream := info.AudioStream

	switch job.Platform {
	case domain.PlatformBilibili:
		if stream == nil || stream.URL == "" {
			return nil, ErrNoAudioSource
		}
		url := stream.URL
		if media.IsPCDN(url) && len(stream.BackupURLs) > 0 {
			log.Debug("primary audio url is a PCDN node, using backup")
			url = stream.BackupURLs[0]
		}
		return e.fetcher.FetchAudio(ctx, url, job.Platform, MaxAudioBytes)

	case domain.PlatformDouyin:
		if stream == nil || stream.URL == "" {
			return nil, ErrNoAudioSource
		}
		if stream.IsVideoAudio {
			return e.extractor.ExtractAudio(ctx, stream.URL, job.Platform)
		}
		return e.fetcher.FetchAudio(ctx, stream.URL, job.Platform, MaxAudioBytes)

	case domain.PlatformXiaohongshu:
		if !info.IsVideo {
			return nil, ErrImageNote
		}
		source := info.VideoURL
		if stream != nil && stream.URL != "" {
			source = stream.URL
		}
		if source == "" {
			return nil, ErrNoAudioSource
		}
		return e.extractor.ExtractAudio(ctx, source, job.Platform)

	default:
		return nil, ErrUnsupportedPlatform
	}
}

func (e *ExtractExecutor) recognize(ctx context.Context, audio []byte) (string, error) {
	text, err := e.transcriber.Recognize(ctx, audio)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return domain.TextNotRecognized, nil
	}
	return text, nil
}
