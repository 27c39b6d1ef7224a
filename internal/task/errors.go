package task

import "errors"

// Construction errors.
var (
	ErrNilLimiter      = errors.New("concurrency limiter cannot be nil")
	ErrNilEmitter      = errors.New("event emitter cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrMissingExecutor = errors.New("no executor registered for job kind")
	ErrNilTranscriber  = errors.New("transcriber cannot be nil")
	ErrNilRewriter     = errors.New("rewriter cannot be nil")
	ErrNilDownloader   = errors.New("downloader cannot be nil")
	ErrNilHistory      = errors.New("history store cannot be nil")
	ErrNilStorage      = errors.New("local audio storage cannot be nil")
	ErrNilFetcher      = errors.New("audio fetcher cannot be nil")
	ErrNilExtractor    = errors.New("audio extractor cannot be nil")
)

// Queue operation errors. None of them change queue state.
var (
	ErrJobNotFound  = errors.New("job not found")
	ErrJobRunning   = errors.New("job is running")
	ErrNotRetryable = errors.New("only failed jobs can be retried")
)

// Job input errors; their messages become the failed job's error text.
var (
	ErrNoSourceText        = errors.New("text must be extracted first")
	ErrNoAudioSource       = errors.New("no audio source available")
	ErrUnsupportedPlatform = errors.New("extraction for this platform is not implemented yet")
	ErrDownloadPlatform    = errors.New("downloads are not supported for this platform")
	ErrImageNote           = errors.New("image notes have no audio to extract")
	ErrEmptyText           = errors.New("text to rewrite is empty")
	ErrNoDownloadURL       = errors.New("download url is required")
	ErrExecutorPanic       = errors.New("executor panicked")
)
