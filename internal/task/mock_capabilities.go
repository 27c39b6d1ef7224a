package task

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/domain"
)

// MockTranscriber implements Transcriber for testing.
type MockTranscriber struct {
	RecognizeFn func(ctx context.Context, audio []byte) (string, error)
}

// Recognize calls RecognizeFn, or returns a fixed transcript.
func (m *MockTranscriber) Recognize(ctx context.Context, audio []byte) (string, error) {
	if m.RecognizeFn != nil {
		return m.RecognizeFn(ctx, audio)
	}
	return "transcribed text", nil
}

// MockRewriter implements Rewriter for testing and records its requests.
type MockRewriter struct {
	mu        sync.Mutex
	Requests  []RewriteRequest
	RewriteFn func(ctx context.Context, req RewriteRequest) (string, error)
}

// Rewrite records req and calls RewriteFn, or echoes the text with a prefix.
func (m *MockRewriter) Rewrite(ctx context.Context, req RewriteRequest) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.RewriteFn != nil {
		return m.RewriteFn(ctx, req)
	}
	return "rewritten: " + req.Text, nil
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockRewriter) LastRequest() RewriteRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return RewriteRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// MockDownloader implements Downloader for testing and records attempted URLs.
type MockDownloader struct {
	mu      sync.Mutex
	URLs    []string
	FetchFn func(ctx context.Context, req DownloadRequest, onProgress ProgressFunc) error
}

// Fetch records the URL and calls FetchFn, or succeeds immediately.
func (m *MockDownloader) Fetch(ctx context.Context, req DownloadRequest, onProgress ProgressFunc) error {
	m.mu.Lock()
	m.URLs = append(m.URLs, req.URL)
	m.mu.Unlock()
	if m.FetchFn != nil {
		return m.FetchFn(ctx, req, onProgress)
	}
	return nil
}

// Attempts returns a copy of the attempted URLs.
func (m *MockDownloader) Attempts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.URLs...)
}

// MockHistoryStore is an in-memory HistoryStore for testing. The Fn fields
// override the default behavior.
type MockHistoryStore struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*domain.HistoryRecord
	CreateFn func(ctx context.Context, fields domain.HistoryFields) (uuid.UUID, error)
	UpdateFn func(ctx context.Context, id uuid.UUID, fields domain.HistoryFields) error
	FindFn   func(ctx context.Context, id uuid.UUID) (*domain.HistoryRecord, error)
}

// NewMockHistoryStore creates an empty MockHistoryStore.
func NewMockHistoryStore() *MockHistoryStore {
	return &MockHistoryStore{records: make(map[uuid.UUID]*domain.HistoryRecord)}
}

// Put stores a copy of record.
func (m *MockHistoryStore) Put(record domain.HistoryRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = &record
}

// Get returns a copy of the record with id.
func (m *MockHistoryStore) Get(id uuid.UUID) (domain.HistoryRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return domain.HistoryRecord{}, false
	}
	return *r, true
}

// Create implements HistoryStore.
func (m *MockHistoryStore) Create(ctx context.Context, fields domain.HistoryFields) (uuid.UUID, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, fields)
	}
	record := domain.NewHistoryRecord(fields)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	return record.ID, nil
}

// Update implements HistoryStore.
func (m *MockHistoryStore) Update(ctx context.Context, id uuid.UUID, fields domain.HistoryFields) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, fields)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return domain.ErrHistoryNotFound
	}
	r.Apply(fields)
	return nil
}

// Find implements HistoryStore.
func (m *MockHistoryStore) Find(ctx context.Context, id uuid.UUID) (*domain.HistoryRecord, error) {
	if m.FindFn != nil {
		return m.FindFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, domain.ErrHistoryNotFound
	}
	out := *r
	return &out, nil
}

// MockLocalAudioStorage implements LocalAudioStorage over an in-memory map
// of path to contents.
type MockLocalAudioStorage struct {
	Files     map[string][]byte
	ResolveFn func(ref string) (string, error)
}

// ResolveLocalAudioPath calls ResolveFn, or returns ref unchanged.
func (m *MockLocalAudioStorage) ResolveLocalAudioPath(ref string) (string, error) {
	if m.ResolveFn != nil {
		return m.ResolveFn(ref)
	}
	return ref, nil
}

// Open returns the contents stored for path.
func (m *MockLocalAudioStorage) Open(path string) (io.ReadCloser, error) {
	data, ok := m.Files[path]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// MockAudioFetcher implements AudioFetcher for testing.
type MockAudioFetcher struct {
	mu           sync.Mutex
	URLs         []string
	FetchAudioFn func(ctx context.Context, url, platform string, limit int64) ([]byte, error)
}

// FetchAudio records url and calls FetchAudioFn, or returns fixed bytes.
func (m *MockAudioFetcher) FetchAudio(ctx context.Context, url, platform string, limit int64) ([]byte, error) {
	m.mu.Lock()
	m.URLs = append(m.URLs, url)
	m.mu.Unlock()
	if m.FetchAudioFn != nil {
		return m.FetchAudioFn(ctx, url, platform, limit)
	}
	return []byte("audio"), nil
}

// MockAudioExtractor implements AudioExtractor for testing.
type MockAudioExtractor struct {
	mu             sync.Mutex
	URLs           []string
	ExtractAudioFn func(ctx context.Context, videoURL, platform string) ([]byte, error)
}

// ExtractAudio records videoURL and calls ExtractAudioFn, or returns fixed bytes.
func (m *MockAudioExtractor) ExtractAudio(ctx context.Context, videoURL, platform string) ([]byte, error) {
	m.mu.Lock()
	m.URLs = append(m.URLs, videoURL)
	m.mu.Unlock()
	if m.ExtractAudioFn != nil {
		return m.ExtractAudioFn(ctx, videoURL, platform)
	}
	return []byte("extracted audio"), nil
}

// StaticLimiter is a ConcurrencyLimiter with a settable value.
type StaticLimiter struct {
	mu    sync.Mutex
	Limit int
}

// MaxConcurrent implements ConcurrencyLimiter.
func (l *StaticLimiter) MaxConcurrent() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Limit
}

// Set changes the limit.
func (l *StaticLimiter) Set(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Limit = n
}
