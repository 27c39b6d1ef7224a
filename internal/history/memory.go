// Package history provides the in-memory history store used when no
// database is configured.
package history

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/store"
)

// DefaultMaxRecords is the capacity used when none is configured.
const DefaultMaxRecords = 100

// MemoryStore keeps history records in memory, newest first. Once it holds
// maxRecords records, creating another drops the oldest.
type MemoryStore struct {
	mu         sync.RWMutex
	records    []*domain.HistoryRecord
	maxRecords int
	logger     *slog.Logger
}

var _ store.HistoryStore = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore. maxRecords <= 0 uses DefaultMaxRecords.
func NewMemoryStore(maxRecords int, logger *slog.Logger) *MemoryStore {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		maxRecords: maxRecords,
		logger:     logger.With("component", "history_memory_store"),
	}
}

// Create implements store.HistoryStore.
func (s *MemoryStore) Create(ctx context.Context, fields domain.HistoryFields) (uuid.UUID, error) {
	record := domain.NewHistoryRecord(fields)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append([]*domain.HistoryRecord{record}, s.records...)
	if len(s.records) > s.maxRecords {
		dropped := len(s.records) - s.maxRecords
		s.records = s.records[:s.maxRecords]
		s.logger.Debug("dropped oldest history records", "count", dropped)
	}
	return record.ID, nil
}

// Update implements store.HistoryStore.
func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, fields domain.HistoryFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.findLocked(id)
	if record == nil {
		return store.NotFoundHistory(id)
	}
	record.Apply(fields)
	return nil
}

// Find implements store.HistoryStore.
func (s *MemoryStore) Find(ctx context.Context, id uuid.UUID) (*domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record := s.findLocked(id)
	if record == nil {
		return nil, store.NotFoundHistory(id)
	}
	out := *record
	return &out, nil
}

// List implements store.HistoryStore.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.HistoryRecord, 0, n)
	for _, r := range s.records[:n] {
		out = append(out, *r)
	}
	return out, nil
}

// Delete implements store.HistoryStore.
func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return store.NotFoundHistory(id)
}

func (s *MemoryStore) findLocked(id uuid.UUID) *domain.HistoryRecord {
	for _, r := range s.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}
