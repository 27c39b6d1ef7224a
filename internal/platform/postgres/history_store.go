package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/platform/logger"
	"github.com/phrazzld/clipscribe/internal/store"
)

const historyColumns = `id, title, platform, original_text, rewritten_text, is_local,
	local_type, local_audio_path, local_source_type, created_at, updated_at`

// HistoryStore implements store.HistoryStore on a PostgreSQL database.
// When maxRecords is positive, Create trims the table to the newest
// maxRecords rows in the same transaction as the insert.
type HistoryStore struct {
	db         *sql.DB
	maxRecords int
	logger     *slog.Logger
}

var _ store.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates a HistoryStore. If logger is nil, a default logger will be used.
func NewHistoryStore(db *sql.DB, maxRecords int, logger *slog.Logger) *HistoryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStore{
		db:         db,
		maxRecords: maxRecords,
		logger:     logger.With(slog.String("component", "history_store")),
	}
}

// maxCreateAttempts bounds how often Create draws a new id after a primary
// key collision.
const maxCreateAttempts = 2

// Create implements store.HistoryStore.
func (s *HistoryStore) Create(ctx context.Context, fields domain.HistoryFields) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	record := domain.NewHistoryRecord(fields)

	var err error
	for attempt := 1; ; attempt++ {
		err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			if err := insertHistory(ctx, tx, record); err != nil {
				return err
			}
			if s.maxRecords <= 0 {
				return nil
			}
			return trimHistory(ctx, tx, s.maxRecords)
		})
		if err == nil || !IsUniqueViolation(err) || attempt == maxCreateAttempts {
			break
		}
		log.Warn("history id already taken, retrying with a new id",
			slog.String("history_id", record.ID.String()))
		record.ID = uuid.New()
	}
	if err != nil {
		log.Error("failed to create history record",
			slog.String("error", err.Error()),
			slog.String("history_id", record.ID.String()))
		return uuid.Nil, MapError(err)
	}

	log.Debug("history record created", slog.String("history_id", record.ID.String()))
	return record.ID, nil
}

// Update implements store.HistoryStore.
func (s *HistoryStore) Update(ctx context.Context, id uuid.UUID, fields domain.HistoryFields) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE history SET
			title = COALESCE($2, title),
			platform = COALESCE($3, platform),
			original_text = COALESCE($4, original_text),
			rewritten_text = COALESCE($5, rewritten_text),
			is_local = COALESCE($6, is_local),
			local_type = COALESCE($7, local_type),
			local_audio_path = COALESCE($8, local_audio_path),
			local_source_type = COALESCE($9, local_source_type),
			updated_at = $10
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		id,
		fields.Title,
		fields.Platform,
		fields.OriginalText,
		fields.RewrittenText,
		fields.IsLocal,
		fields.LocalType,
		fields.LocalAudioPath,
		fields.LocalSourceType,
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to update history record",
			slog.String("error", err.Error()),
			slog.String("history_id", id.String()))
		return MapError(err)
	}
	return checkRowsAffected(result, id)
}

// Find implements store.HistoryStore.
func (s *HistoryStore) Find(ctx context.Context, id uuid.UUID) (*domain.HistoryRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM history WHERE id = $1`

	record, err := scanHistory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFoundHistory(id)
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load history record",
			slog.String("error", err.Error()),
			slog.String("history_id", id.String()))
		return nil, MapError(err)
	}
	return record, nil
}

// List implements store.HistoryStore.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM history ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.HistoryRecord
	for rows.Next() {
		record, err := scanHistory(rows)
		if err != nil {
			return nil, MapError(err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return records, nil
}

// Delete implements store.HistoryStore.
func (s *HistoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return checkRowsAffected(result, id)
}

func insertHistory(ctx context.Context, db store.DBTX, r *domain.HistoryRecord) error {
	query := `INSERT INTO history (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := db.ExecContext(ctx, query,
		r.ID,
		r.Title,
		r.Platform,
		r.OriginalText,
		r.RewrittenText,
		r.IsLocal,
		r.LocalType,
		r.LocalAudioPath,
		r.LocalSourceType,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func trimHistory(ctx context.Context, db store.DBTX, keep int) error {
	query := `
		DELETE FROM history WHERE id IN (
			SELECT id FROM history ORDER BY created_at DESC OFFSET $1
		)
	`
	if _, err := db.ExecContext(ctx, query, keep); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(row rowScanner) (*domain.HistoryRecord, error) {
	var r domain.HistoryRecord
	err := row.Scan(
		&r.ID,
		&r.Title,
		&r.Platform,
		&r.OriginalText,
		&r.RewrittenText,
		&r.IsLocal,
		&r.LocalType,
		&r.LocalAudioPath,
		&r.LocalSourceType,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
