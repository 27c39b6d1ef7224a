package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	plain := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"unique", &pgconn.PgError{Code: uniqueViolationCode}, store.ErrDuplicate},
		{"check", &pgconn.PgError{Code: checkViolationCode, ConstraintName: "history_local_type_check"}, store.ErrInvalidEntity},
		{"not null", &pgconn.PgError{Code: notNullViolationCode, ColumnName: "title"}, store.ErrInvalidEntity},
		{"wrapped unique", fmt.Errorf("insert history: %w", &pgconn.PgError{Code: uniqueViolationCode}), store.ErrDuplicate},
		{"unmapped", plain, plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "original error must stay in the chain")
		})
	}

	assert.NoError(t, MapError(nil))
}

func TestMapErrorKeepsConstraintName(t *testing.T) {
	t.Parallel()

	err := MapError(&pgconn.PgError{Code: checkViolationCode, ConstraintName: "history_local_type_check"})
	assert.Contains(t, err.Error(), "history_local_type_check")
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: checkViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()
	id := uuid.New()

	require.NoError(t, checkRowsAffected(fakeResult{rows: 1}, id))

	err := checkRowsAffected(fakeResult{rows: 0}, id)
	assert.ErrorIs(t, err, domain.ErrHistoryNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = checkRowsAffected(fakeResult{err: errors.New("driver")}, id)
	assert.ErrorContains(t, err, "rows affected")

	assert.Error(t, checkRowsAffected(nil, id))
}

func TestMigrateUnknownCommand(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("pgx", "postgres://localhost:1/none")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	err = Migrate(t.Context(), db, "sideways", nil)
	assert.ErrorContains(t, err, "unknown migration command")
}

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_create_history.sql", entries[0].Name())
}
