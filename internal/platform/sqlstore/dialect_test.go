package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskmanager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	query := "UPDATE tasks SET title = ? WHERE id = ? AND version = ?"

	assert.Equal(t, query, SQLite.Rebind(query))
	assert.Equal(t, "UPDATE tasks SET title = $1 WHERE id = $2 AND version = $3", Postgres.Rebind(query))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, "pgx", d.DriverName)

	d, err = DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", d.DriverName)

	_, err = DialectFor("memory")
	assert.Error(t, err, "the memory driver is not a SQL dialect")
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: store.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: uniqueViolationCode}, want: store.ErrDuplicate},
		{name: "check violation", err: &pgconn.PgError{Code: checkViolationCode}, want: store.ErrInvalidEntity},
		{name: "not null violation", err: &pgconn.PgError{Code: notNullViolationCode}, want: store.ErrInvalidEntity},
		{name: "foreign key violation", err: &pgconn.PgError{Code: foreignKeyViolationCode}, want: store.ErrInvalidEntity},
		{name: "anything else", err: errors.New("connection refused"), want: store.ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(fmt.Errorf("wrapped: %w", tt.err))
			assert.ErrorIs(t, mapped, tt.want)
		})
	}

	assert.NoError(t, MapError(nil))
}
