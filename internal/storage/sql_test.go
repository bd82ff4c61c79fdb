package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/baaskit/internal/logging"
)

func openSQLite(t *testing.T, opts ...Option) *SQL {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "storage.db")
	s, err := OpenSQL(context.Background(), DialectSQLite, dsn, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQL_SQLiteRoundTrip(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	_, ok := s.GetItem(ctx, "Parse/app/installationId")
	assert.False(t, ok)

	s.SetItem(ctx, "Parse/app/installationId", "iid")
	s.SetItem(ctx, "Parse/app/installationId", "iid-2")
	v, ok := s.GetItem(ctx, "Parse/app/installationId")
	require.True(t, ok)
	assert.Equal(t, "iid-2", v)

	s.RemoveItem(ctx, "Parse/app/installationId")
	_, ok = s.GetItem(ctx, "Parse/app/installationId")
	assert.False(t, ok)

	s.SetItem(ctx, "a", "1")
	s.SetItem(ctx, "b", "2")
	s.Clear(ctx)
	_, ok = s.GetItem(ctx, "a")
	assert.False(t, ok)
}

func TestSQL_SQLiteCapacity(t *testing.T) {
	var buf bytes.Buffer
	s := openSQLite(t, WithCapacity(8), WithLogger(logging.NewJSONLogger(&buf, "debug")))
	ctx := context.Background()

	s.SetItem(ctx, "ab", "1234")
	s.SetItem(ctx, "cd", "12345")
	_, ok := s.GetItem(ctx, "cd")
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "write dropped")

	s.SetItem(ctx, "ab", "123456")
	v, ok := s.GetItem(ctx, "ab")
	assert.True(t, ok)
	assert.Equal(t, "123456", v)
}

func TestSQL_SQLiteMigrationsIdempotent(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "storage.db")
	for i := 0; i < 2; i++ {
		s, err := OpenSQL(context.Background(), DialectSQLite, dsn)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
}

func TestOpenSQL_UnknownDialect(t *testing.T) {
	_, err := OpenSQL(context.Background(), Dialect("mysql"), "dsn")
	require.ErrorIs(t, err, ErrUnknownDialect)
}

func TestRunMigrations_UsesDialectDir(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return errors.New("stop")
	}

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = RunMigrations(context.Background(), db, DialectPostgres)
	require.EqualError(t, err, "stop")
	assert.Equal(t, "postgres", gotDir)
}

func TestSQL_PostgresQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQL(db, DialectPostgres)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(OCTET_LENGTH(key) + OCTET_LENGTH(value)), 0) FROM storage_items`)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM storage_items WHERE key = $1`)).
		WithArgs("k").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO storage_items \(key, value\) VALUES \(\$1, \$2\)`).
		WithArgs("k", "v").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	s.SetItem(ctx, "k", "v")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_CapacityRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQL(db, DialectSQLite, WithCapacity(10))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(8))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM storage_items WHERE key = ?`)).
		WithArgs("k").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	s.SetItem(context.Background(), "k", "vv")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_FailuresAreSwallowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	s := NewSQL(db, DialectSQLite, WithLogger(logging.NewJSONLogger(&buf, "debug")))
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value`).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectExec(`DELETE FROM storage_items WHERE key`).WillReturnError(errors.New("locked"))
	mock.ExpectExec(`DELETE FROM storage_items`).WillReturnError(errors.New("locked"))
	mock.ExpectBegin().WillReturnError(errors.New("no tx"))

	_, ok := s.GetItem(ctx, "k")
	assert.False(t, ok)
	s.RemoveItem(ctx, "k")
	s.Clear(ctx)
	s.SetItem(ctx, "k", "v")

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, buf.String(), "disk I/O error")
	assert.Contains(t, buf.String(), "storage write failed")
}

func TestRebind(t *testing.T) {
	pg := newItemRepository(nil, DialectPostgres)
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := newItemRepository(nil, DialectSQLite)
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
