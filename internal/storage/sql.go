package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/baaskit/internal/dbx"
	"github.com/dmitrijs2005/baaskit/internal/logging"
	"github.com/dmitrijs2005/baaskit/internal/storage/migrations"
)

// Dialect is also the database/sql driver name.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

var ErrUnknownDialect = errors.New("unknown sql dialect")

func (d Dialect) gooseDialect() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite3"
}

func (d Dialect) migrationsDir() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema for dialect.
func RunMigrations(ctx context.Context, db *sql.DB, dialect Dialect) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dialect.gooseDialect()); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, dialect.migrationsDir())
}

// SQL persists items in a storage_items table.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	opts    options
}

// OpenSQL opens dsn with the dialect's driver and migrates it.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*SQL, error) {
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := RunMigrations(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return NewSQL(db, dialect, opts...), nil
}

// NewSQL wraps an already migrated database.
func NewSQL(db *sql.DB, dialect Dialect, opts ...Option) *SQL {
	return &SQL{db: db, dialect: dialect, opts: buildOptions(opts)}
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) logger() logging.Logger {
	return s.opts.logger
}

func (s *SQL) GetItem(ctx context.Context, key string) (string, bool) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	v, ok, err := newItemRepository(s.db, s.dialect).Get(ctx, key)
	if err != nil {
		s.logger().Warn(ctx, "storage read failed", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

// SetItem checks capacity and upserts in one transaction.
func (s *SQL) SetItem(ctx context.Context, key, value string) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := newItemRepository(tx, s.dialect)
		total, err := repo.Size(ctx)
		if err != nil {
			return err
		}
		next := total + itemSize(key, value)
		old, ok, err := repo.Get(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			next -= itemSize(key, old)
		}
		if next > s.opts.capacity {
			return errCapacityExceeded
		}
		return repo.Set(ctx, key, value)
	})
	switch {
	case errors.Is(err, errCapacityExceeded):
		s.logger().Warn(ctx, "storage capacity exceeded, write dropped", "key", key, "capacity", s.opts.capacity)
	case err != nil:
		s.logger().Warn(ctx, "storage write failed", "key", key, "error", err)
	}
}

func (s *SQL) RemoveItem(ctx context.Context, key string) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	if err := newItemRepository(s.db, s.dialect).Delete(ctx, key); err != nil {
		s.logger().Warn(ctx, "storage delete failed", "key", key, "error", err)
	}
}

func (s *SQL) Clear(ctx context.Context) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	if err := newItemRepository(s.db, s.dialect).Clear(ctx); err != nil {
		s.logger().Warn(ctx, "storage clear failed", "error", err)
	}
}
