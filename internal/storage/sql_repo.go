package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/baaskit/internal/dbx"
)

// itemRepository is the table access layer shared by both dialects.
type itemRepository struct {
	db      dbx.DBTX
	dialect Dialect
}

func newItemRepository(db dbx.DBTX, dialect Dialect) *itemRepository {
	return &itemRepository{db: db, dialect: dialect}
}

func (r *itemRepository) rebind(q string) string {
	if r.dialect == DialectPostgres {
		return dbx.Rebind(dbx.Dollar, q)
	}
	return dbx.Rebind(dbx.Question, q)
}

func (r *itemRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT value FROM storage_items WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get item[%s]: %w", key, err)
	}
	return value, true, nil
}

func (r *itemRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO storage_items (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`), key, value)
	if err != nil {
		return fmt.Errorf("failed to set item[%s]: %w", key, err)
	}
	return nil
}

func (r *itemRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM storage_items WHERE key = ?`), key)
	if err != nil {
		return fmt.Errorf("failed to delete item[%s]: %w", key, err)
	}
	return nil
}

func (r *itemRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM storage_items`)
	if err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	return nil
}

// Size returns the stored bytes, keys included.
func (r *itemRepository) Size(ctx context.Context) (int64, error) {
	q := `SELECT COALESCE(SUM(LENGTH(CAST(key AS BLOB)) + LENGTH(CAST(value AS BLOB))), 0) FROM storage_items`
	if r.dialect == DialectPostgres {
		q = `SELECT COALESCE(SUM(OCTET_LENGTH(key) + OCTET_LENGTH(value)), 0) FROM storage_items`
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to size items: %w", err)
	}
	return n, nil
}
