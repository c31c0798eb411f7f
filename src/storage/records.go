package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// GetRecord retrieves a record by key. It returns nil when the key is absent.
func GetRecord(ctx context.Context, db sqlscan.Querier, key string) (*Record, error) {
	query := `SELECT key, value, updated_at FROM kv_records WHERE key = ?`
	var r Record
	err := sqlscan.Get(ctx, db, &r, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return &r, nil
}

// Execer executes statements that return no rows
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PutRecord inserts or replaces a record
func PutRecord(ctx context.Context, db Execer, record *Record) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	query := `INSERT INTO kv_records (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query, record.Key, record.Value, record.UpdatedAt)
	return err
}
