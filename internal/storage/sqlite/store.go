// Package sqlite provides the SQLite-backed dispatch audit store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stonegate/stonegate/internal/platform/storage/sqlitemigrate"
	"github.com/stonegate/stonegate/internal/storage"
	"github.com/stonegate/stonegate/internal/storage/sqlite/migrations"
)

// Store persists dispatch records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite dispatch store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendDispatch inserts one dispatch record.
func (s *Store) AppendDispatch(ctx context.Context, record storage.DispatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	timestamp := record.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	command := strings.TrimSpace(record.Command)
	if command == "" {
		return fmt.Errorf("command is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO dispatch_log (dispatched_at, plugin_id, command, outcome, arg_count)
VALUES (?, ?, ?, ?, ?)
`, timestamp.UTC().UnixMilli(), strings.TrimSpace(record.PluginID), command, record.Outcome, record.ArgCount)
	if err != nil {
		return fmt.Errorf("insert dispatch record: %w", err)
	}
	return nil
}

// RecentDispatches returns up to limit records, newest first.
func (s *Store) RecentDispatches(ctx context.Context, limit int) ([]storage.DispatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT dispatched_at, plugin_id, command, outcome, arg_count
FROM dispatch_log
ORDER BY dispatched_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query dispatch records: %w", err)
	}
	defer rows.Close()

	var records []storage.DispatchRecord
	for rows.Next() {
		var record storage.DispatchRecord
		var millis int64
		if err := rows.Scan(&millis, &record.PluginID, &record.Command, &record.Outcome, &record.ArgCount); err != nil {
			return nil, fmt.Errorf("scan dispatch record: %w", err)
		}
		record.Timestamp = time.UnixMilli(millis).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatch records: %w", err)
	}
	return records, nil
}
