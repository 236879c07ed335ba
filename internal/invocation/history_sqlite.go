package invocation

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"embulkshim/internal/engine"

	_ "modernc.org/sqlite"
)

type SQLiteHistoryStore struct {
	db         *sql.DB
	keepRecent int
}

func NewSQLiteHistoryStore(dbPath string, keepRecent int) (*SQLiteHistoryStore, error) {
	path := filepath.Clean(dbPath)
	if path == "" || path == "." {
		return nil, fmt.Errorf("invalid sqlite db path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir failed: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite failed: %w", err)
	}

	store := &SQLiteHistoryStore{
		db:         db,
		keepRecent: keepRecent,
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteHistoryStore) initSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS invocation_history (
	id TEXT PRIMARY KEY,
	config_file_name TEXT NOT NULL,
	kind TEXT NOT NULL,
	exit_code INTEGER NOT NULL,
	status_code INTEGER NOT NULL,
	message TEXT NOT NULL,
	started_at_unix_ms INTEGER NOT NULL,
	ended_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invocation_history_ended_at ON invocation_history(ended_at_unix_ms DESC);`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init invocation_history schema failed: %w", err)
	}
	return nil
}

func timeToUnixMS(ts time.Time) int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.UTC().UnixMilli()
}

func unixMSToTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (s *SQLiteHistoryStore) SaveRecord(ctx context.Context, rec Record) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite history store is not initialized")
	}

	const upsert = `
INSERT INTO invocation_history (
	id, config_file_name, kind, exit_code, status_code, message,
	started_at_unix_ms, ended_at_unix_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	config_file_name=excluded.config_file_name,
	kind=excluded.kind,
	exit_code=excluded.exit_code,
	status_code=excluded.status_code,
	message=excluded.message,
	started_at_unix_ms=excluded.started_at_unix_ms,
	ended_at_unix_ms=excluded.ended_at_unix_ms;
`
	_, err := s.db.ExecContext(
		ctx,
		upsert,
		rec.ID,
		rec.ConfigFileName,
		string(rec.Kind),
		rec.ExitCode,
		rec.StatusCode,
		rec.Message,
		timeToUnixMS(rec.StartedAt),
		timeToUnixMS(rec.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert invocation history failed: %w", err)
	}

	if s.keepRecent > 0 {
		const trim = `
DELETE FROM invocation_history
WHERE id NOT IN (
	SELECT id FROM invocation_history
	ORDER BY ended_at_unix_ms DESC
	LIMIT ?
);`
		if _, err := s.db.ExecContext(ctx, trim, s.keepRecent); err != nil {
			return fmt.Errorf("trim invocation history failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteHistoryStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite history store is not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	const query = `
SELECT
	id, config_file_name, kind, exit_code, status_code, message,
	started_at_unix_ms, ended_at_unix_ms
FROM invocation_history
ORDER BY ended_at_unix_ms DESC
LIMIT ?;`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent invocation history failed: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var (
			rec                    Record
			kind                   string
			startedAtMS, endedAtMS int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.ConfigFileName, &kind, &rec.ExitCode, &rec.StatusCode, &rec.Message,
			&startedAtMS, &endedAtMS,
		); err != nil {
			return nil, fmt.Errorf("scan invocation history row failed: %w", err)
		}
		rec.Kind = engine.OutcomeKind(kind)
		rec.StartedAt = unixMSToTime(startedAtMS)
		rec.EndedAt = unixMSToTime(endedAtMS)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocation history rows failed: %w", err)
	}
	return out, nil
}

func (s *SQLiteHistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
