package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"rsstrigger/internal/domain"

	_ "modernc.org/sqlite"
)

// EnsureSchema creates the key-value table if it doesn't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := db.Exec(schema)
	return err
}

// SQLite is the shared key-value variant: each collection is one JSON value
// under a fixed key, so every process opening the same database sees the
// same state.
type SQLite struct{ db *sql.DB }

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "rsstrigger.db"
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite single writer
	if err := EnsureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return NewSQLite(db), nil
}

func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) LoadFeedItems(ctx context.Context) ([]domain.FeedItem, Result) {
	items := []domain.FeedItem{}
	if r := s.get(ctx, FeedItemsKey, &items); r.Failed() {
		return []domain.FeedItem{}, r
	}
	return items, Ok
}

func (s *SQLite) SaveFeedItems(ctx context.Context, items []domain.FeedItem) Result {
	return s.set(ctx, FeedItemsKey, items)
}

func (s *SQLite) LoadScheduledJobs(ctx context.Context) ([]domain.ScheduledJob, Result) {
	jobs := []domain.ScheduledJob{}
	if r := s.get(ctx, ScheduledJobsKey, &jobs); r.Failed() {
		return []domain.ScheduledJob{}, r
	}
	return jobs, Ok
}

func (s *SQLite) SaveScheduledJobs(ctx context.Context, jobs []domain.ScheduledJob) Result {
	return s.set(ctx, ScheduledJobsKey, jobs)
}

func (s *SQLite) get(ctx context.Context, key string, v any) Result {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Ok
	}
	if err != nil {
		return logFault("sqlite", Fault("get "+key, err))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return logFault("sqlite", Fault("decode "+key, err))
	}
	return Ok
}

func (s *SQLite) set(ctx context.Context, key string, v any) Result {
	raw, err := json.Marshal(v)
	if err != nil {
		return logFault("sqlite", Fault("encode "+key, err))
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO kv (key,value,updated_at) VALUES (?,?,CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP`, key, raw)
	if err != nil {
		return logFault("sqlite", Fault("set "+key, err))
	}
	log.Debug().Str("store", "sqlite").Str("key", key).Int("bytes", len(raw)).Msg("value saved")
	return Ok
}
