package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// SQLite is the optional persistent L3 tier for long-lived artifacts
// (precomputed embeddings). Highest latency, largest capacity, no
// capacity-pressure eviction; envelope TTLs still apply on read.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewSQLite opens (creating if needed) the L3 store at path.
func NewSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite cache: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	logger.Info("L3 cache opened", zap.String("path", path))
	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Name() string { return "l3" }

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite get %q: %w", key, err)
	}
	s.hits.Add(1)
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		key, value, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite set %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Stats() Stats {
	st := Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&count); err == nil {
		st.Entries = count
	}
	return st
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
