package kv

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Open initializes the SQLite database at baseDir/garden.db.
// The baseDir parameter allows tests to use t.TempDir().
func Open(baseDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the connection string apply to all pooled connections.
	dbPath := filepath.Join(baseDir, "garden.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return &SQLiteStore{db: db}, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := getUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS kv (
		  k TEXT PRIMARY KEY,
		  v TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS zset (
		  set_name TEXT NOT NULL,
		  member   TEXT NOT NULL,
		  score    INTEGER NOT NULL,
		  PRIMARY KEY (set_name, member)
		);

		CREATE INDEX IF NOT EXISTS idx_zset_set_score
		ON zset(set_name, score DESC, member);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

func getUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT v FROM kv WHERE k = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any existing value.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v",
		key, value)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// Del removes key.
func (s *SQLiteStore) Del(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE k = ?", key); err != nil {
		return fmt.Errorf("kv del %q: %w", key, err)
	}
	return nil
}

// ZAdd adds member to the named sorted set, updating its score if present.
func (s *SQLiteStore) ZAdd(ctx context.Context, set, member string, score int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO zset (set_name, member, score) VALUES (?, ?, ?)
		 ON CONFLICT(set_name, member) DO UPDATE SET score = excluded.score`,
		set, member, score)
	if err != nil {
		return fmt.Errorf("zadd %s %q: %w", set, member, err)
	}
	return nil
}

// ZRem removes member from the named sorted set.
func (s *SQLiteStore) ZRem(ctx context.Context, set, member string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM zset WHERE set_name = ? AND member = ?", set, member)
	if err != nil {
		return fmt.Errorf("zrem %s %q: %w", set, member, err)
	}
	return nil
}

// ZRevRange returns members by descending score, ranks start..stop inclusive.
func (s *SQLiteStore) ZRevRange(ctx context.Context, set string, start, stop int64) ([]string, error) {
	if start < 0 {
		start = 0
	}

	var limit int64
	if stop < 0 {
		limit = -1 // SQLite: LIMIT -1 means no limit
	} else {
		limit = stop - start + 1
		if limit <= 0 {
			return []string{}, nil
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT member FROM zset WHERE set_name = ?
		 ORDER BY score DESC, member DESC LIMIT ? OFFSET ?`,
		set, limit, start)
	if err != nil {
		return nil, fmt.Errorf("zrevrange %s: %w", set, err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("zrevrange %s: %w", set, err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ZCard returns the number of members in the named set.
func (s *SQLiteStore) ZCard(ctx context.Context, set string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM zset WHERE set_name = ?", set).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("zcard %s: %w", set, err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
