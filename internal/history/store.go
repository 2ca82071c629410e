// Package history persists build results in a per-project SQLite database
// so the dashboard and API can show what the loop has been doing, including
// across restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/boifagusy/flashflow-sub000/internal/builder"
)

// DBFile is the database file name inside the project state directory.
const DBFile = "history.db"

// maxLogBytes caps the stored portion of a build log. The tail is kept,
// since compiler errors land at the end.
const maxLogBytes = 64 << 10

// schema contains the DDL executed on every open. IF NOT EXISTS makes it
// safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS builds (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    scope       TEXT NOT NULL,
    environment TEXT NOT NULL,
    success     INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    log         TEXT NOT NULL DEFAULT '',
    error       TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_builds_created_at ON builds(created_at);
`

// Entry is one recorded build, shaped for the /api/builds response.
type Entry struct {
	ID          int64     `json:"id"`
	Scope       string    `json:"scope"`
	Environment string    `json:"environment"`
	Success     bool      `json:"success"`
	DurationMS  int64     `json:"duration_ms"`
	Log         string    `json:"log"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store records build results in SQLite with WAL mode enabled.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database under dir, creating the
// directory and schema as needed.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("history: create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	// SQLite only supports a single writer; one pooled connection avoids
	// SQLITE_BUSY contention and keeps the PRAGMA setup on the connection
	// actually in use.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores one build result and returns its row id.
func (s *Store) Record(ctx context.Context, result builder.Result) (int64, error) {
	errText := ""
	if result.Err != nil {
		errText = result.Err.Error()
	}

	const q = `
		INSERT INTO builds (scope, environment, success, duration_ms, log, error)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		result.Scope,
		result.Environment,
		result.Success,
		result.Duration.Milliseconds(),
		clampLog(result.Log),
		errText,
	)
	if err != nil {
		return 0, fmt.Errorf("history: record build: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: build row id: %w", err)
	}
	return id, nil
}

// Recent returns the newest builds first, at most limit of them.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	const q = `
		SELECT id, scope, environment, success, duration_ms, log, error, created_at
		FROM builds ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query builds: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &e.Scope, &e.Environment, &e.Success, &e.DurationMS, &e.Log, &e.Error, &ts); err != nil {
			return nil, fmt.Errorf("history: scan build: %w", err)
		}
		createdAt, parseErr := parseTimestamp(ts)
		if parseErr != nil {
			return nil, fmt.Errorf("history: parse build timestamp: %w", parseErr)
		}
		e.CreatedAt = createdAt
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate builds: %w", err)
	}
	return entries, nil
}

// Trim deletes everything but the newest keep builds.
func (s *Store) Trim(ctx context.Context, keep int) error {
	if keep <= 0 {
		keep = 200
	}
	const q = `
		DELETE FROM builds
		WHERE id NOT IN (SELECT id FROM builds ORDER BY id DESC LIMIT ?)`
	if _, err := s.db.ExecContext(ctx, q, keep); err != nil {
		return fmt.Errorf("history: trim builds: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// timestampFormats lists the formats SQLite drivers produce for
// CURRENT_TIMESTAMP. modernc.org/sqlite typically returns RFC 3339, while
// canonical SQLite returns the space-separated DateTime format.
var timestampFormats = []string{
	time.RFC3339,
	time.DateTime,
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

func clampLog(log string) string {
	if len(log) <= maxLogBytes {
		return log
	}
	return "(truncated)\n" + log[len(log)-maxLogBytes:]
}
