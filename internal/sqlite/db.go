package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database at the given path, creating the parent
// directory when needed. ":memory:" opens an in-memory database. WAL mode,
// foreign keys and a busy timeout are applied, and migrations run.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" && path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one so
	// every caller sees the same schema and data.
	if path == ":memory:" || path == "" {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// Migrate applies the schema. Statements are idempotent so repeated startup
// against an existing database is safe.
func Migrate(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
    id TEXT NOT NULL,
    company_id TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL CHECK (role IN ('employee', 'manager', 'admin')),
    active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
    PRIMARY KEY (company_id, id)
);

CREATE TABLE IF NOT EXISTS projects (
    id TEXT NOT NULL,
    company_id TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    archived INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
    PRIMARY KEY (company_id, id)
);

CREATE TABLE IF NOT EXISTS time_entries (
    id TEXT PRIMARY KEY,
    company_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    project_id TEXT,
    description TEXT,
    idempotency_key TEXT,
    start_time TEXT NOT NULL,
    end_time TEXT,
    duration_seconds INTEGER NOT NULL DEFAULT 0 CHECK (duration_seconds >= 0),
    status TEXT NOT NULL CHECK (status IN ('RUNNING', 'PAUSED', 'STOPPED')),
    approval_status TEXT CHECK (approval_status IN ('PENDING', 'APPROVED', 'REJECTED')),
    approved_by TEXT,
    approved_at TEXT,
    rejection_comment TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
-- One active entry per user, enforced by the store itself so that a race
-- slipping past the in-transaction guard still cannot commit an overlap.
CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_one_active
    ON time_entries(company_id, user_id) WHERE status IN ('RUNNING', 'PAUSED');
CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_idempotency_key
    ON time_entries(company_id, idempotency_key) WHERE idempotency_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_entries_user ON time_entries(company_id, user_id);
CREATE INDEX IF NOT EXISTS idx_entries_status ON time_entries(company_id, status);
CREATE INDEX IF NOT EXISTS idx_entries_approval ON time_entries(company_id, approval_status);

CREATE TABLE IF NOT EXISTS user_activity (
    company_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    last_heartbeat TEXT NOT NULL,
    is_idle INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (company_id, user_id)
);

CREATE TABLE IF NOT EXISTS idle_policies (
    company_id TEXT PRIMARY KEY,
    idle_detection_enabled INTEGER NOT NULL DEFAULT 0,
    idle_threshold_seconds INTEGER NOT NULL DEFAULT 300
);

CREATE TABLE IF NOT EXISTS activity_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    project_id TEXT,
    entry_id TEXT,
    activity_type TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_company ON activity_log(company_id);
CREATE INDEX IF NOT EXISTS idx_activity_entry ON activity_log(entry_id);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
