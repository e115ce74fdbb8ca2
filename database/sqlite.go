package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLDB is the subset of *sql.DB the SQLite repositories use.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var _ SQLDB = (*sql.DB)(nil)

// TimeLayout is how timestamps are stored in TEXT columns. It is fixed width
// so that ORDER BY on the text sorts chronologically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// OpenSQLite opens the database at path (":memory:" for a throwaway one) and
// applies the schema. SQLite serializes writers, so the pool is pinned to a
// single connection; this also keeps a :memory: database alive.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitSchema creates the tables used by the SQLite repositories.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS workshops (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		price INTEGER NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT '',
		total_sessions INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		workshop_id TEXT NOT NULL,
		date TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL DEFAULT '',
		end_date TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		slots INTEGER NOT NULL CHECK (slots >= 0),
		enrolled INTEGER NOT NULL DEFAULT 0 CHECK (enrolled >= 0 AND enrolled <= slots),
		location TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'open',
		created_at TEXT NOT NULL,
		FOREIGN KEY (workshop_id) REFERENCES workshops(id)
	);
	CREATE INDEX IF NOT EXISTS idx_batches_workshop ON batches(workshop_id);

	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_students_email ON students(email);
	CREATE INDEX IF NOT EXISTS idx_students_phone ON students(phone);

	CREATE TABLE IF NOT EXISTS enrollments (
		order_id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		workshop_id TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		amount INTEGER NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT '',
		payment_status TEXT NOT NULL,
		transaction_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (batch_id) REFERENCES batches(id)
	);
	CREATE INDEX IF NOT EXISTS idx_enrollments_batch ON enrollments(batch_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// FormatTime renders t for a TEXT column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a TEXT timestamp; empty or malformed values yield the zero time.
func ParseTime(s string) time.Time {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
