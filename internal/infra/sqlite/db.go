// Package sqlite provides SQLite-based persistent storage for the ledger.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/gitgud-app/gitgud/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
// It implements domain.Store.
type DB struct {
	db *sql.DB
}

var _ domain.Store = (*DB)(nil)

// Open creates or opens the SQLite database at dir/gitgud.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "gitgud.db")
	dsn := "file:" + dbPath +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// One connection serializes every ledger transaction.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// InTx runs fn inside a SQL transaction. Any error from fn rolls back.
func (d *DB) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&tx{q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id             TEXT PRIMARY KEY,
			email          TEXT NOT NULL UNIQUE,
			name           TEXT NOT NULL DEFAULT '',
			xp             INTEGER NOT NULL DEFAULT 0,
			level          INTEGER NOT NULL DEFAULT 1,
			streak_days    INTEGER NOT NULL DEFAULT 0,
			last_task_date TEXT,
			created_at     INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id                  TEXT PRIMARY KEY,
			user_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title               TEXT NOT NULL,
			tier                TEXT NOT NULL,
			category            TEXT NOT NULL DEFAULT 'LIFE',
			type                TEXT NOT NULL,
			scheduled_date      TEXT,
			deadline            INTEGER,
			deadline_time       INTEGER,
			allocated_duration  INTEGER,
			repeat_days         INTEGER NOT NULL DEFAULT 0,
			frequency           INTEGER NOT NULL DEFAULT 1,
			completed_frequency INTEGER NOT NULL DEFAULT 0,
			is_completed        BOOLEAN NOT NULL DEFAULT 0,
			completed_at        INTEGER,
			final_points        INTEGER NOT NULL DEFAULT 0,
			is_bonus            BOOLEAN NOT NULL DEFAULT 0,
			duration_met        BOOLEAN NOT NULL DEFAULT 0,
			progress_date       TEXT,
			created_at          INTEGER NOT NULL,
			updated_at          INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_scheduled ON tasks(user_id, scheduled_date)`,

		`CREATE TABLE IF NOT EXISTS weekly_instances (
			task_id             TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			user_id             TEXT NOT NULL,
			date                TEXT NOT NULL,
			frequency           INTEGER NOT NULL DEFAULT 1,
			completed_frequency INTEGER NOT NULL DEFAULT 0,
			is_completed        BOOLEAN NOT NULL DEFAULT 0,
			completed_at        INTEGER,
			final_points        INTEGER NOT NULL DEFAULT 0,
			is_bonus            BOOLEAN NOT NULL DEFAULT 0,
			duration_met        BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (task_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_instances_user_date ON weekly_instances(user_id, date)`,

		`CREATE TABLE IF NOT EXISTS day_logs (
			user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date          TEXT NOT NULL,
			total_xp      INTEGER NOT NULL DEFAULT 0,
			tasks_done    INTEGER NOT NULL DEFAULT 0,
			possible_xp   INTEGER,
			c_tier_count  INTEGER NOT NULL DEFAULT 0,
			s_tier_count  INTEGER NOT NULL DEFAULT 0,
			streak_at_end INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, date)
		)`,

		// Append-only XP audit trail
		`CREATE TABLE IF NOT EXISTS xp_journal (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL,
			task_id    TEXT NOT NULL,
			date       TEXT NOT NULL,
			kind       TEXT NOT NULL,
			count      INTEGER NOT NULL DEFAULT 0,
			xp         INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_user ON xp_journal(user_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_task ON xp_journal(task_id, id)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Transaction ────────────────────────────────────────────────────────────

// tx implements domain.Tx on a *sql.Tx. SQLite takes the write lock on the
// first write and the pool holds a single connection, so row reads need no
// explicit locking.
type tx struct {
	q *sql.Tx
}

var _ domain.Tx = (*tx)(nil)

// ─── Helpers ────────────────────────────────────────────────────────────────

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullDay(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: domain.DateKey(*t), Valid: true}
}

func parseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func dayPtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseDay(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unixPtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
