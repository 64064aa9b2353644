// Package postgres provides a PostgreSQL ledger store on a pgx connection pool.
// Ledger transactions lock the rows they read with SELECT ... FOR UPDATE.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gitgud-app/gitgud/internal/domain"
)

// PoolConfig tunes the connection pool. Zero values keep pgx defaults.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
}

// Store implements domain.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ domain.Store = (*Store)(nil)

// Open connects to dsn, verifies the connection and migrates the schema.
func Open(ctx context.Context, dsn string, cfg PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InTx runs fn inside a READ COMMITTED transaction. Any error from fn
// rolls back.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = pgTx.Rollback(ctx)
		}
	}()

	if err := fn(&tx{q: pgTx}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// Reset truncates every ledger table. Used by tests against a shared database.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`TRUNCATE xp_journal, day_logs, weekly_instances, tasks, users RESTART IDENTITY CASCADE`)
	return err
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id             TEXT PRIMARY KEY,
			email          TEXT NOT NULL UNIQUE,
			name           TEXT NOT NULL DEFAULT '',
			xp             INTEGER NOT NULL DEFAULT 0,
			level          INTEGER NOT NULL DEFAULT 1,
			streak_days    INTEGER NOT NULL DEFAULT 0,
			last_task_date DATE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id                  TEXT PRIMARY KEY,
			user_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title               TEXT NOT NULL,
			tier                TEXT NOT NULL,
			category            TEXT NOT NULL DEFAULT 'LIFE',
			type                TEXT NOT NULL,
			scheduled_date      DATE,
			deadline            TIMESTAMPTZ,
			deadline_time       TIMESTAMPTZ,
			allocated_duration  INTEGER,
			repeat_days         INTEGER NOT NULL DEFAULT 0,
			frequency           INTEGER NOT NULL DEFAULT 1,
			completed_frequency INTEGER NOT NULL DEFAULT 0,
			is_completed        BOOLEAN NOT NULL DEFAULT false,
			completed_at        TIMESTAMPTZ,
			final_points        INTEGER NOT NULL DEFAULT 0,
			is_bonus            BOOLEAN NOT NULL DEFAULT false,
			duration_met        BOOLEAN NOT NULL DEFAULT false,
			progress_date       DATE,
			created_at          TIMESTAMPTZ NOT NULL,
			updated_at          TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_scheduled ON tasks(user_id, scheduled_date)`,

		`CREATE TABLE IF NOT EXISTS weekly_instances (
			task_id             TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			user_id             TEXT NOT NULL,
			date                DATE NOT NULL,
			frequency           INTEGER NOT NULL DEFAULT 1,
			completed_frequency INTEGER NOT NULL DEFAULT 0,
			is_completed        BOOLEAN NOT NULL DEFAULT false,
			completed_at        TIMESTAMPTZ,
			final_points        INTEGER NOT NULL DEFAULT 0,
			is_bonus            BOOLEAN NOT NULL DEFAULT false,
			duration_met        BOOLEAN NOT NULL DEFAULT false,
			PRIMARY KEY (task_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_instances_user_date ON weekly_instances(user_id, date)`,

		`CREATE TABLE IF NOT EXISTS day_logs (
			user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date          DATE NOT NULL,
			total_xp      INTEGER NOT NULL DEFAULT 0,
			tasks_done    INTEGER NOT NULL DEFAULT 0,
			possible_xp   INTEGER,
			c_tier_count  INTEGER NOT NULL DEFAULT 0,
			s_tier_count  INTEGER NOT NULL DEFAULT 0,
			streak_at_end INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, date)
		)`,

		`CREATE TABLE IF NOT EXISTS xp_journal (
			id         BIGSERIAL PRIMARY KEY,
			user_id    TEXT NOT NULL,
			task_id    TEXT NOT NULL,
			date       DATE NOT NULL,
			kind       TEXT NOT NULL,
			count      INTEGER NOT NULL DEFAULT 0,
			xp         INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_user ON xp_journal(user_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_task ON xp_journal(task_id, id)`,
	}

	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Transaction ────────────────────────────────────────────────────────────

type tx struct {
	q pgx.Tx
}

var _ domain.Tx = (*tx)(nil)

// ─── Helpers ────────────────────────────────────────────────────────────────

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func notFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func dayArg(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.DateOf(*t)
	return &d
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
