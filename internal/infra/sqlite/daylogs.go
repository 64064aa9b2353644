package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gitgud-app/gitgud/internal/domain"
)

// ─── Day Logs ───────────────────────────────────────────────────────────────

const dayLogColumns = `user_id, date, total_xp, tasks_done, possible_xp,
	c_tier_count, s_tier_count, streak_at_end`

// DayLogs returns a user's most recent rollups, newest first.
func (d *DB) DayLogs(ctx context.Context, userID string, limit int) ([]domain.DayLog, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+dayLogColumns+` FROM day_logs WHERE user_id = ?
		 ORDER BY date DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list day logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.DayLog
	for rows.Next() {
		l, err := scanDayLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

func (t *tx) GetDayLog(ctx context.Context, userID string, day time.Time) (*domain.DayLog, error) {
	l, err := scanDayLog(t.q.QueryRowContext(ctx,
		`SELECT `+dayLogColumns+` FROM day_logs WHERE user_id = ? AND date = ?`,
		userID, domain.DateKey(day)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// SaveDayLog upserts the rollup keyed by (user_id, date).
func (t *tx) SaveDayLog(ctx context.Context, l domain.DayLog) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO day_logs (`+dayLogColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET
			total_xp=excluded.total_xp,
			tasks_done=excluded.tasks_done,
			possible_xp=excluded.possible_xp,
			c_tier_count=excluded.c_tier_count,
			s_tier_count=excluded.s_tier_count,
			streak_at_end=excluded.streak_at_end`,
		l.UserID, domain.DateKey(l.Date), l.TotalXP, l.TasksDone, nullInt(l.PossibleXP),
		l.CTierCount, l.STierCount, l.StreakAtEnd,
	)
	if err != nil {
		return fmt.Errorf("save day log: %w", err)
	}
	return nil
}

func scanDayLog(s scanner) (*domain.DayLog, error) {
	var l domain.DayLog
	var date string
	var possible sql.NullInt64

	err := s.Scan(&l.UserID, &date, &l.TotalXP, &l.TasksDone, &possible,
		&l.CTierCount, &l.STierCount, &l.StreakAtEnd)
	if err != nil {
		return nil, err
	}
	if l.Date, err = parseDay(date); err != nil {
		return nil, err
	}
	l.PossibleXP = intPtr(possible)
	return &l, nil
}

// ─── XP Journal ─────────────────────────────────────────────────────────────

// JournalEntries returns a user's latest journal lines, newest first.
func (d *DB) JournalEntries(ctx context.Context, userID string, limit int) ([]domain.JournalEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, task_id, date, kind, count, xp, created_at
		 FROM xp_journal WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	return scanJournal(rows)
}

func (t *tx) TaskJournal(ctx context.Context, taskID string) ([]domain.JournalEntry, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT id, user_id, task_id, date, kind, count, xp, created_at
		 FROM xp_journal WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("task journal: %w", err)
	}
	return scanJournal(rows)
}

func scanJournal(rows *sql.Rows) ([]domain.JournalEntry, error) {
	defer rows.Close()

	var out []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		var date, kind string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.TaskID, &date, &kind, &e.Count, &e.XP, &createdAt); err != nil {
			return nil, err
		}
		var err error
		if e.Date, err = parseDay(date); err != nil {
			return nil, err
		}
		e.Kind = domain.JournalKind(kind)
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *tx) AppendJournal(ctx context.Context, e domain.JournalEntry) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO xp_journal (user_id, task_id, date, kind, count, xp, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.TaskID, domain.DateKey(e.Date), string(e.Kind), e.Count, e.XP, e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}
