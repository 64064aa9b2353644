package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gitgud-app/gitgud/internal/domain"
)

// ─── Weekly Instances ───────────────────────────────────────────────────────

const instanceColumns = `task_id, user_id, date, frequency, completed_frequency,
	is_completed, completed_at, final_points, is_bonus, duration_met`

// ListWeeklyInstances returns every instance a user has on day.
func (d *DB) ListWeeklyInstances(ctx context.Context, userID string, day time.Time) ([]domain.WeeklyInstance, error) {
	return listInstances(ctx, d.db,
		`SELECT `+instanceColumns+` FROM weekly_instances WHERE user_id = ? AND date = ?`,
		userID, domain.DateKey(day))
}

func (t *tx) GetWeeklyInstance(ctx context.Context, taskID string, day time.Time) (*domain.WeeklyInstance, error) {
	w, err := scanInstance(t.q.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM weekly_instances WHERE task_id = ? AND date = ?`,
		taskID, domain.DateKey(day)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

func (t *tx) ListInstancesForTask(ctx context.Context, taskID string) ([]domain.WeeklyInstance, error) {
	return listInstances(ctx, t.q,
		`SELECT `+instanceColumns+` FROM weekly_instances WHERE task_id = ? ORDER BY date ASC`, taskID)
}

// SaveWeeklyInstance upserts the instance keyed by (task_id, date).
func (t *tx) SaveWeeklyInstance(ctx context.Context, w domain.WeeklyInstance) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO weekly_instances (`+instanceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(task_id, date) DO UPDATE SET
			frequency=excluded.frequency,
			completed_frequency=excluded.completed_frequency,
			is_completed=excluded.is_completed,
			completed_at=excluded.completed_at,
			final_points=excluded.final_points,
			is_bonus=excluded.is_bonus,
			duration_met=excluded.duration_met`,
		w.TaskID, w.UserID, domain.DateKey(w.Date), w.Frequency, w.CompletedFrequency,
		w.IsCompleted, nullUnix(w.CompletedAt), w.FinalPoints, w.IsBonus, w.DurationMet,
	)
	if err != nil {
		return fmt.Errorf("save weekly instance: %w", err)
	}
	return nil
}

func listInstances(ctx context.Context, q querier, query string, args ...any) ([]domain.WeeklyInstance, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list weekly instances: %w", err)
	}
	defer rows.Close()

	var out []domain.WeeklyInstance
	for rows.Next() {
		w, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func scanInstance(s scanner) (*domain.WeeklyInstance, error) {
	var w domain.WeeklyInstance
	var date string
	var completedAt sql.NullInt64

	err := s.Scan(&w.TaskID, &w.UserID, &date, &w.Frequency, &w.CompletedFrequency,
		&w.IsCompleted, &completedAt, &w.FinalPoints, &w.IsBonus, &w.DurationMet)
	if err != nil {
		return nil, err
	}
	if w.Date, err = parseDay(date); err != nil {
		return nil, err
	}
	w.CompletedAt = unixPtr(completedAt)
	return &w, nil
}
