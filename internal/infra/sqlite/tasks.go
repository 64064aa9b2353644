package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gitgud-app/gitgud/internal/domain"
)

// ─── Task Repository ────────────────────────────────────────────────────────

const taskColumns = `id, user_id, title, tier, category, type, scheduled_date,
	deadline, deadline_time, allocated_duration, repeat_days,
	frequency, completed_frequency, is_completed, completed_at,
	final_points, is_bonus, duration_met, progress_date, created_at, updated_at`

// ListTasks returns a user's tasks, oldest first. A date filter selects
// DAILY tasks scheduled that day plus WEEKLY templates recurring on it.
func (d *DB) ListTasks(ctx context.Context, userID string, f domain.TaskFilter) ([]domain.Task, error) {
	var where []string
	args := []any{userID}
	where = append(where, "user_id = ?")

	if f.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*f.Type))
	}
	if f.Date != nil {
		where = append(where,
			"((type = 'DAILY' AND scheduled_date = ?) OR (type = 'WEEKLY' AND (repeat_days >> ?) & 1 = 1))")
		args = append(args, domain.DateKey(*f.Date), int(f.Date.Weekday()))
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (t *tx) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := scanTask(t.q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (t *tx) InsertTask(ctx context.Context, task domain.Task) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, string(task.Tier), task.Category, string(task.Type),
		nullDay(task.ScheduledDate), nullUnix(task.Deadline), nullUnix(task.DeadlineTime),
		nullInt(task.AllocatedDuration), int(task.RepeatDays),
		task.Frequency, task.CompletedFrequency, task.IsCompleted, nullUnix(task.CompletedAt),
		task.FinalPoints, task.IsBonus, task.DurationMet, nullDay(task.ProgressDate),
		task.CreatedAt.Unix(), task.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (t *tx) UpdateTask(ctx context.Context, task domain.Task) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE tasks SET
			title = ?, tier = ?, category = ?, type = ?, scheduled_date = ?,
			deadline = ?, deadline_time = ?, allocated_duration = ?, repeat_days = ?,
			frequency = ?, completed_frequency = ?, is_completed = ?, completed_at = ?,
			final_points = ?, is_bonus = ?, duration_met = ?, progress_date = ?,
			updated_at = ?
		 WHERE id = ?`,
		task.Title, string(task.Tier), task.Category, string(task.Type), nullDay(task.ScheduledDate),
		nullUnix(task.Deadline), nullUnix(task.DeadlineTime), nullInt(task.AllocatedDuration), int(task.RepeatDays),
		task.Frequency, task.CompletedFrequency, task.IsCompleted, nullUnix(task.CompletedAt),
		task.FinalPoints, task.IsBonus, task.DurationMet, nullDay(task.ProgressDate),
		task.UpdatedAt.Unix(), task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (t *tx) DeleteTask(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(s scanner) (*domain.Task, error) {
	var (
		task                    domain.Task
		tier, typ               string
		scheduled, progressDate sql.NullString
		deadline, deadlineTime  sql.NullInt64
		duration, completedAt   sql.NullInt64
		repeatDays              int
		createdAt, updatedAt    int64
	)

	err := s.Scan(
		&task.ID, &task.UserID, &task.Title, &tier, &task.Category, &typ, &scheduled,
		&deadline, &deadlineTime, &duration, &repeatDays,
		&task.Frequency, &task.CompletedFrequency, &task.IsCompleted, &completedAt,
		&task.FinalPoints, &task.IsBonus, &task.DurationMet, &progressDate, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Tier = domain.Tier(tier)
	task.Type = domain.TaskType(typ)
	if task.ScheduledDate, err = dayPtr(scheduled); err != nil {
		return nil, err
	}
	if task.ProgressDate, err = dayPtr(progressDate); err != nil {
		return nil, err
	}
	task.Deadline = unixPtr(deadline)
	task.DeadlineTime = unixPtr(deadlineTime)
	task.AllocatedDuration = intPtr(duration)
	task.CompletedAt = unixPtr(completedAt)
	task.RepeatDays = domain.Weekdays(repeatDays)
	task.CreatedAt = time.Unix(createdAt, 0).UTC()
	task.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &task, nil
}
