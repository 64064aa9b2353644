package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gitgud-app/gitgud/internal/domain"
)

// ─── Users ──────────────────────────────────────────────────────────────────

const userColumns = `id, email, name, xp, level, streak_days, last_task_date, created_at`

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUser(ctx, s.pool, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return getUser(ctx, s.pool, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// CreateUser inserts a user; a conflicting email is left untouched.
func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	if u.Level < 1 {
		u.Level = 1
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (email) DO NOTHING`,
		u.ID, u.Email, u.Name, u.XP, u.Level, u.StreakDays, dayArg(u.LastTaskDate), u.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (t *tx) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUser(ctx, t.q, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

func (t *tx) UpdateUser(ctx context.Context, u domain.User) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE users SET xp = $1, level = $2, streak_days = $3, last_task_date = $4 WHERE id = $5`,
		u.XP, u.Level, u.StreakDays, dayArg(u.LastTaskDate), u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func getUser(ctx context.Context, q querier, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := q.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.XP, &u.Level, &u.StreakDays, &u.LastTaskDate, &u.CreatedAt,
	)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.LastTaskDate = utcPtr(u.LastTaskDate)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

const taskColumns = `id, user_id, title, tier, category, type, scheduled_date,
	deadline, deadline_time, allocated_duration, repeat_days,
	frequency, completed_frequency, is_completed, completed_at,
	final_points, is_bonus, duration_met, progress_date, created_at, updated_at`

func (s *Store) ListTasks(ctx context.Context, userID string, f domain.TaskFilter) ([]domain.Task, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}

	if f.Type != nil {
		args = append(args, string(*f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Date != nil {
		args = append(args, domain.DateOf(*f.Date), int(f.Date.Weekday()))
		where = append(where, fmt.Sprintf(
			"((type = 'DAILY' AND scheduled_date = $%d) OR (type = 'WEEKLY' AND (repeat_days >> $%d) & 1 = 1))",
			len(args)-1, len(args)))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (t *tx) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := scanTask(t.q.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
	if notFound(err) {
		return nil, nil
	}
	return task, err
}

func (t *tx) InsertTask(ctx context.Context, task domain.Task) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		task.ID, task.UserID, task.Title, string(task.Tier), task.Category, string(task.Type),
		dayArg(task.ScheduledDate), utcPtr(task.Deadline), utcPtr(task.DeadlineTime),
		task.AllocatedDuration, int(task.RepeatDays),
		task.Frequency, task.CompletedFrequency, task.IsCompleted, utcPtr(task.CompletedAt),
		task.FinalPoints, task.IsBonus, task.DurationMet, dayArg(task.ProgressDate),
		task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (t *tx) UpdateTask(ctx context.Context, task domain.Task) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE tasks SET
			title = $1, tier = $2, category = $3, type = $4, scheduled_date = $5,
			deadline = $6, deadline_time = $7, allocated_duration = $8, repeat_days = $9,
			frequency = $10, completed_frequency = $11, is_completed = $12, completed_at = $13,
			final_points = $14, is_bonus = $15, duration_met = $16, progress_date = $17,
			updated_at = $18
		 WHERE id = $19`,
		task.Title, string(task.Tier), task.Category, string(task.Type), dayArg(task.ScheduledDate),
		utcPtr(task.Deadline), utcPtr(task.DeadlineTime), task.AllocatedDuration, int(task.RepeatDays),
		task.Frequency, task.CompletedFrequency, task.IsCompleted, utcPtr(task.CompletedAt),
		task.FinalPoints, task.IsBonus, task.DurationMet, dayArg(task.ProgressDate),
		task.UpdatedAt.UTC(), task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (t *tx) DeleteTask(ctx context.Context, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task       domain.Task
		tier, typ  string
		repeatDays int
	)
	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &tier, &task.Category, &typ, &task.ScheduledDate,
		&task.Deadline, &task.DeadlineTime, &task.AllocatedDuration, &repeatDays,
		&task.Frequency, &task.CompletedFrequency, &task.IsCompleted, &task.CompletedAt,
		&task.FinalPoints, &task.IsBonus, &task.DurationMet, &task.ProgressDate,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Tier = domain.Tier(tier)
	task.Type = domain.TaskType(typ)
	task.RepeatDays = domain.Weekdays(repeatDays)
	task.ScheduledDate = utcPtr(task.ScheduledDate)
	task.ProgressDate = utcPtr(task.ProgressDate)
	task.Deadline = utcPtr(task.Deadline)
	task.DeadlineTime = utcPtr(task.DeadlineTime)
	task.CompletedAt = utcPtr(task.CompletedAt)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return &task, nil
}

// ─── Weekly Instances ───────────────────────────────────────────────────────

const instanceColumns = `task_id, user_id, date, frequency, completed_frequency,
	is_completed, completed_at, final_points, is_bonus, duration_met`

func (s *Store) ListWeeklyInstances(ctx context.Context, userID string, day time.Time) ([]domain.WeeklyInstance, error) {
	return listInstances(ctx, s.pool,
		`SELECT `+instanceColumns+` FROM weekly_instances WHERE user_id = $1 AND date = $2`,
		userID, domain.DateOf(day))
}

func (t *tx) GetWeeklyInstance(ctx context.Context, taskID string, day time.Time) (*domain.WeeklyInstance, error) {
	w, err := scanInstance(t.q.QueryRow(ctx,
		`SELECT `+instanceColumns+` FROM weekly_instances WHERE task_id = $1 AND date = $2 FOR UPDATE`,
		taskID, domain.DateOf(day)))
	if notFound(err) {
		return nil, nil
	}
	return w, err
}

func (t *tx) ListInstancesForTask(ctx context.Context, taskID string) ([]domain.WeeklyInstance, error) {
	return listInstances(ctx, t.q,
		`SELECT `+instanceColumns+` FROM weekly_instances WHERE task_id = $1 ORDER BY date ASC FOR UPDATE`, taskID)
}

func (t *tx) SaveWeeklyInstance(ctx context.Context, w domain.WeeklyInstance) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO weekly_instances (`+instanceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (task_id, date) DO UPDATE SET
			frequency = EXCLUDED.frequency,
			completed_frequency = EXCLUDED.completed_frequency,
			is_completed = EXCLUDED.is_completed,
			completed_at = EXCLUDED.completed_at,
			final_points = EXCLUDED.final_points,
			is_bonus = EXCLUDED.is_bonus,
			duration_met = EXCLUDED.duration_met`,
		w.TaskID, w.UserID, domain.DateOf(w.Date), w.Frequency, w.CompletedFrequency,
		w.IsCompleted, utcPtr(w.CompletedAt), w.FinalPoints, w.IsBonus, w.DurationMet,
	)
	if err != nil {
		return fmt.Errorf("save weekly instance: %w", err)
	}
	return nil
}

func listInstances(ctx context.Context, q querier, query string, args ...any) ([]domain.WeeklyInstance, error) {
	rows, err := q.Query(ctx, query, args...)
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

func scanInstance(row pgx.Row) (*domain.WeeklyInstance, error) {
	var w domain.WeeklyInstance
	err := row.Scan(&w.TaskID, &w.UserID, &w.Date, &w.Frequency, &w.CompletedFrequency,
		&w.IsCompleted, &w.CompletedAt, &w.FinalPoints, &w.IsBonus, &w.DurationMet)
	if err != nil {
		return nil, err
	}
	w.Date = w.Date.UTC()
	w.CompletedAt = utcPtr(w.CompletedAt)
	return &w, nil
}

// ─── Day Logs ───────────────────────────────────────────────────────────────

const dayLogColumns = `user_id, date, total_xp, tasks_done, possible_xp,
	c_tier_count, s_tier_count, streak_at_end`

func (s *Store) DayLogs(ctx context.Context, userID string, limit int) ([]domain.DayLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+dayLogColumns+` FROM day_logs WHERE user_id = $1 ORDER BY date DESC LIMIT $2`,
		userID, limit)
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
	l, err := scanDayLog(t.q.QueryRow(ctx,
		`SELECT `+dayLogColumns+` FROM day_logs WHERE user_id = $1 AND date = $2 FOR UPDATE`,
		userID, domain.DateOf(day)))
	if notFound(err) {
		return nil, nil
	}
	return l, err
}

func (t *tx) SaveDayLog(ctx context.Context, l domain.DayLog) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO day_logs (`+dayLogColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, date) DO UPDATE SET
			total_xp = EXCLUDED.total_xp,
			tasks_done = EXCLUDED.tasks_done,
			possible_xp = EXCLUDED.possible_xp,
			c_tier_count = EXCLUDED.c_tier_count,
			s_tier_count = EXCLUDED.s_tier_count,
			streak_at_end = EXCLUDED.streak_at_end`,
		l.UserID, domain.DateOf(l.Date), l.TotalXP, l.TasksDone, l.PossibleXP,
		l.CTierCount, l.STierCount, l.StreakAtEnd,
	)
	if err != nil {
		return fmt.Errorf("save day log: %w", err)
	}
	return nil
}

func scanDayLog(row pgx.Row) (*domain.DayLog, error) {
	var l domain.DayLog
	err := row.Scan(&l.UserID, &l.Date, &l.TotalXP, &l.TasksDone, &l.PossibleXP,
		&l.CTierCount, &l.STierCount, &l.StreakAtEnd)
	if err != nil {
		return nil, err
	}
	l.Date = l.Date.UTC()
	return &l, nil
}

// ─── XP Journal ─────────────────────────────────────────────────────────────

func (s *Store) JournalEntries(ctx context.Context, userID string, limit int) ([]domain.JournalEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, task_id, date, kind, count, xp, created_at
		 FROM xp_journal WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	return scanJournal(rows)
}

func (t *tx) TaskJournal(ctx context.Context, taskID string) ([]domain.JournalEntry, error) {
	rows, err := t.q.Query(ctx,
		`SELECT id, user_id, task_id, date, kind, count, xp, created_at
		 FROM xp_journal WHERE task_id = $1 ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("task journal: %w", err)
	}
	return scanJournal(rows)
}

func scanJournal(rows pgx.Rows) ([]domain.JournalEntry, error) {
	defer rows.Close()

	var out []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.UserID, &e.TaskID, &e.Date, &kind, &e.Count, &e.XP, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.JournalKind(kind)
		e.Date = e.Date.UTC()
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *tx) AppendJournal(ctx context.Context, e domain.JournalEntry) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO xp_journal (user_id, task_id, date, kind, count, xp, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.UserID, e.TaskID, domain.DateOf(e.Date), string(e.Kind), e.Count, e.XP, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}
