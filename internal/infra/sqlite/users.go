package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gitgud-app/gitgud/internal/domain"
)

// ─── User Repository ────────────────────────────────────────────────────────

const userColumns = `id, email, name, xp, level, streak_days, last_task_date, created_at`

// GetUser retrieves a user by id.
func (d *DB) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUser(ctx, d.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email.
func (d *DB) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return getUser(ctx, d.db, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// CreateUser inserts a user. A concurrent insert of the same email is a
// no-op; callers re-read by email.
func (d *DB) CreateUser(ctx context.Context, u domain.User) error {
	if u.Level < 1 {
		u.Level = 1
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		u.ID, u.Email, u.Name, u.XP, u.Level, u.StreakDays,
		nullDay(u.LastTaskDate), u.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (t *tx) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUser(ctx, t.q, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (t *tx) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE users SET xp = ?, level = ?, streak_days = ?, last_task_date = ?
		 WHERE id = ?`,
		u.XP, u.Level, u.StreakDays, nullDay(u.LastTaskDate), u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func getUser(ctx context.Context, q querier, query string, arg any) (*domain.User, error) {
	var u domain.User
	var lastTask sql.NullString
	var createdAt int64

	err := q.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.XP, &u.Level, &u.StreakDays, &lastTask, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if u.LastTaskDate, err = dayPtr(lastTask); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}
