package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/gitgud-app/gitgud/internal/domain"
)

// newTestStore connects to GITGUD_TEST_POSTGRES_DSN and truncates every
// table. Tests skip when the variable is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("GITGUD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GITGUD_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn, PoolConfig{MaxConns: 4})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_UserAndTaskRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, domain.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}

	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	task := domain.Task{
		ID: "t1", UserID: "u1", Title: "Read", Tier: domain.TierB, Category: "LIFE",
		Type: domain.TaskDaily, ScheduledDate: &day, Progress: domain.NewProgress(1),
		CreatedAt: now, UpdatedAt: now,
	}
	err := s.InTx(ctx, func(tx domain.Tx) error {
		if err := tx.InsertTask(ctx, task); err != nil {
			return err
		}
		l := domain.NewDayLog("u1", day)
		*l.PossibleXP = 30
		return tx.SaveDayLog(ctx, *l)
	})
	if err != nil {
		t.Fatalf("InTx() error: %v", err)
	}

	tasks, err := s.ListTasks(ctx, "u1", domain.TaskFilter{Date: &day})
	if err != nil {
		t.Fatalf("ListTasks() error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ScheduledDate == nil || !tasks[0].ScheduledDate.Equal(day) {
		t.Fatalf("tasks = %+v", tasks)
	}

	logs, err := s.DayLogs(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("DayLogs() error: %v", err)
	}
	if len(logs) != 1 || logs[0].PossibleXP == nil || *logs[0].PossibleXP != 30 {
		t.Errorf("logs = %+v", logs)
	}
}

func TestStore_RollbackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.CreateUser(ctx, domain.User{ID: "u1", Email: "a@example.com"})

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx domain.Tx) error {
		u, err := tx.GetUser(ctx, "u1")
		if err != nil {
			return err
		}
		u.XP = 1000
		if err := tx.UpdateUser(ctx, *u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}
	u, _ := s.GetUser(ctx, "u1")
	if u.XP != 0 {
		t.Errorf("XP = %d after rollback, want 0", u.XP)
	}
}
