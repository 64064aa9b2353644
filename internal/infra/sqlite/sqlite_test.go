package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gitgud-app/gitgud/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, id string) {
	t.Helper()
	err := db.CreateUser(context.Background(), domain.User{
		ID: id, Email: id + "@example.com", Level: 1, CreatedAt: time.Unix(1_700_000_000, 0),
	})
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleTask(id, userID string) domain.Task {
	day := date(2025, 7, 1)
	dur := 30
	now := time.Unix(1_751_328_000, 0).UTC()
	return domain.Task{
		ID: id, UserID: userID, Title: "Write report", Tier: domain.TierA,
		Category: "WORK", Type: domain.TaskDaily, ScheduledDate: &day,
		AllocatedDuration: &dur, Progress: domain.NewProgress(2),
		CreatedAt: now, UpdatedAt: now,
	}
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, "gitgud.db")); os.IsNotExist(err) {
		t.Error("gitgud.db should exist")
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	seedUser(t, db, "u1")
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer db.Close()
	u, err := db.GetUser(context.Background(), "u1")
	if err != nil || u == nil {
		t.Fatalf("GetUser after reopen = %v, %v", u, err)
	}
}

func TestOpen_Ping(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

// ─── Users ──────────────────────────────────────────────────────────────────

func TestUsers_CreateAndLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	u, err := db.GetUserByEmail(ctx, "u1@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error: %v", err)
	}
	if u == nil || u.ID != "u1" || u.Level != 1 {
		t.Fatalf("GetUserByEmail() = %+v", u)
	}

	missing, err := db.GetUser(ctx, "nobody")
	if err != nil || missing != nil {
		t.Errorf("GetUser(nobody) = %v, %v; want nil, nil", missing, err)
	}
}

func TestUsers_DuplicateEmailIsNoop(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	err := db.CreateUser(ctx, domain.User{ID: "u2", Email: "u1@example.com"})
	if err != nil {
		t.Fatalf("CreateUser(dup) error: %v", err)
	}
	u, _ := db.GetUserByEmail(ctx, "u1@example.com")
	if u.ID != "u1" {
		t.Errorf("email owner = %q, want u1", u.ID)
	}
}

func TestUsers_UpdateInTx(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	last := date(2025, 7, 1)
	err := db.InTx(ctx, func(tx domain.Tx) error {
		u, err := tx.GetUser(ctx, "u1")
		if err != nil {
			return err
		}
		u.XP, u.Level, u.StreakDays, u.LastTaskDate = 650, 2, 3, &last
		return tx.UpdateUser(ctx, *u)
	})
	if err != nil {
		t.Fatalf("InTx() error: %v", err)
	}

	u, _ := db.GetUser(ctx, "u1")
	if u.XP != 650 || u.Level != 2 || u.StreakDays != 3 {
		t.Errorf("user = %+v", u)
	}
	if u.LastTaskDate == nil || !u.LastTaskDate.Equal(last) {
		t.Errorf("LastTaskDate = %v, want %v", u.LastTaskDate, last)
	}
}

// ─── Transactions ───────────────────────────────────────────────────────────

func TestInTx_RollbackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	boom := errors.New("boom")
	err := db.InTx(ctx, func(tx domain.Tx) error {
		if err := tx.InsertTask(ctx, sampleTask("t1", "u1")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}

	tasks, err := db.ListTasks(ctx, "u1", domain.TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks() error: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("rolled back insert is visible: %d tasks", len(tasks))
	}
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

func TestTasks_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	in := sampleTask("t1", "u1")
	in.RepeatDays, _ = domain.ParseWeekdays("1,3")
	err := db.InTx(ctx, func(tx domain.Tx) error { return tx.InsertTask(ctx, in) })
	if err != nil {
		t.Fatalf("InsertTask() error: %v", err)
	}

	var got *domain.Task
	err = db.InTx(ctx, func(tx domain.Tx) error {
		var err error
		got, err = tx.GetTask(ctx, "t1")
		return err
	})
	if err != nil || got == nil {
		t.Fatalf("GetTask() = %v, %v", got, err)
	}
	if got.Title != in.Title || got.Tier != domain.TierA || got.Category != "WORK" {
		t.Errorf("got %+v", got)
	}
	if got.ScheduledDate == nil || !got.ScheduledDate.Equal(*in.ScheduledDate) {
		t.Errorf("ScheduledDate = %v", got.ScheduledDate)
	}
	if got.AllocatedDuration == nil || *got.AllocatedDuration != 30 {
		t.Errorf("AllocatedDuration = %v", got.AllocatedDuration)
	}
	if got.Frequency != 2 || got.RepeatDays.String() != "1,3" {
		t.Errorf("Frequency=%d RepeatDays=%s", got.Frequency, got.RepeatDays)
	}
	if got.CompletedAt != nil || got.ProgressDate != nil {
		t.Errorf("unexpected progress timestamps: %v %v", got.CompletedAt, got.ProgressDate)
	}
}

func TestTasks_UpdateProgress(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	task := sampleTask("t1", "u1")
	completed := time.Date(2025, 7, 1, 18, 30, 0, 0, time.UTC)
	err := db.InTx(ctx, func(tx domain.Tx) error {
		if err := tx.InsertTask(ctx, task); err != nil {
			return err
		}
		task.CompletedFrequency = 2
		task.IsCompleted = true
		task.CompletedAt = &completed
		task.FinalPoints = 75
		task.ProgressDate = task.ScheduledDate
		return tx.UpdateTask(ctx, task)
	})
	if err != nil {
		t.Fatalf("update error: %v", err)
	}

	tasks, _ := db.ListTasks(ctx, "u1", domain.TaskFilter{})
	if len(tasks) != 1 {
		t.Fatalf("len = %d, want 1", len(tasks))
	}
	got := tasks[0]
	if !got.IsCompleted || got.FinalPoints != 75 || got.State() != domain.StateDone {
		t.Errorf("progress not persisted: %+v", got.Progress)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, completed)
	}
}

func TestTasks_UpdateMissing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	err := db.InTx(ctx, func(tx domain.Tx) error {
		return tx.UpdateTask(ctx, sampleTask("ghost", "u1"))
	})
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("error = %v, want ErrTaskNotFound", err)
	}
}

func TestTasks_ListFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")
	seedUser(t, db, "u2")

	tue := date(2025, 7, 1)
	wed := date(2025, 7, 2)

	daily := sampleTask("daily-tue", "u1")
	other := sampleTask("daily-wed", "u1")
	other.ScheduledDate = &wed
	backlog := sampleTask("backlog", "u1")
	backlog.Type, backlog.ScheduledDate = domain.TaskBacklog, nil
	weekly := sampleTask("weekly-tue", "u1")
	weekly.Type, weekly.ScheduledDate = domain.TaskWeekly, nil
	weekly.RepeatDays = domain.Weekdays(0).With(time.Tuesday)
	foreign := sampleTask("foreign", "u2")

	err := db.InTx(ctx, func(tx domain.Tx) error {
		for _, task := range []domain.Task{daily, other, backlog, weekly, foreign} {
			if err := tx.InsertTask(ctx, task); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed error: %v", err)
	}

	all, _ := db.ListTasks(ctx, "u1", domain.TaskFilter{})
	if len(all) != 4 {
		t.Errorf("all = %d, want 4", len(all))
	}

	onTue, _ := db.ListTasks(ctx, "u1", domain.TaskFilter{Date: &tue})
	ids := map[string]bool{}
	for _, task := range onTue {
		ids[task.ID] = true
	}
	if len(onTue) != 2 || !ids["daily-tue"] || !ids["weekly-tue"] {
		t.Errorf("Tuesday tasks = %v", ids)
	}

	typ := domain.TaskBacklog
	backlogs, _ := db.ListTasks(ctx, "u1", domain.TaskFilter{Type: &typ})
	if len(backlogs) != 1 || backlogs[0].ID != "backlog" {
		t.Errorf("backlog filter = %+v", backlogs)
	}
}

// ─── Weekly Instances ───────────────────────────────────────────────────────

func TestWeeklyInstances_CascadeOnDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	tmpl := sampleTask("w1", "u1")
	tmpl.Type, tmpl.ScheduledDate = domain.TaskWeekly, nil
	tmpl.RepeatDays = domain.Weekdays(0).With(time.Tuesday)
	tue := date(2025, 7, 1)

	err := db.InTx(ctx, func(tx domain.Tx) error {
		if err := tx.InsertTask(ctx, tmpl); err != nil {
			return err
		}
		inst := domain.NewWeeklyInstance(&tmpl, tue)
		inst.CompletedFrequency = 1
		if err := tx.SaveWeeklyInstance(ctx, *inst); err != nil {
			return err
		}
		inst.CompletedFrequency = 2
		return tx.SaveWeeklyInstance(ctx, *inst)
	})
	if err != nil {
		t.Fatalf("seed error: %v", err)
	}

	list, _ := db.ListWeeklyInstances(ctx, "u1", tue)
	if len(list) != 1 || list[0].CompletedFrequency != 2 {
		t.Fatalf("instances = %+v", list)
	}

	err = db.InTx(ctx, func(tx domain.Tx) error { return tx.DeleteTask(ctx, "w1") })
	if err != nil {
		t.Fatalf("DeleteTask() error: %v", err)
	}
	list, _ = db.ListWeeklyInstances(ctx, "u1", tue)
	if len(list) != 0 {
		t.Errorf("instances survived template delete: %d", len(list))
	}
}

// ─── Day Logs & Journal ─────────────────────────────────────────────────────

func TestDayLogs_UpsertAndOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	err := db.InTx(ctx, func(tx domain.Tx) error {
		for d := 1; d <= 3; d++ {
			l := domain.NewDayLog("u1", date(2025, 7, d))
			l.TotalXP = d * 10
			if err := tx.SaveDayLog(ctx, *l); err != nil {
				return err
			}
		}
		l, err := tx.GetDayLog(ctx, "u1", date(2025, 7, 2))
		if err != nil {
			return err
		}
		l.TotalXP, l.TasksDone = 99, 4
		return tx.SaveDayLog(ctx, *l)
	})
	if err != nil {
		t.Fatalf("seed error: %v", err)
	}

	logs, err := db.DayLogs(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("DayLogs() error: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("len = %d, want 2", len(logs))
	}
	if !logs[0].Date.Equal(date(2025, 7, 3)) || logs[1].TotalXP != 99 {
		t.Errorf("logs = %+v", logs)
	}
}

func TestDayLogs_LegacyNullPossible(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	err := db.InTx(ctx, func(tx domain.Tx) error {
		return tx.SaveDayLog(ctx, domain.DayLog{UserID: "u1", Date: date(2025, 6, 1), TotalXP: 30, TasksDone: 2})
	})
	if err != nil {
		t.Fatalf("save error: %v", err)
	}
	logs, _ := db.DayLogs(ctx, "u1", 10)
	if len(logs) != 1 || logs[0].PossibleXP != nil {
		t.Fatalf("logs = %+v", logs)
	}
	if logs[0].Efficiency() != 50 {
		t.Errorf("legacy efficiency = %v, want 50", logs[0].Efficiency())
	}
}

func TestJournal_AppendNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	err := db.InTx(ctx, func(tx domain.Tx) error {
		for i, kind := range []domain.JournalKind{domain.JournalComplete, domain.JournalUncomplete} {
			e := domain.JournalEntry{
				UserID: "u1", TaskID: "t1", Date: date(2025, 7, 1),
				Kind: kind, Count: 1, XP: 60 - i*120, CreatedAt: time.Now(),
			}
			if err := tx.AppendJournal(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append error: %v", err)
	}

	entries, _ := db.JournalEntries(ctx, "u1", 10)
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Kind != domain.JournalUncomplete || entries[0].XP != -60 {
		t.Errorf("newest entry = %+v", entries[0])
	}
}

func TestJournal_TaskJournalOldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	var got []domain.JournalEntry
	err := db.InTx(ctx, func(tx domain.Tx) error {
		lines := []domain.JournalEntry{
			{UserID: "u1", TaskID: "t1", Date: date(2025, 7, 1), Kind: domain.JournalComplete, Count: 1, XP: 50},
			{UserID: "u1", TaskID: "t2", Date: date(2025, 7, 1), Kind: domain.JournalComplete, Count: 1, XP: 10},
			{UserID: "u1", TaskID: "t1", Date: date(2025, 7, 2), Kind: domain.JournalComplete, Count: 1, XP: 65},
		}
		for _, e := range lines {
			e.CreatedAt = time.Now()
			if err := tx.AppendJournal(ctx, e); err != nil {
				return err
			}
		}
		var err error
		got, err = tx.TaskJournal(ctx, "t1")
		return err
	})
	if err != nil {
		t.Fatalf("InTx() error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Date.Equal(date(2025, 7, 1)) || got[0].XP != 50 || got[1].XP != 65 {
		t.Errorf("entries = %+v, want oldest first", got)
	}
}
