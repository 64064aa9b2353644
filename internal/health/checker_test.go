package health

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gitgud-app/gitgud/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newBareChecker(checks ...Check) *Checker {
	return &Checker{checks: checks, timeout: time.Second, interval: time.Minute, log: slog.Default()}
}

type failingStore struct{ err error }

func (f failingStore) Ping(ctx context.Context) error { return f.err }

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestNewChecker(t *testing.T) {
	db := newTestDB(t)

	if c := NewChecker(db, t.TempDir(), nil); len(c.checks) != 2 {
		t.Errorf("embedded checks = %d, want 2", len(c.checks))
	}
	if c := NewChecker(db, "", nil); len(c.checks) != 1 {
		t.Errorf("server checks = %d, want 1", len(c.checks))
	}
}

func TestChecker_RunAllHealthy(t *testing.T) {
	db := newTestDB(t)
	c := NewChecker(db, t.TempDir(), nil)
	c.runAll(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("Statuses() = %d, want 2", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	c := NewChecker(newTestDB(t), t.TempDir(), nil)

	// No statuses before the first run, so IsHealthy is vacuously true.
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run (no statuses)")
	}
}

func TestChecker_StorageDown(t *testing.T) {
	c := NewChecker(failingStore{err: errors.New("connection refused")}, "", nil)

	err := c.Ping(context.Background())
	if err == nil {
		t.Fatal("Ping() should fail when storage is down")
	}
	if c.IsHealthy() {
		t.Error("IsHealthy() should be false after a failed round")
	}
	if s := c.Statuses()[0]; s.Name != "storage" || s.Error == "" {
		t.Errorf("status = %+v", s)
	}
}

func TestChecker_DataDirRecovered(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "gone")
	c := NewChecker(newTestDB(t), dataDir, nil)

	// The directory is recreated by the recovery action.
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		t.Errorf("data dir not recreated: %v", err)
	}
}

func TestChecker_DataDirIsFile(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "db")
	os.WriteFile(dataDir, []byte("not a dir"), 0644)

	c := NewChecker(newTestDB(t), dataDir, nil)
	c.runAll(context.Background())

	for _, s := range c.Statuses() {
		if s.Name == "data_dir" && s.Healthy {
			t.Error("data_dir should fail when path is a file")
		}
	}
}

func TestChecker_CustomCheck(t *testing.T) {
	c := newBareChecker(Check{
		Name: "always_pass",
		CheckFn: func(ctx context.Context) error {
			return nil
		},
	})

	c.runAll(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(statuses))
	}
	if !statuses[0].Healthy {
		t.Error("always_pass check should be healthy")
	}
}

func TestChecker_FailingCheck(t *testing.T) {
	recovered := 0
	c := newBareChecker(Check{
		Name: "always_fail",
		CheckFn: func(ctx context.Context) error {
			return os.ErrPermission
		},
		RecoverFn: func(ctx context.Context) error {
			recovered++
			return nil
		},
	})

	c.runAll(context.Background())

	statuses := c.Statuses()
	if statuses[0].Healthy {
		t.Error("always_fail check should not be healthy")
	}
	if statuses[0].Error == "" {
		t.Error("error message should be populated")
	}
	if recovered != 1 {
		t.Errorf("recover calls = %d, want 1", recovered)
	}
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	c := NewChecker(newTestDB(t), "", nil)
	c.SetInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if len(c.Statuses()) != 1 {
		t.Error("Run() did not record statuses")
	}
}

func TestChecker_StatusesCopy(t *testing.T) {
	c := NewChecker(newTestDB(t), t.TempDir(), nil)
	c.runAll(context.Background())

	s1 := c.Statuses()
	s2 := c.Statuses()

	// Verify it's a copy, not the same slice
	if len(s1) > 0 {
		s1[0].Healthy = false
		if !s2[0].Healthy {
			t.Error("Statuses() should return a copy, not a reference")
		}
	}
}
