package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Tier / Type Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestParseTier(t *testing.T) {
	got, err := ParseTier(" s ")
	if err != nil || got != TierS {
		t.Fatalf("ParseTier(\" s \") = %q, %v", got, err)
	}
	if _, err := ParseTier("Z"); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("ParseTier(Z) error = %v, want ErrInvalidTask", err)
	}
}

func TestParseTaskType(t *testing.T) {
	got, err := ParseTaskType("weekly")
	if err != nil || got != TaskWeekly {
		t.Fatalf("ParseTaskType(weekly) = %q, %v", got, err)
	}
	if _, err := ParseTaskType("MONTHLY"); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("ParseTaskType(MONTHLY) error = %v, want ErrInvalidTask", err)
	}
}

func TestNormalizeCategory(t *testing.T) {
	if got := NormalizeCategory(""); got != DefaultCategory {
		t.Errorf("empty category = %q, want %q", got, DefaultCategory)
	}
	if got := NormalizeCategory(" code "); got != "CODE" {
		t.Errorf("category = %q, want CODE", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Weekdays Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestParseWeekdays(t *testing.T) {
	w, err := ParseWeekdays("5, 1,3")
	if err != nil {
		t.Fatalf("ParseWeekdays: %v", err)
	}
	if w.String() != "1,3,5" {
		t.Errorf("String() = %q, want 1,3,5", w.String())
	}
	if !w.Has(time.Monday) || w.Has(time.Sunday) {
		t.Errorf("Has mismatch for %v", w.Days())
	}
	if _, err := ParseWeekdays("7"); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("ParseWeekdays(7) error = %v, want ErrInvalidTask", err)
	}
}

func TestWeekdaysJSON(t *testing.T) {
	var w Weekdays
	if err := json.Unmarshal([]byte(`[6,0]`), &w); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if w.String() != "0,6" {
		t.Errorf("list decode = %q, want 0,6", w.String())
	}
	if err := json.Unmarshal([]byte(`"2,4"`), &w); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	b, _ := json.Marshal(w)
	if string(b) != `"2,4"` {
		t.Errorf("marshal = %s, want \"2,4\"", b)
	}
	b, _ = json.Marshal(Weekdays(0))
	if string(b) != "null" {
		t.Errorf("empty marshal = %s, want null", b)
	}
	if err := json.Unmarshal([]byte(`{"x":1}`), &w); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("object decode error = %v, want ErrInvalidTask", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestProgressState(t *testing.T) {
	p := NewProgress(3)
	if p.State() != StatePending {
		t.Errorf("new progress state = %s", p.State())
	}
	p.CompletedFrequency = 2
	if p.State() != StatePartial || p.Remaining() != 1 {
		t.Errorf("partial: state=%s remaining=%d", p.State(), p.Remaining())
	}
	p.CompletedFrequency = 3
	if p.State() != StateDone || p.Remaining() != 0 {
		t.Errorf("done: state=%s remaining=%d", p.State(), p.Remaining())
	}
}

func TestNewProgress_MinimumFrequency(t *testing.T) {
	if p := NewProgress(0); p.Frequency != 1 {
		t.Errorf("Frequency = %d, want 1", p.Frequency)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Task Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestTaskJSON_PlannedDateAlias(t *testing.T) {
	d := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	task := Task{ID: "t1", Tier: TierA, Type: TaskDaily, ScheduledDate: &d, Progress: NewProgress(2)}
	b, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["plannedDate"] != m["scheduledDate"] || m["plannedDate"] == nil {
		t.Errorf("plannedDate=%v scheduledDate=%v", m["plannedDate"], m["scheduledDate"])
	}
	if m["frequency"] != float64(2) {
		t.Errorf("frequency = %v, want 2 (progress fields flattened)", m["frequency"])
	}
	if !strings.Contains(string(b), `"repeatDays":null`) {
		t.Errorf("repeatDays not null in %s", b)
	}
}

func TestTaskRecursOn(t *testing.T) {
	w, _ := ParseWeekdays("2")
	task := Task{Type: TaskWeekly, RepeatDays: w}
	tue := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if !task.RecursOn(tue) {
		t.Error("expected recurrence on Tuesday")
	}
	if task.RecursOn(tue.AddDate(0, 0, 1)) {
		t.Error("unexpected recurrence on Wednesday")
	}
	task.Type = TaskDaily
	if task.RecursOn(tue) {
		t.Error("daily task must not recur")
	}
}

func TestTaskHasDuration(t *testing.T) {
	var task Task
	if task.HasDuration() {
		t.Error("nil duration reported")
	}
	zero := 0
	task.AllocatedDuration = &zero
	if task.HasDuration() {
		t.Error("zero duration reported")
	}
	thirty := 30
	task.AllocatedDuration = &thirty
	if !task.HasDuration() {
		t.Error("30 minutes not reported")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// DayLog Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestDayLogEfficiency(t *testing.T) {
	possible := func(n int) *int { return &n }
	tests := []struct {
		name string
		log  DayLog
		want float64
	}{
		{"nothing possible", DayLog{PossibleXP: possible(0)}, 100},
		{"half", DayLog{TotalXP: 50, PossibleXP: possible(100)}, 50},
		{"capped", DayLog{TotalXP: 163, PossibleXP: possible(125)}, 100},
		{"legacy", DayLog{TotalXP: 30, TasksDone: 2}, 50},
		{"legacy empty", DayLog{}, 100},
	}
	for _, tt := range tests {
		if got := tt.log.Efficiency(); got != tt.want {
			t.Errorf("%s: Efficiency = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	in := time.Date(2025, 7, 2, 5, 0, 0, 0, loc) // 2025-07-01 20:00 UTC
	if got := DateKey(in); got != "2025-07-01" {
		t.Errorf("DateKey = %q, want 2025-07-01", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Nullable Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestNullable(t *testing.T) {
	var req struct {
		Deadline Nullable[string] `json:"deadline"`
		Duration Nullable[int]    `json:"allocatedDuration"`
		Title    Nullable[string] `json:"title"`
	}
	if err := json.Unmarshal([]byte(`{"deadline":null,"allocatedDuration":45}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !req.Deadline.Set || req.Deadline.Value != nil {
		t.Errorf("deadline = %+v, want explicit null", req.Deadline)
	}
	if !req.Duration.Set || req.Duration.Value == nil || *req.Duration.Value != 45 {
		t.Errorf("duration = %+v, want 45", req.Duration)
	}
	if req.Title.Set {
		t.Error("absent title marked set")
	}
}
