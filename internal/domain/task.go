// Package domain holds the ledger's pure types: tasks, users, day logs,
// the journal, sentinel errors and the storage boundary.
//
// A Task is a unit of personal work that flows through the ledger:
// create → schedule → tick (complete/uncomplete) → delete.
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ─── Tier ───────────────────────────────────────────────────────────────────

// Tier ranks a task by reward weight: S > A > B > C.
type Tier string

const (
	TierS Tier = "S" // Critical (projects, exams)
	TierA Tier = "A" // Important (coding, DSA)
	TierB Tier = "B" // Maintenance (assignments, classes)
	TierC Tier = "C" // Chores (laundry, emails)
)

// Valid reports whether t is one of the four known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierS, TierA, TierB, TierC:
		return true
	}
	return false
}

// ParseTier normalizes and validates a tier string.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown tier %q", ErrInvalidTask, s)
	}
	return t, nil
}

// ─── Task Type ──────────────────────────────────────────────────────────────

// TaskType is the lifecycle type of a task.
type TaskType string

const (
	TaskBacklog TaskType = "BACKLOG"
	TaskDaily   TaskType = "DAILY"
	TaskWeekly  TaskType = "WEEKLY" // template, recurs on RepeatDays
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskBacklog, TaskDaily, TaskWeekly:
		return true
	}
	return false
}

// ParseTaskType normalizes and validates a task type string.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidTask, s)
	}
	return t, nil
}

// DefaultCategory is used when a task is created without one.
const DefaultCategory = "LIFE"

// NormalizeCategory upper-cases a free-form category, defaulting to LIFE.
func NormalizeCategory(s string) string {
	c := strings.ToUpper(strings.TrimSpace(s))
	if c == "" {
		return DefaultCategory
	}
	return c
}

// ─── Weekdays ───────────────────────────────────────────────────────────────

// Weekdays is a bitset of repeat days. Bit i is time.Weekday(i),
// so Sunday is bit 0, matching the client's getDay() numbering.
type Weekdays uint8

// Has reports whether d is set.
func (w Weekdays) Has(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

// With returns w with d set.
func (w Weekdays) With(d time.Weekday) Weekdays {
	return w | (1 << uint(d))
}

// Days returns the set days in ascending order.
func (w Weekdays) Days() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// String renders the set as "1,3,5".
func (w Weekdays) String() string {
	days := w.Days()
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

// ParseWeekdays parses "1,3,5" (0 = Sunday … 6 = Saturday).
func ParseWeekdays(s string) (Weekdays, error) {
	var w Weekdays
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			return 0, fmt.Errorf("%w: bad repeat day %q", ErrInvalidTask, part)
		}
		w = w.With(time.Weekday(n))
	}
	return w, nil
}

// MarshalJSON encodes the set as the client's comma string, or null when empty.
func (w Weekdays) MarshalJSON() ([]byte, error) {
	if w == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(w.String())
}

// UnmarshalJSON accepts "1,3,5", [1,3,5] or null.
func (w *Weekdays) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*w = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := ParseWeekdays(s)
		if err != nil {
			return err
		}
		*w = parsed
		return nil
	}
	var nums []int
	if err := json.Unmarshal(b, &nums); err != nil {
		return fmt.Errorf("%w: repeatDays must be a string or list", ErrInvalidTask)
	}
	sort.Ints(nums)
	var out Weekdays
	for _, n := range nums {
		if n < 0 || n > 6 {
			return fmt.Errorf("%w: bad repeat day %d", ErrInvalidTask, n)
		}
		out = out.With(time.Weekday(n))
	}
	*w = out
	return nil
}

// ─── Progress ───────────────────────────────────────────────────────────────

// CompletionState is derived from a Progress block, never stored.
type CompletionState int

const (
	StatePending CompletionState = iota
	StatePartial
	StateDone
)

func (s CompletionState) String() string {
	switch s {
	case StatePartial:
		return "partially_done"
	case StateDone:
		return "done"
	default:
		return "pending"
	}
}

// Progress is the frequency-based completion block shared by tasks and
// weekly instances.
type Progress struct {
	Frequency          int        `json:"frequency"`
	CompletedFrequency int        `json:"completedFrequency"`
	IsCompleted        bool       `json:"isCompleted"`
	CompletedAt        *time.Time `json:"completedAt"`
	FinalPoints        int        `json:"finalPoints"`
	IsBonus            bool       `json:"isBonus"`
	DurationMet        bool       `json:"durationMet"`
}

// NewProgress returns an untouched block requiring frequency ticks.
func NewProgress(frequency int) Progress {
	if frequency < 1 {
		frequency = 1
	}
	return Progress{Frequency: frequency}
}

// State derives Pending / Partially-Done / Done.
func (p Progress) State() CompletionState {
	switch {
	case p.CompletedFrequency >= p.Frequency:
		return StateDone
	case p.CompletedFrequency > 0:
		return StatePartial
	default:
		return StatePending
	}
}

// Remaining is the number of ticks left before Done.
func (p Progress) Remaining() int {
	r := p.Frequency - p.CompletedFrequency
	if r < 0 {
		return 0
	}
	return r
}

// ─── Task ───────────────────────────────────────────────────────────────────

// Task is a unit of personal work owned by exactly one user.
type Task struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	Title             string     `json:"title"`
	Tier              Tier       `json:"tier"`
	Category          string     `json:"category"`
	Type              TaskType   `json:"type"`
	ScheduledDate     *time.Time `json:"scheduledDate"` // nil = backlog
	Deadline          *time.Time `json:"deadline"`
	DeadlineTime      *time.Time `json:"deadlineTime"`
	AllocatedDuration *int       `json:"allocatedDuration"` // minutes
	RepeatDays        Weekdays   `json:"repeatDays"`
	Progress
	ProgressDate *time.Time `json:"progressDate"` // day of the latest completing tick
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// MarshalJSON adds plannedDate, the client's alias of scheduledDate.
func (t Task) MarshalJSON() ([]byte, error) {
	type alias Task
	return json.Marshal(struct {
		alias
		PlannedDate *time.Time `json:"plannedDate"`
	}{alias(t), t.ScheduledDate})
}

// HasDuration reports whether the task carries an allocated duration,
// which makes it eligible for the duration bonus.
func (t *Task) HasDuration() bool {
	return t.AllocatedDuration != nil && *t.AllocatedDuration > 0
}

// RecursOn reports whether a weekly template has an instance on day.
func (t *Task) RecursOn(day time.Time) bool {
	return t.Type == TaskWeekly && t.RepeatDays.Has(day.Weekday())
}

// WeeklyInstance records progress on one day's occurrence of a weekly
// template. The template's own Progress is never completed.
type WeeklyInstance struct {
	TaskID string    `json:"taskId"`
	UserID string    `json:"userId"`
	Date   time.Time `json:"date"`
	Progress
}

// NewWeeklyInstance starts an instance of tmpl on day.
func NewWeeklyInstance(tmpl *Task, day time.Time) *WeeklyInstance {
	return &WeeklyInstance{
		TaskID:   tmpl.ID,
		UserID:   tmpl.UserID,
		Date:     DateOf(day),
		Progress: NewProgress(tmpl.Frequency),
	}
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	Type *TaskType
	Date *time.Time // DAILY tasks scheduled that day plus weekly templates recurring on it
}
