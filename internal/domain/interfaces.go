package domain

import (
	"context"
	"time"
)

// ─── Storage Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the ledger depends on them.
// Lookups return (nil, nil) when the row does not exist.

// Store is the persistent backing of the ledger.
type Store interface {
	Reader

	// InTx runs fn inside one transaction. fn's error rolls back.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Reader serves reads that do not participate in a ledger mutation.
type Reader interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, u User) error
	ListTasks(ctx context.Context, userID string, f TaskFilter) ([]Task, error)
	ListWeeklyInstances(ctx context.Context, userID string, day time.Time) ([]WeeklyInstance, error)
	DayLogs(ctx context.Context, userID string, limit int) ([]DayLog, error)
	JournalEntries(ctx context.Context, userID string, limit int) ([]JournalEntry, error)
}

// Tx is the read-then-write view used by a single ledger operation.
// Task and user reads lock their rows where the backend supports it.
type Tx interface {
	GetTask(ctx context.Context, id string) (*Task, error)
	InsertTask(ctx context.Context, t Task) error
	UpdateTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, id string) error

	GetUser(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, u User) error

	GetDayLog(ctx context.Context, userID string, day time.Time) (*DayLog, error)
	SaveDayLog(ctx context.Context, d DayLog) error

	GetWeeklyInstance(ctx context.Context, taskID string, day time.Time) (*WeeklyInstance, error)
	ListInstancesForTask(ctx context.Context, taskID string) ([]WeeklyInstance, error)
	SaveWeeklyInstance(ctx context.Context, w WeeklyInstance) error

	AppendJournal(ctx context.Context, e JournalEntry) error
	// TaskJournal returns every journal line of one task, oldest first.
	TaskJournal(ctx context.Context, taskID string) ([]JournalEntry, error)
}
