// Package ledger implements the completion ledger: the rules that turn a
// completion, reversal, edit or deletion of a task into one consistent set
// of mutations across the task, its owner's profile and the per-day rollups.
//
// Planners (PlanComplete, PlanUncomplete, PlanRemoval) are pure. Service
// methods load the records, run a planner and apply its deltas inside a
// single store transaction.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gitgud-app/gitgud/internal/domain"
	"github.com/gitgud-app/gitgud/internal/infra/metrics"
)

// Options toggles optional reward rules.
type Options struct {
	// DiminishingReturns scales repeated same-tier completions within a day.
	DiminishingReturns bool
}

// Service runs ledger operations against a store.
type Service struct {
	store domain.Store
	opts  Options
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

// NewService creates a ledger service. A nil logger uses slog.Default.
func NewService(store domain.Store, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: store,
		opts:  opts,
		log:   logger.With(slog.String("component", "ledger")),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// SetClock replaces the wall clock. Tests use it to pin "today".
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Store returns the backing store.
func (s *Service) Store() domain.Store {
	return s.store
}

// run executes fn in one transaction and records its outcome.
func (s *Service) run(ctx context.Context, op string, fn func(tx domain.Tx) error) error {
	start := time.Now()
	err := s.store.InTx(ctx, fn)
	metrics.LedgerLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.LedgerOps.WithLabelValues(op, result).Inc()
	return err
}

// reportClamps logs and counts integrity violations. They never fail the
// operation.
func (s *Service) reportClamps(ctx context.Context, op, userID, taskID string, clamps []Clamp) {
	for _, c := range clamps {
		metrics.IntegrityClamps.WithLabelValues(c.Field).Inc()
		s.log.WarnContext(ctx, "ledger integrity violation: value clamped at zero",
			slog.String("op", op),
			slog.String("user_id", userID),
			slog.String("task_id", taskID),
			slog.String("field", c.Field),
			slog.Int("attempted", c.Attempted),
		)
	}
}

// reportMissingDayLog logs a reversal whose target day has no rollup.
func (s *Service) reportMissingDayLog(ctx context.Context, op, userID, taskID string, day time.Time) {
	metrics.IntegrityClamps.WithLabelValues("daylog.missing").Inc()
	s.log.WarnContext(ctx, "ledger integrity violation: no day log to reverse",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("task_id", taskID),
		slog.String("date", domain.DateKey(day)),
	)
}

// loadOwned locks the user and the task, enforcing ownership. A task owned by
// someone else is reported as not found.
func loadOwned(ctx context.Context, tx domain.Tx, userID, taskID string) (*domain.User, *domain.Task, error) {
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, domain.ErrUserNotFound
	}
	task, err := tx.GetTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if task == nil || task.UserID != userID {
		return nil, nil, domain.ErrTaskNotFound
	}
	return user, task, nil
}

// applyDayLog loads the rollup for day, applies d and saves it. When create
// is false and no row exists the change is reported and skipped.
func (s *Service) applyDayLog(ctx context.Context, tx domain.Tx, op, userID, taskID string, day time.Time, d DayLogDelta, create bool) ([]Clamp, error) {
	if d.IsZero() {
		return nil, nil
	}
	l, err := tx.GetDayLog(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if l == nil {
		if !create {
			s.reportMissingDayLog(ctx, op, userID, taskID, day)
			return nil, nil
		}
		l = domain.NewDayLog(userID, day)
	}
	clamps := d.Apply(l)
	if err := tx.SaveDayLog(ctx, *l); err != nil {
		return nil, err
	}
	return clamps, nil
}

func (s *Service) journal(ctx context.Context, tx domain.Tx, userID, taskID string, day time.Time, kind domain.JournalKind, count, xp int) error {
	return tx.AppendJournal(ctx, domain.JournalEntry{
		UserID:    userID,
		TaskID:    taskID,
		Date:      domain.DateOf(day),
		Kind:      kind,
		Count:     count,
		XP:        xp,
		CreatedAt: s.now(),
	})
}
