package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gitgud-app/gitgud/internal/app/engagement"
	"github.com/gitgud-app/gitgud/internal/domain"
	"github.com/gitgud-app/gitgud/internal/infra/metrics"
)

// ─── Possible XP bookkeeping ────────────────────────────────────────────────

// Contribution returns the possible XP a task adds to its scheduled day.
// Only DAILY tasks with a date contribute.
func Contribution(t *domain.Task) (day time.Time, xp int, ok bool) {
	if t.Type != domain.TaskDaily || t.ScheduledDate == nil {
		return time.Time{}, 0, false
	}
	return domain.DateOf(*t.ScheduledDate), engagement.PossibleXP(t.Tier, t.HasDuration()), true
}

// DayChange is a delta bound to one calendar day.
type DayChange struct {
	Day   time.Time
	Delta DayLogDelta
}

// dayLogSet merges deltas per day, keeping first-seen order.
type dayLogSet struct {
	order []string
	days  map[string]*DayChange
}

func (s *dayLogSet) add(day time.Time, d DayLogDelta) {
	if d.IsZero() {
		return
	}
	if s.days == nil {
		s.days = make(map[string]*DayChange)
	}
	key := domain.DateKey(day)
	if c, ok := s.days[key]; ok {
		c.Delta = c.Delta.Add(d)
		return
	}
	s.order = append(s.order, key)
	s.days[key] = &DayChange{Day: domain.DateOf(day), Delta: d}
}

func (s *dayLogSet) list() []DayChange {
	out := make([]DayChange, 0, len(s.order))
	for _, k := range s.order {
		if c := s.days[k]; !c.Delta.IsZero() {
			out = append(out, *c)
		}
	}
	return out
}

// applyChanges writes a set of day changes and their journal lines.
// Positive possible XP may create a rollup; anything else only touches
// existing rows.
func (s *Service) applyChanges(ctx context.Context, tx domain.Tx, op, userID, taskID string,
	changes []DayChange, kind domain.JournalKind) ([]Clamp, error) {

	var clamps []Clamp
	for _, c := range changes {
		create := c.Delta.PossibleXP > 0 && c.Delta.TotalXP >= 0
		cl, err := s.applyDayLog(ctx, tx, op, userID, taskID, c.Day, c.Delta, create)
		if err != nil {
			return nil, err
		}
		clamps = append(clamps, cl...)

		if c.Delta.TotalXP != 0 {
			if err := s.journal(ctx, tx, userID, taskID, c.Day, kind, 0, c.Delta.TotalXP); err != nil {
				return nil, err
			}
		}
		if c.Delta.PossibleXP != 0 {
			if err := s.journal(ctx, tx, userID, taskID, c.Day, domain.JournalPossible, 0, c.Delta.PossibleXP); err != nil {
				return nil, err
			}
		}
	}
	return clamps, nil
}

// ─── Create ─────────────────────────────────────────────────────────────────

// CreateRequest describes a new task. Zero values take defaults: tier C,
// category LIFE, frequency 1.
type CreateRequest struct {
	Title             string
	Type              domain.TaskType
	Tier              domain.Tier
	Category          string
	ScheduledDate     *time.Time
	Deadline          *time.Time
	DeadlineTime      *time.Time
	AllocatedDuration *int
	Frequency         int
	RepeatDays        domain.Weekdays
}

// Create inserts a task and adds its possible XP to its scheduled day.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*domain.Task, error) {
	now := s.now()
	task := domain.Task{
		ID:                s.newID(),
		UserID:            userID,
		Title:             strings.TrimSpace(req.Title),
		Tier:              req.Tier,
		Category:          domain.NormalizeCategory(req.Category),
		Type:              req.Type,
		ScheduledDate:     req.ScheduledDate,
		Deadline:          req.Deadline,
		DeadlineTime:      req.DeadlineTime,
		AllocatedDuration: req.AllocatedDuration,
		RepeatDays:        req.RepeatDays,
		Progress:          domain.NewProgress(req.Frequency),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if task.Tier == "" {
		task.Tier = domain.TierC
	}
	if req.Frequency < 0 {
		return nil, fmt.Errorf("%w: frequency must be at least 1", domain.ErrInvalidTask)
	}
	if err := normalizeTask(&task, now); err != nil {
		return nil, err
	}

	err := s.run(ctx, "create", func(tx domain.Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		if err := tx.InsertTask(ctx, task); err != nil {
			return err
		}

		var set dayLogSet
		if day, xp, ok := Contribution(&task); ok {
			set.add(day, DayLogDelta{PossibleXP: xp})
		}
		clamps, err := s.applyChanges(ctx, tx, "create", userID, task.ID, set.list(), domain.JournalPossible)
		if err != nil {
			return err
		}
		s.reportClamps(ctx, "create", userID, task.ID, clamps)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// normalizeTask validates a task and clears fields its type does not use.
// A DAILY task without a date is scheduled for today.
func normalizeTask(t *domain.Task, today time.Time) error {
	if t.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidTask)
	}
	if !t.Tier.Valid() {
		return fmt.Errorf("%w: unknown tier %q", domain.ErrInvalidTask, t.Tier)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidTask, t.Type)
	}
	if t.Frequency < 1 {
		return fmt.Errorf("%w: frequency must be at least 1", domain.ErrInvalidTask)
	}
	if t.AllocatedDuration != nil {
		if *t.AllocatedDuration < 0 {
			return fmt.Errorf("%w: allocatedDuration must not be negative", domain.ErrInvalidTask)
		}
		if *t.AllocatedDuration == 0 {
			t.AllocatedDuration = nil
		}
	}

	switch t.Type {
	case domain.TaskWeekly:
		if t.RepeatDays == 0 {
			return fmt.Errorf("%w: weekly tasks need repeatDays", domain.ErrInvalidTask)
		}
		t.ScheduledDate = nil
	case domain.TaskDaily:
		t.RepeatDays = 0
		if t.ScheduledDate == nil {
			d := domain.DateOf(today)
			t.ScheduledDate = &d
		}
	default:
		t.RepeatDays = 0
	}
	if t.ScheduledDate != nil {
		d := domain.DateOf(*t.ScheduledDate)
		t.ScheduledDate = &d
	}
	return nil
}

// ─── Update ─────────────────────────────────────────────────────────────────

// UpdateRequest is a partial edit. Nil pointers and unset Nullables leave
// the field unchanged; a Nullable set to null clears it.
type UpdateRequest struct {
	TaskID            string
	Title             *string
	Type              *domain.TaskType
	Tier              *domain.Tier
	Category          *string
	ScheduledDate     domain.Nullable[time.Time]
	Deadline          domain.Nullable[time.Time]
	DeadlineTime      domain.Nullable[time.Time]
	AllocatedDuration domain.Nullable[int]
	Frequency         *int
	RepeatDays        *domain.Weekdays
}

// Update edits a task and moves its possible XP when its type, day, tier or
// duration changes.
func (s *Service) Update(ctx context.Context, userID string, req UpdateRequest) (*domain.Task, error) {
	var updated domain.Task
	now := s.now()
	today := domain.DateOf(now)

	err := s.run(ctx, "update", func(tx domain.Tx) error {
		_, task, err := loadOwned(ctx, tx, userID, req.TaskID)
		if err != nil {
			return err
		}
		old := *task

		var instances []domain.WeeklyInstance
		if old.Type == domain.TaskWeekly {
			if instances, err = tx.ListInstancesForTask(ctx, task.ID); err != nil {
				return err
			}
		}

		if err := applyEdits(task, req, today, len(instances) > 0); err != nil {
			return err
		}
		if err := normalizeTask(task, today); err != nil {
			return err
		}
		task.UpdatedAt = now

		set := planEdit(&old, task, instances, today)
		if err := tx.UpdateTask(ctx, *task); err != nil {
			return err
		}
		clamps, err := s.applyChanges(ctx, tx, "update", userID, task.ID, set.list(), domain.JournalPossible)
		if err != nil {
			return err
		}
		s.reportClamps(ctx, "update", userID, task.ID, clamps)
		updated = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// applyEdits copies the requested fields onto t, rejecting edits that would
// desynchronise recorded progress.
func applyEdits(t *domain.Task, req UpdateRequest, today time.Time, hasInstances bool) error {
	hasProgress := t.CompletedFrequency > 0

	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Category != nil {
		t.Category = domain.NormalizeCategory(*req.Category)
	}
	if req.Tier != nil {
		t.Tier = *req.Tier
	}
	if req.Type != nil && *req.Type != t.Type {
		if t.Type == domain.TaskWeekly || *req.Type == domain.TaskWeekly {
			if hasProgress || hasInstances {
				return fmt.Errorf("%w: cannot change the type of a task with weekly history", domain.ErrInvalidState)
			}
		}
		t.Type = *req.Type
		switch t.Type {
		case domain.TaskDaily:
			if t.ScheduledDate == nil && !req.ScheduledDate.Set {
				d := domain.DateOf(today)
				t.ScheduledDate = &d
			}
		case domain.TaskBacklog:
			if !req.ScheduledDate.Set {
				t.ScheduledDate = nil
			}
		}
	}
	if req.ScheduledDate.Set {
		t.ScheduledDate = req.ScheduledDate.Value
	}
	if req.Deadline.Set {
		t.Deadline = req.Deadline.Value
	}
	if req.DeadlineTime.Set {
		t.DeadlineTime = req.DeadlineTime.Value
	}
	if req.AllocatedDuration.Set {
		t.AllocatedDuration = req.AllocatedDuration.Value
	}
	if req.RepeatDays != nil {
		t.RepeatDays = *req.RepeatDays
	}
	if req.Frequency != nil && *req.Frequency != t.Frequency {
		if *req.Frequency < 1 {
			return fmt.Errorf("%w: frequency must be at least 1", domain.ErrInvalidTask)
		}
		if hasProgress {
			return fmt.Errorf("%w: cannot change frequency once progress is recorded", domain.ErrInvalidState)
		}
		t.Frequency = *req.Frequency
	}
	return nil
}

// planEdit returns the rollup changes moving a task from old to cur.
func planEdit(old, cur *domain.Task, instances []domain.WeeklyInstance, today time.Time) *dayLogSet {
	set := &dayLogSet{}

	oldDay, oldXP, oldOK := Contribution(old)
	newDay, newXP, newOK := Contribution(cur)
	if oldOK != newOK || !oldDay.Equal(newDay) || oldXP != newXP {
		if oldOK {
			set.add(oldDay, DayLogDelta{PossibleXP: -oldXP})
		}
		if newOK {
			set.add(newDay, DayLogDelta{PossibleXP: newXP})
		}
	}

	tierChanged := old.Tier != cur.Tier
	if tierChanged && old.State() == domain.StateDone {
		day := ReversalDate(old, today)
		set.add(day, tierDelta(old.Tier, -1).Add(tierDelta(cur.Tier, 1)))
	}

	oldPossible := engagement.PossibleXP(old.Tier, old.HasDuration())
	newPossible := engagement.PossibleXP(cur.Tier, cur.HasDuration())
	for _, inst := range instances {
		d := DayLogDelta{PossibleXP: newPossible - oldPossible}
		if tierChanged && inst.State() == domain.StateDone {
			d = d.Add(tierDelta(old.Tier, -1)).Add(tierDelta(cur.Tier, 1))
		}
		set.add(inst.Date, d)
	}
	return set
}

// ─── Delete ─────────────────────────────────────────────────────────────────

// Removal is everything deleting a task reverses.
type Removal struct {
	Days      []DayChange
	User      UserDelta
	XPRemoved int
}

// PlanRemoval reverses a task's possible XP and every point it earned. A
// weekly template reverses each instance on that instance's own day; other
// tasks give XP back from the earned days (see Earnings), newest first.
func PlanRemoval(t *domain.Task, instances []domain.WeeklyInstance, earned []DayShare, today time.Time) Removal {
	var set dayLogSet
	removed := 0

	if t.Type == domain.TaskWeekly {
		possible := engagement.PossibleXP(t.Tier, t.HasDuration())
		for _, inst := range instances {
			d := DayLogDelta{TotalXP: -inst.FinalPoints, PossibleXP: -possible}
			if inst.State() == domain.StateDone {
				d = d.Add(DayLogDelta{TasksDone: -1}).Add(tierDelta(t.Tier, -1))
			}
			set.add(inst.Date, d)
			removed += inst.FinalPoints
		}
	} else {
		if day, xp, ok := Contribution(t); ok {
			set.add(day, DayLogDelta{PossibleXP: -xp})
		}
		if t.CompletedFrequency > 0 || t.FinalPoints > 0 {
			day := ReversalDate(t, today)
			if t.State() == domain.StateDone {
				set.add(day, DayLogDelta{TasksDone: -1}.Add(tierDelta(t.Tier, -1)))
			}
			for _, sh := range SplitReversal(earned, t.CompletedFrequency, t.FinalPoints, day) {
				set.add(sh.Day, DayLogDelta{TotalXP: -sh.XP})
			}
			removed = t.FinalPoints
		}
	}

	return Removal{Days: set.list(), User: UserDelta{XP: -removed}, XPRemoved: removed}
}

// DeleteResult reports what a deletion reclaimed.
type DeleteResult struct {
	XPRemoved int `json:"xpRemoved"`
}

// Delete removes a task, reversing its possible XP and reclaiming its earned
// points from the owner and the rollups.
func (s *Service) Delete(ctx context.Context, userID, taskID string) (*DeleteResult, error) {
	var removal Removal
	today := domain.DateOf(s.now())

	err := s.run(ctx, "delete", func(tx domain.Tx) error {
		user, task, err := loadOwned(ctx, tx, userID, taskID)
		if err != nil {
			return err
		}

		var instances []domain.WeeklyInstance
		var earned []DayShare
		if task.Type == domain.TaskWeekly {
			if instances, err = tx.ListInstancesForTask(ctx, task.ID); err != nil {
				return err
			}
		} else if task.CompletedFrequency > 0 || task.FinalPoints > 0 {
			entries, err := tx.TaskJournal(ctx, task.ID)
			if err != nil {
				return err
			}
			earned = Earnings(entries)
		}

		removal = PlanRemoval(task, instances, earned, today)

		clamps, err := s.applyChanges(ctx, tx, "delete", userID, task.ID, removal.Days, domain.JournalDelete)
		if err != nil {
			return err
		}
		if removal.XPRemoved != 0 {
			clamps = append(clamps, removal.User.Apply(user)...)
			if err := tx.UpdateUser(ctx, *user); err != nil {
				return err
			}
		}
		if err := tx.DeleteTask(ctx, task.ID); err != nil {
			return err
		}
		s.reportClamps(ctx, "delete", userID, task.ID, clamps)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.XPReclaimed.Add(float64(removal.XPRemoved))
	return &DeleteResult{XPRemoved: removal.XPRemoved}, nil
}
