package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/gitgud-app/gitgud/internal/domain"
	"github.com/gitgud-app/gitgud/internal/infra/metrics"
)

// UncompleteRequest asks to reverse count ticks. Count nil means one tick.
type UncompleteRequest struct {
	TaskID string
	Count  *int
}

// UncompleteResult reports what a reversal removed.
type UncompleteResult struct {
	XPRemoved             int `json:"xpRemoved"`
	NewCompletedFrequency int `json:"newCompletedFrequency"`
}

// UncompletePlan is everything one reversal changes.
type UncompletePlan struct {
	Progress  domain.Progress
	Count     int
	XPRemoved int
	WasDone   bool
	User      UserDelta
	DayLog    DayLogDelta // TotalXP is split across earning days by the service
	Clamps    []Clamp
}

// PlanUncomplete computes a reversal of count ticks against p. XP comes back
// proportionally: round(finalPoints / completedFrequency × count). The
// streak is left untouched.
func PlanUncomplete(p domain.Progress, tier domain.Tier, req UncompleteRequest) (UncompletePlan, error) {
	if p.CompletedFrequency <= 0 {
		return UncompletePlan{}, domain.ErrNoProgress
	}

	count := 1
	if req.Count != nil {
		if *req.Count <= 0 {
			return UncompletePlan{}, fmt.Errorf("%w: got %d", domain.ErrInvalidCount, *req.Count)
		}
		count = *req.Count
	}
	if count > p.CompletedFrequency {
		count = p.CompletedFrequency
	}

	xp := int(math.Round(float64(p.FinalPoints) / float64(p.CompletedFrequency) * float64(count)))
	wasDone := p.State() == domain.StateDone

	var clamps []Clamp
	next := p
	next.CompletedFrequency -= count
	next.FinalPoints = clampAdd("task.finalPoints", p.FinalPoints, -xp, &clamps)
	next.IsCompleted = false
	next.CompletedAt = nil
	next.IsBonus = false
	next.DurationMet = false

	dayDelta := DayLogDelta{TotalXP: -xp}
	if wasDone {
		dayDelta = dayDelta.Add(DayLogDelta{TasksDone: -1}).Add(tierDelta(tier, -1))
	}

	return UncompletePlan{
		Progress:  next,
		Count:     count,
		XPRemoved: xp,
		WasDone:   wasDone,
		User:      UserDelta{XP: -xp},
		DayLog:    dayDelta,
		Clamps:    clamps,
	}, nil
}

// ReversalDate picks the rollup a task's earned XP is booked against:
// completion day, then latest tick day, then scheduled day, then today.
func ReversalDate(t *domain.Task, today time.Time) time.Time {
	switch {
	case t.CompletedAt != nil:
		return domain.DateOf(*t.CompletedAt)
	case t.ProgressDate != nil:
		return domain.DateOf(*t.ProgressDate)
	case t.ScheduledDate != nil:
		return domain.DateOf(*t.ScheduledDate)
	default:
		return domain.DateOf(today)
	}
}

// ─── Reversal split ─────────────────────────────────────────────────────────

// DayShare is the part of a task's ticks and XP held by one day.
type DayShare struct {
	Day   time.Time
	Ticks int
	XP    int
}

// Earnings nets a task's COMPLETE and UNCOMPLETE journal lines per day and
// returns the days still holding ticks or XP, newest first.
func Earnings(entries []domain.JournalEntry) []DayShare {
	byDay := make(map[string]*DayShare)
	for _, e := range entries {
		var ticks int
		switch e.Kind {
		case domain.JournalComplete:
			ticks = e.Count
		case domain.JournalUncomplete:
			ticks = -e.Count
		default:
			continue
		}
		key := domain.DateKey(e.Date)
		d, ok := byDay[key]
		if !ok {
			d = &DayShare{Day: domain.DateOf(e.Date)}
			byDay[key] = d
		}
		d.Ticks += ticks
		d.XP += e.XP
	}

	out := make([]DayShare, 0, len(byDay))
	for _, d := range byDay {
		if d.Ticks > 0 || d.XP > 0 {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.After(out[j].Day) })
	return out
}

// SplitReversal books ticks and xp against earned days newest first, taking
// no more from a day than it holds. What the journal cannot place lands on
// fallback.
func SplitReversal(earned []DayShare, ticks, xp int, fallback time.Time) []DayShare {
	var out []DayShare
	for _, e := range earned {
		if ticks <= 0 && xp <= 0 {
			break
		}
		sh := DayShare{Day: e.Day, Ticks: min(ticks, max(e.Ticks, 0)), XP: min(xp, max(e.XP, 0))}
		if sh.Ticks == 0 && sh.XP == 0 {
			continue
		}
		ticks -= sh.Ticks
		xp -= sh.XP
		out = append(out, sh)
	}
	if ticks <= 0 && xp <= 0 {
		return out
	}

	fallback = domain.DateOf(fallback)
	for i := range out {
		if out[i].Day.Equal(fallback) {
			out[i].Ticks += max(ticks, 0)
			out[i].XP += max(xp, 0)
			return out
		}
	}
	return append(out, DayShare{Day: fallback, Ticks: max(ticks, 0), XP: max(xp, 0)})
}

// Uncomplete reverses count ticks on a task owned by userID. Weekly templates
// are reversed through today's instance. Other tasks give XP back from the
// days it was earned on, newest first.
func (s *Service) Uncomplete(ctx context.Context, userID string, req UncompleteRequest) (*UncompleteResult, error) {
	var plan UncompletePlan
	now := s.now()
	today := domain.DateOf(now)

	err := s.run(ctx, "uncomplete", func(tx domain.Tx) error {
		user, task, err := loadOwned(ctx, tx, userID, req.TaskID)
		if err != nil {
			return err
		}

		weekly := task.Type == domain.TaskWeekly
		var inst *domain.WeeklyInstance
		progress := task.Progress
		day := ReversalDate(task, today)
		if weekly {
			if inst, err = tx.GetWeeklyInstance(ctx, task.ID, today); err != nil {
				return err
			}
			if inst == nil {
				return domain.ErrNoProgress
			}
			progress = inst.Progress
			day = inst.Date
		}

		plan, err = PlanUncomplete(progress, task.Tier, req)
		if err != nil {
			return err
		}

		shares := []DayShare{{Day: day, Ticks: plan.Count, XP: plan.XPRemoved}}
		if !weekly {
			entries, err := tx.TaskJournal(ctx, task.ID)
			if err != nil {
				return err
			}
			shares = SplitReversal(Earnings(entries), plan.Count, plan.XPRemoved, day)
		}

		if weekly {
			inst.Progress = plan.Progress
			if err := tx.SaveWeeklyInstance(ctx, *inst); err != nil {
				return err
			}
		} else {
			task.Progress = plan.Progress
			if task.CompletedFrequency == 0 {
				task.ProgressDate = nil
			}
			task.UpdatedAt = now
			if err := tx.UpdateTask(ctx, *task); err != nil {
				return err
			}
		}

		clamps := append([]Clamp(nil), plan.Clamps...)
		clamps = append(clamps, plan.User.Apply(user)...)
		if err := tx.UpdateUser(ctx, *user); err != nil {
			return err
		}

		// Done counters stay on the completion day; XP follows the shares.
		var set dayLogSet
		counters := plan.DayLog
		counters.TotalXP = 0
		set.add(day, counters)
		for _, sh := range shares {
			set.add(sh.Day, DayLogDelta{TotalXP: -sh.XP})
		}
		for _, c := range set.list() {
			dayClamps, err := s.applyDayLog(ctx, tx, "uncomplete", userID, task.ID, c.Day, c.Delta, false)
			if err != nil {
				return err
			}
			clamps = append(clamps, dayClamps...)
		}

		for _, sh := range shares {
			if err := s.journal(ctx, tx, userID, task.ID, sh.Day, domain.JournalUncomplete, sh.Ticks, -sh.XP); err != nil {
				return err
			}
		}
		s.reportClamps(ctx, "uncomplete", userID, task.ID, clamps)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.XPReclaimed.Add(float64(plan.XPRemoved))
	return &UncompleteResult{
		XPRemoved:             plan.XPRemoved,
		NewCompletedFrequency: plan.Progress.CompletedFrequency,
	}, nil
}
