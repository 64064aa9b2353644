package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/gitgud-app/gitgud/internal/app/engagement"
	"github.com/gitgud-app/gitgud/internal/domain"
	"github.com/gitgud-app/gitgud/internal/infra/metrics"
)

// CompleteRequest asks for count ticks on a task. Count nil means one tick.
type CompleteRequest struct {
	TaskID        string
	Count         *int
	IsWeeklyBonus bool
	DurationMet   bool
}

// CompleteResult is the XP breakdown returned to the client.
type CompleteResult struct {
	engagement.Reward
	NewStreak             int  `json:"newStreak"`
	IsFullyCompleted      bool `json:"isFullyCompleted"`
	NewCompletedFrequency int  `json:"newCompletedFrequency"`
}

// CompletePlan is everything one completion changes.
type CompletePlan struct {
	Progress  domain.Progress
	Reward    engagement.Reward
	Count     int
	Finished  bool
	NewStreak int
	User      UserDelta
	DayLog    DayLogDelta // applies to the day of now
}

// PlanComplete computes a completion of count ticks against p. day is
// today's rollup, or nil when none exists yet. isBonus is honoured only when
// weekly is set.
func PlanComplete(p domain.Progress, tier domain.Tier, weekly bool, user domain.User,
	day *domain.DayLog, req CompleteRequest, now time.Time, opts Options) (CompletePlan, error) {

	if p.State() == domain.StateDone {
		return CompletePlan{}, domain.ErrAlreadyCompleted
	}

	count := 1
	if req.Count != nil {
		if *req.Count <= 0 {
			return CompletePlan{}, fmt.Errorf("%w: got %d", domain.ErrInvalidCount, *req.Count)
		}
		count = *req.Count
	}
	if rem := p.Remaining(); count > rem {
		count = rem
	}
	if count < 1 {
		count = 1
	}

	tierCount := 0
	if day != nil {
		tierCount = day.TierCount(tier)
	}
	bonus := weekly && req.IsWeeklyBonus

	reward := engagement.FinalReward(engagement.RewardInput{
		Tier:           tier,
		TierCountToday: tierCount,
		StreakDays:     user.StreakDays,
		Count:          count,
		Frequency:      p.Frequency,
		DurationMet:    req.DurationMet,
		IsBonus:        bonus,
		Diminishing:    opts.DiminishingReturns,
	})

	today := domain.DateOf(now)
	newStreak := engagement.NextStreak(user.LastTaskDate, today, user.StreakDays)

	next := p
	next.CompletedFrequency += count
	next.FinalPoints += reward.Total
	next.IsBonus = bonus
	next.DurationMet = req.DurationMet
	finished := next.CompletedFrequency >= next.Frequency
	next.IsCompleted = finished
	if finished {
		at := now
		next.CompletedAt = &at
	}

	dayDelta := DayLogDelta{TotalXP: reward.Total, StreakAtEnd: &newStreak}
	if finished {
		dayDelta = dayDelta.Add(DayLogDelta{TasksDone: 1}).Add(tierDelta(tier, 1))
	}

	return CompletePlan{
		Progress:  next,
		Reward:    reward,
		Count:     count,
		Finished:  finished,
		NewStreak: newStreak,
		User:      UserDelta{XP: reward.Total, Streak: &newStreak, LastTaskDate: &today},
		DayLog:    dayDelta,
	}, nil
}

// Complete records count ticks on a task owned by userID. Weekly templates
// are completed through today's instance, created on its first tick.
func (s *Service) Complete(ctx context.Context, userID string, req CompleteRequest) (*CompleteResult, error) {
	var (
		plan CompletePlan
		tier domain.Tier
	)
	now := s.now()
	today := domain.DateOf(now)

	err := s.run(ctx, "complete", func(tx domain.Tx) error {
		user, task, err := loadOwned(ctx, tx, userID, req.TaskID)
		if err != nil {
			return err
		}
		tier = task.Tier

		dayLog, err := tx.GetDayLog(ctx, userID, today)
		if err != nil {
			return err
		}

		weekly := task.Type == domain.TaskWeekly
		var inst *domain.WeeklyInstance
		created := false
		progress := task.Progress
		if weekly {
			if inst, err = tx.GetWeeklyInstance(ctx, task.ID, today); err != nil {
				return err
			}
			if inst == nil {
				inst = domain.NewWeeklyInstance(task, today)
				created = true
			}
			progress = inst.Progress
		}

		plan, err = PlanComplete(progress, task.Tier, weekly, *user, dayLog, req, now, s.opts)
		if err != nil {
			return err
		}

		if weekly {
			inst.Progress = plan.Progress
			if err := tx.SaveWeeklyInstance(ctx, *inst); err != nil {
				return err
			}
		} else {
			task.Progress = plan.Progress
			task.ProgressDate = &today
			task.UpdatedAt = now
			if err := tx.UpdateTask(ctx, *task); err != nil {
				return err
			}
		}

		clamps := plan.User.Apply(user)
		if err := tx.UpdateUser(ctx, *user); err != nil {
			return err
		}

		dayDelta := plan.DayLog
		if created {
			possible := engagement.PossibleXP(task.Tier, task.HasDuration())
			dayDelta = dayDelta.Add(DayLogDelta{PossibleXP: possible})
			if err := s.journal(ctx, tx, userID, task.ID, today, domain.JournalPossible, 0, possible); err != nil {
				return err
			}
		}
		dayClamps, err := s.applyDayLog(ctx, tx, "complete", userID, task.ID, today, dayDelta, true)
		if err != nil {
			return err
		}
		clamps = append(clamps, dayClamps...)

		if err := s.journal(ctx, tx, userID, task.ID, today, domain.JournalComplete, plan.Count, plan.Reward.Total); err != nil {
			return err
		}
		s.reportClamps(ctx, "complete", userID, task.ID, clamps)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TicksCompleted.WithLabelValues(string(tier)).Add(float64(plan.Count))
	metrics.XPAwarded.Add(float64(plan.Reward.Total))
	if plan.Finished {
		metrics.TasksFinished.WithLabelValues(string(tier)).Inc()
	}

	return &CompleteResult{
		Reward:                plan.Reward,
		NewStreak:             plan.NewStreak,
		IsFullyCompleted:      plan.Finished,
		NewCompletedFrequency: plan.Progress.CompletedFrequency,
	}, nil
}
