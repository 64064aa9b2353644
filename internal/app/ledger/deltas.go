package ledger

import (
	"time"

	"github.com/gitgud-app/gitgud/internal/app/engagement"
	"github.com/gitgud-app/gitgud/internal/domain"
)

// Clamp records a stored counter that would have gone negative.
// Clamps are integrity violations: logged and counted, never returned.
type Clamp struct {
	Field     string
	Attempted int
}

func clampAdd(field string, cur, delta int, clamps *[]Clamp) int {
	v := cur + delta
	if v < 0 {
		*clamps = append(*clamps, Clamp{Field: field, Attempted: v})
		return 0
	}
	return v
}

// ─── User ───────────────────────────────────────────────────────────────────

// UserDelta is the change a ledger operation makes to a user's profile.
type UserDelta struct {
	XP           int
	Streak       *int       // nil leaves the streak untouched
	LastTaskDate *time.Time // nil leaves it untouched
}

// Apply mutates u and recomputes its level.
func (d UserDelta) Apply(u *domain.User) []Clamp {
	var clamps []Clamp
	u.XP = clampAdd("user.xp", u.XP, d.XP, &clamps)
	u.Level = engagement.LevelForXP(u.XP)
	if d.Streak != nil {
		u.StreakDays = *d.Streak
	}
	if d.LastTaskDate != nil {
		last := domain.DateOf(*d.LastTaskDate)
		u.LastTaskDate = &last
	}
	return clamps
}

// ─── DayLog ─────────────────────────────────────────────────────────────────

// DayLogDelta is the change a ledger operation makes to one day's rollup.
type DayLogDelta struct {
	TotalXP     int
	TasksDone   int
	PossibleXP  int
	CTierCount  int
	STierCount  int
	StreakAtEnd *int
}

// tierDelta returns a delta moving the tier counter of t by n.
func tierDelta(t domain.Tier, n int) DayLogDelta {
	switch t {
	case domain.TierC:
		return DayLogDelta{CTierCount: n}
	case domain.TierS:
		return DayLogDelta{STierCount: n}
	}
	return DayLogDelta{}
}

// Add merges two deltas. o's StreakAtEnd wins when set.
func (d DayLogDelta) Add(o DayLogDelta) DayLogDelta {
	d.TotalXP += o.TotalXP
	d.TasksDone += o.TasksDone
	d.PossibleXP += o.PossibleXP
	d.CTierCount += o.CTierCount
	d.STierCount += o.STierCount
	if o.StreakAtEnd != nil {
		d.StreakAtEnd = o.StreakAtEnd
	}
	return d
}

// IsZero reports whether applying d would change nothing.
func (d DayLogDelta) IsZero() bool {
	return d.TotalXP == 0 && d.TasksDone == 0 && d.PossibleXP == 0 &&
		d.CTierCount == 0 && d.STierCount == 0 && d.StreakAtEnd == nil
}

// Apply mutates l. A legacy row with no possibleXP starts from zero once
// possible XP moves.
func (d DayLogDelta) Apply(l *domain.DayLog) []Clamp {
	var clamps []Clamp
	l.TotalXP = clampAdd("daylog.totalXP", l.TotalXP, d.TotalXP, &clamps)
	l.TasksDone = clampAdd("daylog.tasksDone", l.TasksDone, d.TasksDone, &clamps)
	l.CTierCount = clampAdd("daylog.cTierCount", l.CTierCount, d.CTierCount, &clamps)
	l.STierCount = clampAdd("daylog.sTierCount", l.STierCount, d.STierCount, &clamps)
	if d.PossibleXP != 0 {
		cur := 0
		if l.PossibleXP != nil {
			cur = *l.PossibleXP
		}
		v := clampAdd("daylog.possibleXP", cur, d.PossibleXP, &clamps)
		l.PossibleXP = &v
	}
	if d.StreakAtEnd != nil {
		l.StreakAtEnd = *d.StreakAtEnd
	}
	return clamps
}
