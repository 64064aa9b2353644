package ledger

import (
	"context"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/gitgud-app/gitgud/internal/app/engagement"
	"github.com/gitgud-app/gitgud/internal/domain"
)

const (
	// DefaultSummaryDays is how many rollups Summary reports.
	DefaultSummaryDays = 30

	// GrowthWeeks is how many ISO weeks of XP growth Summary reports.
	GrowthWeeks = 4

	maxListLimit = 365
)

// ─── Day logs ───────────────────────────────────────────────────────────────

// DayLogView is a rollup with its derived efficiency.
type DayLogView struct {
	domain.DayLog
	EffectivePossibleXP int     `json:"effectivePossibleXP"`
	Efficiency          float64 `json:"efficiency"`
}

func viewDayLog(l domain.DayLog) DayLogView {
	return DayLogView{DayLog: l, EffectivePossibleXP: l.EffectivePossibleXP(), Efficiency: l.Efficiency()}
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// DayLogs returns the user's latest rollups, newest first.
func (s *Service) DayLogs(ctx context.Context, userID string, limit int) ([]DayLogView, error) {
	logs, err := s.store.DayLogs(ctx, userID, clampLimit(limit, DefaultSummaryDays))
	if err != nil {
		return nil, err
	}
	out := make([]DayLogView, len(logs))
	for i, l := range logs {
		out[i] = viewDayLog(l)
	}
	return out, nil
}

// ─── Profile & summary ──────────────────────────────────────────────────────

// Profile is the user's derived progression state.
type Profile struct {
	UserID           string     `json:"userId"`
	Email            string     `json:"email"`
	Name             string     `json:"name,omitempty"`
	XP               int        `json:"xp"`
	Level            int        `json:"level"`
	ProgressPct      float64    `json:"progressPct"`
	XPToNextLevel    int        `json:"xpToNextLevel"`
	StreakDays       int        `json:"streakDays"`
	StreakMultiplier float64    `json:"streakMultiplier"`
	LastTaskDate     *time.Time `json:"lastTaskDate"`
}

// ProfileOf derives a Profile from a stored user.
func ProfileOf(u domain.User) Profile {
	return Profile{
		UserID:           u.ID,
		Email:            u.Email,
		Name:             u.Name,
		XP:               u.XP,
		Level:            engagement.LevelForXP(u.XP),
		ProgressPct:      engagement.ProgressPct(u.XP),
		XPToNextLevel:    engagement.XPToNextLevel(u.XP),
		StreakDays:       u.StreakDays,
		StreakMultiplier: engagement.StreakMultiplier(u.StreakDays),
		LastTaskDate:     u.LastTaskDate,
	}
}

// Profile loads the user's profile.
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	p := ProfileOf(*u)
	return &p, nil
}

// WeekGrowth is the XP earned in one ISO week.
type WeekGrowth struct {
	Week    string `json:"week"`
	TotalXP int    `json:"totalXP"`
}

// Summary is the stats dashboard payload.
type Summary struct {
	Profile           Profile            `json:"profile"`
	DayLogs           []DayLogView       `json:"dayLogs"`
	AverageEfficiency float64            `json:"averageEfficiency"`
	WeeklyGrowth      []WeekGrowth       `json:"weeklyGrowth"`
	Badges            []engagement.Badge `json:"badges"`
}

// Summary returns the profile, the last DefaultSummaryDays rollups with
// their efficiency, the average efficiency and XP per week for the last
// GrowthWeeks ISO weeks, oldest week first, and the badges earned.
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	logs, err := s.DayLogs(ctx, userID, DefaultSummaryDays)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Profile:           *profile,
		DayLogs:           logs,
		AverageEfficiency: AverageEfficiency(logs),
		WeeklyGrowth:      WeeklyGrowth(logs, s.now(), GrowthWeeks),
		Badges:            engagement.EarnedBadges(BadgeStatsOf(*profile, logs)),
	}, nil
}

// BadgeStatsOf snapshots profile and logs for badge evaluation.
func BadgeStatsOf(p Profile, logs []DayLogView) engagement.BadgeStats {
	st := engagement.BadgeStats{XP: p.XP, Level: p.Level, Streak: p.StreakDays}
	for _, l := range logs {
		st.TasksDone += l.TasksDone
		st.STierDone += l.STierCount
		if l.TasksDone > 0 {
			st.ActiveDays++
		}
		if l.TotalXP > st.BestDayXP {
			st.BestDayXP = l.TotalXP
		}
		if l.Efficiency > st.BestEfficiency {
			st.BestEfficiency = l.Efficiency
		}
		if l.Efficiency >= 100 && l.TasksDone > 0 {
			st.PerfectDays++
		}
	}
	return st
}

// AverageEfficiency is the mean efficiency of logs, or 0 with no logs.
func AverageEfficiency(logs []DayLogView) float64 {
	if len(logs) == 0 {
		return 0
	}
	sum := 0.0
	for _, l := range logs {
		sum += l.Efficiency
	}
	return sum / float64(len(logs))
}

// WeeklyGrowth totals XP per ISO week for the weeks weeks ending at now.
func WeeklyGrowth(logs []DayLogView, now time.Time, weeks int) []WeekGrowth {
	totals := make(map[string]int, len(logs))
	for _, l := range logs {
		totals[engagement.ISOWeek(l.Date)] += l.TotalXP
	}
	out := make([]WeekGrowth, 0, weeks)
	today := domain.DateOf(now)
	for i := weeks - 1; i >= 0; i-- {
		w := engagement.ISOWeek(today.AddDate(0, 0, -7*i))
		out = append(out, WeekGrowth{Week: w, TotalXP: totals[w]})
	}
	return out
}

// ─── Journal ────────────────────────────────────────────────────────────────

// History returns the user's latest journal entries, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]domain.JournalEntry, error) {
	return s.store.JournalEntries(ctx, userID, clampLimit(limit, 50))
}

// ─── Task listing ───────────────────────────────────────────────────────────

// TaskQuery narrows ListTasks. Search is a fuzzy title match; results are
// then ordered by relevance.
type TaskQuery struct {
	Type   *domain.TaskType
	Date   *time.Time
	Search string
}

type taskTitles []domain.Task

func (t taskTitles) String(i int) string { return t[i].Title }
func (t taskTitles) Len() int            { return len(t) }

// ListTasks returns the user's tasks. Weekly templates carry the progress of
// their instance on the query date (today when unset).
func (s *Service) ListTasks(ctx context.Context, userID string, q TaskQuery) ([]domain.Task, error) {
	var date *time.Time
	if q.Date != nil {
		d := domain.DateOf(*q.Date)
		date = &d
	}
	tasks, err := s.store.ListTasks(ctx, userID, domain.TaskFilter{Type: q.Type, Date: date})
	if err != nil {
		return nil, err
	}

	day := domain.DateOf(s.now())
	if date != nil {
		day = *date
	}
	if err := s.overlayInstances(ctx, userID, day, tasks); err != nil {
		return nil, err
	}

	if q.Search == "" {
		return tasks, nil
	}
	matches := fuzzy.FindFrom(q.Search, taskTitles(tasks))
	out := make([]domain.Task, len(matches))
	for i, m := range matches {
		out[i] = tasks[m.Index]
	}
	return out, nil
}

func (s *Service) overlayInstances(ctx context.Context, userID string, day time.Time, tasks []domain.Task) error {
	hasWeekly := false
	for _, t := range tasks {
		if t.Type == domain.TaskWeekly {
			hasWeekly = true
			break
		}
	}
	if !hasWeekly {
		return nil
	}

	instances, err := s.store.ListWeeklyInstances(ctx, userID, day)
	if err != nil {
		return err
	}
	byTask := make(map[string]domain.Progress, len(instances))
	for _, inst := range instances {
		byTask[inst.TaskID] = inst.Progress
	}
	for i := range tasks {
		if tasks[i].Type != domain.TaskWeekly {
			continue
		}
		if p, ok := byTask[tasks[i].ID]; ok {
			tasks[i].Progress = p
		} else {
			tasks[i].Progress = domain.NewProgress(tasks[i].Frequency)
		}
	}
	return nil
}
