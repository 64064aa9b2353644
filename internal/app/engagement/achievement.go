package engagement

// BadgeCategory groups badges for display.
type BadgeCategory string

const (
	CatGettingStarted BadgeCategory = "getting_started"
	CatStreaks        BadgeCategory = "streaks"
	CatFocus          BadgeCategory = "focus"
	CatMastery        BadgeCategory = "mastery"
)

// BadgeStats is the snapshot badges are judged against. Day-log totals
// cover whatever window the caller loaded.
type BadgeStats struct {
	XP             int
	Level          int
	Streak         int
	TasksDone      int
	STierDone      int
	PerfectDays    int // days at 100% efficiency
	BestDayXP      int
	ActiveDays     int
	BestEfficiency float64
}

// Badge is a cosmetic milestone. Badges are derived on read and never
// award XP.
type Badge struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Icon      string                `json:"icon"`
	Category  BadgeCategory         `json:"category"`
	Predicate func(BadgeStats) bool `json:"-"`
}

// EarnedBadges returns the catalog entries stats satisfies, in catalog order.
func EarnedBadges(stats BadgeStats) []Badge {
	out := []Badge{}
	for _, b := range AllBadges() {
		if b.Predicate(stats) {
			out = append(out, b)
		}
	}
	return out
}

// ─── Badge catalog ──────────────────────────────────────────────────────────

// AllBadges returns the full badge catalog.
func AllBadges() []Badge {
	return []Badge{
		// ── Getting Started ────────────────────────────────────────────
		{
			ID: "first_task", Name: "First Blood", Category: CatGettingStarted, Icon: "🎯",
			Predicate: func(s BadgeStats) bool { return s.TasksDone > 0 },
		},
		{
			ID: "first_s_tier", Name: "Big Fish", Category: CatGettingStarted, Icon: "🐟",
			Predicate: func(s BadgeStats) bool { return s.STierDone > 0 },
		},
		{
			ID: "level_2", Name: "Levelled Up", Category: CatGettingStarted, Icon: "⚡",
			Predicate: func(s BadgeStats) bool { return s.Level >= 2 },
		},

		// ── Streaks ────────────────────────────────────────────────────
		{
			ID: "streak_3", Name: "Warming Up", Category: CatStreaks, Icon: "🕯️",
			Predicate: func(s BadgeStats) bool { return s.Streak >= 3 },
		},
		{
			ID: "streak_7", Name: "Week Warrior", Category: CatStreaks, Icon: "🔥",
			Predicate: func(s BadgeStats) bool { return s.Streak >= 7 },
		},
		{
			ID: "streak_14", Name: "Fortnight Force", Category: CatStreaks, Icon: "📅",
			Predicate: func(s BadgeStats) bool { return s.Streak >= 14 },
		},
		{
			ID: "streak_30", Name: "Monthly Machine", Category: CatStreaks, Icon: "💪",
			Predicate: func(s BadgeStats) bool { return s.Streak >= 30 },
		},

		// ── Focus ──────────────────────────────────────────────────────
		{
			ID: "perfect_day", Name: "Clean Sweep", Category: CatFocus, Icon: "🧹",
			Predicate: func(s BadgeStats) bool { return s.PerfectDays >= 1 },
		},
		{
			ID: "perfect_week", Name: "Flawless Week", Category: CatFocus, Icon: "💎",
			Predicate: func(s BadgeStats) bool { return s.PerfectDays >= 7 },
		},
		{
			ID: "big_day", Name: "Big Day", Category: CatFocus, Icon: "🚀",
			Predicate: func(s BadgeStats) bool { return s.BestDayXP >= 500 },
		},
		{
			ID: "regular", Name: "Regular", Category: CatFocus, Icon: "🗓️",
			Predicate: func(s BadgeStats) bool { return s.ActiveDays >= 20 },
		},

		// ── Mastery ────────────────────────────────────────────────────
		{
			ID: "tasks_100", Name: "Task Master", Category: CatMastery, Icon: "⚙️",
			Predicate: func(s BadgeStats) bool { return s.TasksDone >= 100 },
		},
		{
			ID: "s_tier_25", Name: "Heavy Lifter", Category: CatMastery, Icon: "🏋️",
			Predicate: func(s BadgeStats) bool { return s.STierDone >= 25 },
		},
		{
			ID: "level_10", Name: "Rising Star", Category: CatMastery, Icon: "🌅",
			Predicate: func(s BadgeStats) bool { return s.Level >= 10 },
		},
		{
			ID: "level_25", Name: "Veteran", Category: CatMastery, Icon: "🎖️",
			Predicate: func(s BadgeStats) bool { return s.Level >= 25 },
		},
	}
}
