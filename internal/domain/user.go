package domain

import "time"

// User is the XP/level/streak profile. Level is derived from XP and must be
// recomputed after every XP change.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	XP           int        `json:"xp"`
	Level        int        `json:"level"`
	StreakDays   int        `json:"streakDays"`
	LastTaskDate *time.Time `json:"lastTaskDate"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// DayLog is the per-user, per-calendar-day rollup.
type DayLog struct {
	UserID      string    `json:"userId"`
	Date        time.Time `json:"date"`
	TotalXP     int       `json:"totalXP"`
	TasksDone   int       `json:"tasksDone"`
	PossibleXP  *int      `json:"possibleXP"` // nil on legacy rows
	CTierCount  int       `json:"cTierCount"`
	STierCount  int       `json:"sTierCount"`
	StreakAtEnd int       `json:"streakAtEnd"`
}

// NewDayLog returns an empty rollup for userID on day.
func NewDayLog(userID string, day time.Time) *DayLog {
	zero := 0
	return &DayLog{UserID: userID, Date: DateOf(day), PossibleXP: &zero}
}

// LegacyXPPerTask estimates possible XP for rows written before
// possibleXP was tracked.
const LegacyXPPerTask = 30

// EffectivePossibleXP returns possibleXP, or the legacy estimate when absent.
func (d DayLog) EffectivePossibleXP() int {
	if d.PossibleXP != nil {
		return *d.PossibleXP
	}
	if d.TasksDone > 0 {
		return d.TasksDone * LegacyXPPerTask
	}
	return 0
}

// Efficiency returns earned/possible as a percentage capped at 100.
// A day with nothing possible is a perfect day.
func (d DayLog) Efficiency() float64 {
	possible := d.EffectivePossibleXP()
	if possible <= 0 {
		return 100
	}
	e := float64(d.TotalXP) / float64(possible) * 100
	if e > 100 {
		e = 100
	}
	if e < 0 {
		e = 0
	}
	return e
}

// TierCount returns today's per-tier completion counter for diminishing
// returns. Only C and S are tracked.
func (d DayLog) TierCount(t Tier) int {
	switch t {
	case TierC:
		return d.CTierCount
	case TierS:
		return d.STierCount
	}
	return 0
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DateKey formats a calendar day as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return DateOf(t).Format(time.DateOnly)
}

// ─── Journal ────────────────────────────────────────────────────────────────

// JournalKind classifies an XP journal entry.
type JournalKind string

const (
	JournalComplete   JournalKind = "COMPLETE"
	JournalUncomplete JournalKind = "UNCOMPLETE"
	JournalDelete     JournalKind = "DELETE"
	JournalPossible   JournalKind = "POSSIBLE" // possibleXP moved by create/update/delete
)

// JournalEntry is one append-only line of the XP audit trail.
type JournalEntry struct {
	ID        int64       `json:"id"`
	UserID    string      `json:"userId"`
	TaskID    string      `json:"taskId"`
	Date      time.Time   `json:"date"`
	Kind      JournalKind `json:"kind"`
	Count     int         `json:"count"`
	XP        int         `json:"xp"` // signed
	CreatedAt time.Time   `json:"createdAt"`
}
