package engagement

import (
	"fmt"
	"time"

	"github.com/gitgud-app/gitgud/internal/domain"
)

// NextStreak derives the consecutive-day streak after activity on today.
// Granularity is the UTC calendar day.
//
//   - no prior activity: 1
//   - already active today: unchanged (same-day ticks never inflate it)
//   - active yesterday: +1
//   - anything else, including a last date in the future: reset to 1
func NextStreak(lastActivity *time.Time, today time.Time, current int) int {
	if lastActivity == nil || lastActivity.IsZero() {
		return 1
	}

	day := domain.DateOf(today)
	last := domain.DateOf(*lastActivity)

	switch {
	case last.Equal(day):
		if current < 1 {
			return 1
		}
		return current
	case last.AddDate(0, 0, 1).Equal(day):
		return current + 1
	default:
		// Gap of more than a day, or clock skew: the streak restarts.
		return 1
	}
}

// ISOWeek returns "YYYY-Www" for t.
func ISOWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
