package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/gitgud-app/gitgud/internal/app/engagement"
	"github.com/gitgud-app/gitgud/internal/app/ledger"
	"github.com/gitgud-app/gitgud/internal/domain"
)

var now = time.Date(2025, 7, 1, 22, 30, 0, 0, time.UTC)

func TestParseDay(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"today", "2025-07-01"},
		{"Tomorrow", "2025-07-02"},
		{"2025-12-24", "2025-12-24"},
	}
	for _, tt := range tests {
		got, err := parseDay(tt.input, now)
		if err != nil {
			t.Fatalf("parseDay(%q) error: %v", tt.input, err)
		}
		if domain.DateKey(*got) != tt.want {
			t.Errorf("parseDay(%q) = %s, want %s", tt.input, domain.DateKey(*got), tt.want)
		}
	}

	if got, err := parseDay("", now); got != nil || err != nil {
		t.Errorf("parseDay(\"\") = %v, %v; want nil, nil", got, err)
	}
	if _, err := parseDay("24/12/2025", now); err == nil {
		t.Error("parseDay should reject non-ISO dates")
	}
}

func TestBuildCreateRequest(t *testing.T) {
	addType, addTier, addCategory = "weekly", "b", ""
	addDate, addDeadline, addRepeat = "today", "", "1,3,5"
	addDuration, addFreq = 45, 2

	req, err := buildCreateRequest("Gym", now)
	if err != nil {
		t.Fatalf("buildCreateRequest() error: %v", err)
	}
	if req.Type != domain.TaskWeekly || req.Tier != domain.TierB {
		t.Errorf("type/tier = %s/%s", req.Type, req.Tier)
	}
	if req.ScheduledDate != nil {
		t.Error("weekly tasks carry no scheduled date")
	}
	if req.RepeatDays.String() != "1,3,5" {
		t.Errorf("RepeatDays = %q", req.RepeatDays.String())
	}
	if req.AllocatedDuration == nil || *req.AllocatedDuration != 45 {
		t.Errorf("AllocatedDuration = %v", req.AllocatedDuration)
	}

	addType, addRepeat = "daily", ""
	req, err = buildCreateRequest("Read", now)
	if err != nil {
		t.Fatalf("buildCreateRequest() error: %v", err)
	}
	if req.ScheduledDate == nil || domain.DateKey(*req.ScheduledDate) != "2025-07-01" {
		t.Errorf("ScheduledDate = %v", req.ScheduledDate)
	}

	addTier = "Z"
	if _, err := buildCreateRequest("Bad", now); err == nil {
		t.Error("unknown tier should be rejected")
	}
	addTier = "C"
}

func TestRenderReward(t *testing.T) {
	res := &ledger.CompleteResult{
		Reward:           engagement.Reward{Base: 100, StreakBonus: 13, WeeklyBonus: 50, Total: 163},
		NewStreak:        2,
		IsFullyCompleted: true,
	}
	out := renderReward(res)
	for _, want := range []string{"+163 XP", "base 100", "streak +13", "weekly +50", "Task complete."} {
		if !strings.Contains(out, want) {
			t.Errorf("renderReward() missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "duration") {
		t.Error("zero bonuses should be omitted")
	}
}

func TestProgressBar(t *testing.T) {
	for _, pct := range []float64{-10, 0, 50, 100, 250} {
		bar := progressBar(pct, 10)
		if n := strings.Count(bar, "█") + strings.Count(bar, "░"); n != 10 {
			t.Errorf("progressBar(%v) has %d cells, want 10", pct, n)
		}
	}
	if strings.Count(progressBar(50, 10), "█") != 5 {
		t.Error("progressBar(50) should fill half")
	}
}

func TestShortID(t *testing.T) {
	if shortID("0123456789abcdef") != "01234567" {
		t.Error("shortID should keep eight characters")
	}
	if shortID("abc") != "abc" {
		t.Error("shortID should keep short ids whole")
	}
}

func TestRenderSummary(t *testing.T) {
	sum := &ledger.Summary{
		Profile: ledger.Profile{Email: "me@example.com", Level: 3, XP: 2100, StreakDays: 4, StreakMultiplier: 1.1},
		DayLogs: []ledger.DayLogView{
			{DayLog: domain.DayLog{Date: now, TotalXP: 130, TasksDone: 2}, EffectivePossibleXP: 160, Efficiency: 81.25},
		},
		WeeklyGrowth: []ledger.WeekGrowth{{Week: "2025-W27", TotalXP: 130}},
		Badges:       engagement.EarnedBadges(engagement.BadgeStats{TasksDone: 2, Streak: 4}),
	}
	out := renderSummary(sum, 7)
	for _, want := range []string{"Level 3", "me@example.com", "2025-07-01", "2025-W27", "First Blood", "Warming Up"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderSummary() missing %q", want)
		}
	}
}
