// Package engagement implements the pure gamification rules: tier rewards,
// streak multipliers, diminishing returns, the streak engine and the
// XP → level curve. Nothing in here touches storage.
package engagement

import (
	"math"

	"github.com/gitgud-app/gitgud/internal/domain"
)

const (
	// DurationBonusRate is the extra share of the streak-adjusted base
	// awarded when a tick is confirmed inside the allocated duration.
	DurationBonusRate = 0.25

	// WeeklyBonusXP is the flat bonus for a full weekly-template completion,
	// scaled by the completed fraction.
	WeeklyBonusXP = 10
)

// TierBaseXP returns the fixed base reward of a tier.
func TierBaseXP(t domain.Tier) int {
	switch t {
	case domain.TierS:
		return 100
	case domain.TierA:
		return 60
	case domain.TierB:
		return 30
	default:
		return 10
	}
}

// StreakMultiplier is a monotone step function of the streak length.
func StreakMultiplier(streakDays int) float64 {
	switch {
	case streakDays >= 30:
		return 2.0
	case streakDays >= 14:
		return 1.5
	case streakDays >= 7:
		return 1.3
	case streakDays >= 3:
		return 1.1
	default:
		return 1.0
	}
}

// DiminishingReturns returns the reward factor for the countToday-th
// same-tier completion of the day. C-tier is capped harshly (spam), S-tier
// lightly (variety); A and B are never diminished.
func DiminishingReturns(t domain.Tier, countToday int) float64 {
	switch t {
	case domain.TierC:
		if countToday >= 10 {
			return 0.1
		}
		if countToday >= 5 {
			return 0.3
		}
	case domain.TierS:
		if countToday >= 3 {
			return 0.7
		}
	}
	return 1.0
}

// PossibleXP is the most a DAILY task can earn on its day: its base plus
// the duration bonus potential.
func PossibleXP(t domain.Tier, hasDuration bool) int {
	base := TierBaseXP(t)
	if hasDuration {
		return base + int(math.Round(float64(base)*DurationBonusRate))
	}
	return base
}

// RewardInput carries everything FinalReward needs for one tick.
type RewardInput struct {
	Tier           domain.Tier
	TierCountToday int // same-tier completions today, for diminishing returns
	StreakDays     int
	Count          int // ticks completed by this call
	Frequency      int // ticks required for full completion
	DurationMet    bool
	IsBonus        bool
	Diminishing    bool // apply DiminishingReturns to the base
}

// Reward is the XP breakdown of a tick. Total is authoritative; the bonus
// fields are reported to the client and may not sum exactly to Total.
type Reward struct {
	Base          int     `json:"baseXP"`
	StreakBonus   int     `json:"streakBonus"`
	DurationBonus int     `json:"durationBonus"`
	WeeklyBonus   int     `json:"weeklyBonus"`
	Total         int     `json:"xpGained"`
	Multiplier    float64 `json:"-"`
}

// Fraction returns count/frequency, guarding a zero frequency.
func (in RewardInput) Fraction() float64 {
	freq := in.Frequency
	if freq < 1 {
		freq = 1
	}
	return float64(in.Count) / float64(freq)
}

// FinalReward computes the XP for one completing tick.
//
//	base  = round(tierBase × fraction × diminishing)
//	total = round(base × streak × (durationMet ? 1.25 : 1)) + weekly
//
// Multipliers compound before the single final rounding.
func FinalReward(in RewardInput) Reward {
	fraction := in.Fraction()

	dim := 1.0
	if in.Diminishing {
		dim = DiminishingReturns(in.Tier, in.TierCountToday)
	}
	base := int(math.Round(float64(TierBaseXP(in.Tier)) * fraction * dim))

	mult := StreakMultiplier(in.StreakDays)
	durationFactor := 1.0
	if in.DurationMet {
		durationFactor = 1 + DurationBonusRate
	}

	r := Reward{Base: base, Multiplier: mult}
	if in.IsBonus {
		r.WeeklyBonus = int(math.Round(WeeklyBonusXP * fraction))
	}
	if mult > 1 {
		r.StreakBonus = int(math.Round(float64(base) * (mult - 1)))
	}
	if in.DurationMet {
		r.DurationBonus = int(math.Round(float64(base) * mult * DurationBonusRate))
	}
	r.Total = int(math.Round(float64(base)*mult*durationFactor)) + r.WeeklyBonus
	return r
}
