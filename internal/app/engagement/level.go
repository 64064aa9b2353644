package engagement

import "math"

// LevelCurveK is the XP scale of the level curve:
// level = floor(1 + sqrt(xp / K)).
const LevelCurveK = 500

// LevelForXP returns the level for a given XP amount. Negative XP is
// treated as zero.
func LevelForXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	level := int(math.Floor(1 + math.Sqrt(float64(xp)/LevelCurveK)))
	// Guard float error right at the thresholds.
	for XPForLevel(level+1) <= xp {
		level++
	}
	for level > 1 && XPForLevel(level) > xp {
		level--
	}
	return level
}

// XPForLevel returns the cumulative XP required to reach level:
// K × (level-1)².
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return LevelCurveK * n * n
}

// XPToNextLevel returns XP remaining until the next level.
func XPToNextLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return XPForLevel(LevelForXP(xp)+1) - xp
}

// ProgressPct returns progress toward the next level (0.0–100.0).
func ProgressPct(xp int) float64 {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	thisLevel := XPForLevel(level)
	span := XPForLevel(level+1) - thisLevel
	if span <= 0 {
		return 100.0
	}
	progress := float64(xp-thisLevel) / float64(span) * 100.0
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return progress
}
