package compliance

import (
	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// ENFORCEMENT CALCULATOR
// =============================================================================

// Penalty tiers. Each tier is a 30-day window; the last one is open-ended.
const (
	warningOnlyDays = 30
	tierWindowDays  = 30
	tier1DailyUSD   = 50
	tier2DailyUSD   = 100
	tier3DailyUSD   = 200
	penaltyCapUSD   = 10000
)

// CalculateEnforcementLevel maps days overdue to a level 0-4. Tier
// boundaries belong to the lower tier.
func CalculateEnforcementLevel(daysOverdue int) int {
	switch {
	case daysOverdue <= 0:
		return LevelCompliant
	case daysOverdue <= 30:
		return LevelNotice
	case daysOverdue <= 60:
		return LevelWarning
	case daysOverdue <= 90:
		return LevelDefault
	default:
		return LevelLegal
	}
}

// CalculatePenalty returns the accrued penalty in USD. Nothing accrues in the
// first 30 days; the total is capped at $10,000.
func CalculatePenalty(daysOverdue int) generic.Amount {
	tier1 := clamp(daysOverdue-warningOnlyDays, 0, tierWindowDays) * tier1DailyUSD
	tier2 := clamp(daysOverdue-warningOnlyDays-tierWindowDays, 0, tierWindowDays) * tier2DailyUSD
	tier3 := max(daysOverdue-warningOnlyDays-2*tierWindowDays, 0) * tier3DailyUSD

	total := generic.NewMoneyFromInt(tier1).
		Add(generic.NewMoneyFromInt(tier2)).
		Add(generic.NewMoneyFromInt(tier3))
	return total.Min(generic.NewMoneyFromInt(penaltyCapUSD))
}

var levelNames = [...]string{
	LevelCompliant: "Compliant",
	LevelNotice:    "Notice",
	LevelWarning:   "Warning",
	LevelDefault:   "Default",
	LevelLegal:     "Legal Remedies",
}

// EnforcementLevelName is the display name of a level.
func EnforcementLevelName(level int) string {
	if level < 0 || level >= len(levelNames) {
		return "Unknown"
	}
	return levelNames[level]
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
