package compliance

import (
	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// MILESTONE GENERATOR
// =============================================================================

// GenerateMilestones returns the program's milestones dated from saleDate, in
// schedule order. A nil sale date yields an empty slice. Unknown programs get
// only the base insurance milestone.
func GenerateMilestones(programType string, saleDate *generic.TimePoint) []Milestone {
	if saleDate == nil || saleDate.IsZero() {
		return []Milestone{}
	}

	var templates []MilestoneTemplate
	rule, ok := rules[Program(programType)]
	switch {
	case !ok:
		templates = []MilestoneTemplate{baseMilestone}
	case rule.InheritsBaseMilestone:
		templates = make([]MilestoneTemplate, 0, len(rule.Milestones)+1)
		templates = append(templates, baseMilestone)
		templates = append(templates, rule.Milestones...)
	default:
		templates = rule.Milestones
	}

	out := make([]Milestone, len(templates))
	for i, t := range templates {
		out[i] = Milestone{
			Key:      t.Key,
			Label:    t.Label,
			DueDate:  saleDate.AddDays(t.OffsetDays),
			Category: t.Category,
		}
	}
	return out
}

// MilestonesInWindow keeps the milestones due inside p, preserving order.
func MilestonesInWindow(ms []Milestone, p generic.Period) []Milestone {
	out := make([]Milestone, 0, len(ms))
	for _, m := range ms {
		if p.Contains(m.DueDate) {
			out = append(out, m)
		}
	}
	return out
}

// NextMilestone returns the first milestone due on or after today.
func NextMilestone(ms []Milestone, today generic.TimePoint) (Milestone, bool) {
	for _, m := range ms {
		if m.DueDate.AfterOrEqual(today) {
			return m, true
		}
	}
	return Milestone{}, false
}
