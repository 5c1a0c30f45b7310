/*
rules.go - Per-program compliance rule table

PURPOSE:
  The single source of truth for program cadence: when enforcement steps
  come due after closing, how much grace staff allows before acting, which
  evidence the buyer must upload, and which milestones the buyer owes.

RULE ENTRY:
  Schedule:        ordered (dayOffset, action, level) steps from the close date
  GraceDays:       tolerance after a step's due date before it is "due now"
  RequiredUploads: photo evidence categories
  RequiredDocs:    document evidence categories
  Milestones:      buyer-facing milestone templates (see milestones.go)
  PolicyRef:       pointer to display-only policy text

INVARIANTS (checked by ValidateRule and the package tests):
  - dayOffset strictly increasing within a schedule
  - action is one of ATTEMPT_1, ATTEMPT_2, WARNING, DEFAULT_NOTICE
  - level non-decreasing along the schedule, within 0..4

IMMUTABILITY:
  The table is built once at package init and never mutated. RuleFor hands
  out deep copies, so callers can't reach the shared slices. Safe for
  concurrent requests without locking.

SEE ALSO:
  - milestones.go: Milestone generation from the same table
  - timing.go: Uses Schedule and GraceDays
*/
package compliance

import (
	"fmt"
	"slices"

	"github.com/landbank/compliance-engine/generic"
)

// ScheduleStep is one enforcement step relative to the close date.
type ScheduleStep struct {
	DayOffset int    `json:"dayOffset"`
	Action    Action `json:"action"`
	Level     int    `json:"level"`
}

// MilestoneTemplate is a milestone before a sale date is applied.
type MilestoneTemplate struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	OffsetDays int    `json:"offsetDays"`
	Category   string `json:"category"`
}

// Rule is the rule table entry of one program.
type Rule struct {
	Program               Program             `json:"program"`
	Schedule              []ScheduleStep      `json:"scheduleDaysFromClose"`
	GraceDays             int                 `json:"graceDays"`
	RequiredUploads       []string            `json:"requiredUploads"`
	RequiredDocs          []string            `json:"requiredDocs"`
	InheritsBaseMilestone bool                `json:"inheritsBaseMilestone"`
	Milestones            []MilestoneTemplate `json:"milestones"`
	PolicyRef             string              `json:"policyRef"`
}

// Milestone categories.
const (
	CategoryDocument   = "document"
	CategoryProgress   = "progress"
	CategoryInspection = "inspection"
	CategoryOccupancy  = "occupancy"
	CategoryRelease    = "release"
)

// baseMilestone is inherited by FeaturedHomes and Ready4Rehab, and is all an
// unknown program gets.
var baseMilestone = MilestoneTemplate{
	Key: "insurance_proof", Label: "Insurance Proof Due", OffsetDays: 30, Category: CategoryDocument,
}

// =============================================================================
// RULE TABLE
// =============================================================================

var rules = map[Program]Rule{
	ProgramFeaturedHomes: {
		Program: ProgramFeaturedHomes,
		Schedule: []ScheduleStep{
			{DayOffset: 30, Action: ActionAttempt1, Level: 1},
			{DayOffset: 45, Action: ActionAttempt2, Level: 1},
			{DayOffset: 60, Action: ActionWarning, Level: 2},
			{DayOffset: 90, Action: ActionDefaultNotice, Level: 3},
		},
		GraceDays:             3,
		RequiredUploads:       []string{"exterior_front", "exterior_rear", "interior_living"},
		RequiredDocs:          []string{"insurance_certificate", "occupancy_affidavit"},
		InheritsBaseMilestone: true,
		Milestones: []MilestoneTemplate{
			{Key: "occupancy_verification", Label: "Owner Occupancy Verified", OffsetDays: 90, Category: CategoryOccupancy},
			{Key: "annual_check_1", Label: "Year 1 Compliance Check", OffsetDays: 365, Category: CategoryInspection},
			{Key: "annual_check_2", Label: "Year 2 Compliance Check", OffsetDays: 730, Category: CategoryInspection},
			{Key: "annual_check_3", Label: "Year 3 Compliance Check", OffsetDays: 1095, Category: CategoryInspection},
			{Key: "release_of_interest", Label: "Release of Interest", OffsetDays: 1825, Category: CategoryRelease},
		},
		PolicyRef: "policy/featured-homes",
	},
	ProgramReady4Rehab: {
		Program: ProgramReady4Rehab,
		Schedule: []ScheduleStep{
			{DayOffset: 90, Action: ActionAttempt1, Level: 1},
			{DayOffset: 105, Action: ActionAttempt2, Level: 1},
			{DayOffset: 120, Action: ActionWarning, Level: 2},
			{DayOffset: 150, Action: ActionDefaultNotice, Level: 3},
		},
		GraceDays:             3,
		RequiredUploads:       []string{"exterior_front", "exterior_rear", "roof", "interior_progress"},
		RequiredDocs:          []string{"insurance_certificate", "rehab_plan", "building_permit", "certificate_of_occupancy"},
		InheritsBaseMilestone: true,
		Milestones: []MilestoneTemplate{
			{Key: "rehab_plan", Label: "Rehab Plan Submitted", OffsetDays: 90, Category: CategoryDocument},
			{Key: "permits_pulled", Label: "Building Permits Pulled", OffsetDays: 90, Category: CategoryDocument},
			{Key: "contractor_agreement", Label: "Contractor Agreement on File", OffsetDays: 90, Category: CategoryDocument},
			{Key: "exterior_secured", Label: "Exterior Secured", OffsetDays: 120, Category: CategoryProgress},
			{Key: "progress_25", Label: "25% Rehab Progress", OffsetDays: 180, Category: CategoryProgress},
			{Key: "progress_50", Label: "50% Rehab Progress", OffsetDays: 270, Category: CategoryProgress},
			{Key: "rehab_complete", Label: "Rehab Complete", OffsetDays: 365, Category: CategoryProgress},
			{Key: "final_inspection", Label: "Final Inspection Passed", OffsetDays: 365, Category: CategoryInspection},
			{Key: "occupancy_verification", Label: "Occupancy Verified", OffsetDays: 425, Category: CategoryOccupancy},
			{Key: "release_of_interest", Label: "Release of Interest", OffsetDays: 1460, Category: CategoryRelease},
		},
		PolicyRef: "policy/ready4rehab",
	},
	ProgramDemolition: {
		Program: ProgramDemolition,
		Schedule: []ScheduleStep{
			{DayOffset: 90, Action: ActionAttempt1, Level: 1},
			{DayOffset: 105, Action: ActionAttempt2, Level: 2},
			{DayOffset: 120, Action: ActionWarning, Level: 3},
			{DayOffset: 180, Action: ActionDefaultNotice, Level: 4},
		},
		GraceDays:       5,
		RequiredUploads: []string{"pre_demolition", "post_demolition", "site_graded"},
		RequiredDocs:    []string{"demolition_permit", "asbestos_survey", "utility_disconnects"},
		Milestones: []MilestoneTemplate{
			{Key: "demolition_permit", Label: "Demolition Permit Issued", OffsetDays: 90, Category: CategoryDocument},
			{Key: "demolition_complete", Label: "Demolition Complete", OffsetDays: 180, Category: CategoryProgress},
			{Key: "site_restored", Label: "Site Graded and Seeded", OffsetDays: 210, Category: CategoryProgress},
			{Key: "final_inspection", Label: "Final Site Inspection", OffsetDays: 240, Category: CategoryInspection},
		},
		PolicyRef: "policy/demolition",
	},
	ProgramVIP: {
		Program: ProgramVIP,
		Schedule: []ScheduleStep{
			{DayOffset: 15, Action: ActionAttempt1, Level: 1},
			{DayOffset: 30, Action: ActionAttempt2, Level: 1},
			{DayOffset: 45, Action: ActionWarning, Level: 2},
			{DayOffset: 60, Action: ActionDefaultNotice, Level: 3},
		},
		GraceDays:       7,
		RequiredUploads: []string{"exterior_front", "interior_progress"},
		RequiredDocs:    []string{"insurance_certificate", "progress_report"},
		Milestones:      rcSeries(15, 45, 90, 135, 180, 225, 270, 315, 360),
		PolicyRef:       "policy/vip",
	},
}

// rcSeries builds the VIP "RC-n" renovation check milestones.
func rcSeries(offsets ...int) []MilestoneTemplate {
	out := make([]MilestoneTemplate, len(offsets))
	for i, off := range offsets {
		out[i] = MilestoneTemplate{
			Key:        fmt.Sprintf("rc%d", i+1),
			Label:      fmt.Sprintf("RC-%d Renovation Check", i+1),
			OffsetDays: off,
			Category:   CategoryProgress,
		}
	}
	return out
}

// programOrder fixes iteration order for listings.
var programOrder = []Program{ProgramFeaturedHomes, ProgramReady4Rehab, ProgramDemolition, ProgramVIP}

func init() {
	for _, p := range programOrder {
		if err := ValidateRule(rules[p]); err != nil {
			panic(err)
		}
	}
}

// =============================================================================
// LOOKUP
// =============================================================================

// RuleFor returns a copy of the program's rule entry.
func RuleFor(p Program) (Rule, bool) {
	r, ok := rules[p]
	if !ok {
		return Rule{}, false
	}
	r.Schedule = slices.Clone(r.Schedule)
	r.RequiredUploads = slices.Clone(r.RequiredUploads)
	r.RequiredDocs = slices.Clone(r.RequiredDocs)
	r.Milestones = slices.Clone(r.Milestones)
	return r, true
}

// Programs returns the known programs in display order.
func Programs() []Program {
	return slices.Clone(programOrder)
}

// AllRules returns copies of every rule entry in display order.
func AllRules() []Rule {
	out := make([]Rule, 0, len(programOrder))
	for _, p := range programOrder {
		r, _ := RuleFor(p)
		out = append(out, r)
	}
	return out
}

// ValidateRule checks the schedule invariants of a rule entry.
func ValidateRule(r Rule) error {
	if r.GraceDays < 0 {
		return &generic.RuleViolationError{Program: string(r.Program), Step: -1, Reason: "negative grace days"}
	}
	for i, step := range r.Schedule {
		if !step.Action.valid() {
			return &generic.RuleViolationError{Program: string(r.Program), Step: i, Reason: fmt.Sprintf("unknown action %q", step.Action)}
		}
		if step.Level < LevelCompliant || step.Level > LevelLegal {
			return &generic.RuleViolationError{Program: string(r.Program), Step: i, Reason: fmt.Sprintf("level %d out of range", step.Level)}
		}
		if i == 0 {
			continue
		}
		prev := r.Schedule[i-1]
		if step.DayOffset <= prev.DayOffset {
			return &generic.RuleViolationError{Program: string(r.Program), Step: i, Reason: "day offsets must be strictly increasing"}
		}
		if step.Level < prev.Level {
			return &generic.RuleViolationError{Program: string(r.Program), Step: i, Reason: "levels must not decrease"}
		}
	}
	return nil
}
