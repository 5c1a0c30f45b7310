/*
timing.go - Compliance timing resolver

PURPOSE:
  Combines a property's rule entry, its outreach history and "today" into a
  single verdict: which enforcement step is next, when it came due, how far
  past due it is, and whether staff should act now.

ALGORITHM:
  1. Look up the rule entry for the program (unknown program -> error verdict)
  2. Normalize dateSold to a civil date (missing -> error verdict)
  3. Walk the schedule; the first step not yet satisfied is the next step
  4. dueDate     = dateSold + step.DayOffset
     daysOverdue = floor((today - dueDate) / 1 day), negative when not yet due
     isDueNow    = daysOverdue > graceDays
  5. Recommend the step's action; escalate the level only when due now

STEP SATISFACTION:
  ATTEMPT_1       compliance1stAttempt recorded, or a sent ATTEMPT_1 message
  ATTEMPT_2       compliance2ndAttempt recorded, or a sent ATTEMPT_2 message
  WARNING         a sent WARNING message
  DEFAULT_NOTICE  a sent DEFAULT_NOTICE message

ERRORS:
  Input problems never panic or return Go errors. They come back as
  Verdict{Error: true, ErrorReason: ...} so a batch can skip the property
  and continue. ResolveTiming exposes the same information as an error value.

PURITY:
  No clock reads, no I/O. Same inputs, same verdict.

SEE ALSO:
  - rules.go: Schedule and GraceDays
  - enforcement.go: Penalty attached to the verdict
  - queue.go: Batch use of the resolver
*/
package compliance

import (
	"github.com/landbank/compliance-engine/generic"
)

// Error reasons carried on error verdicts.
const (
	ReasonMissingSaleDate = "missing_sale_date"
	ReasonUnknownProgram  = "unknown_program"
)

// ComputeTiming resolves the timing verdict of one property as of today.
func ComputeTiming(p FlatProperty, today generic.TimePoint) Verdict {
	v, _ := resolve(p, today)
	return v
}

// ResolveTiming is ComputeTiming for callers that want a Go error for the
// error channel. The verdict is always returned.
func ResolveTiming(p FlatProperty, today generic.TimePoint) (Verdict, error) {
	return resolve(p, today)
}

func resolve(p FlatProperty, today generic.TimePoint) (Verdict, error) {
	rule, ok := rules[Program(p.ProgramType)]
	if !ok {
		return errorVerdict(p, ReasonUnknownProgram), &generic.PropertyInputError{
			PropertyID: p.ID, Field: "programType", Err: generic.ErrUnknownProgram,
		}
	}

	sold := generic.FromTimePtr(p.DateSold)
	if sold == nil {
		return errorVerdict(p, ReasonMissingSaleDate), &generic.PropertyInputError{
			PropertyID: p.ID, Field: "dateSold", Err: generic.ErrMissingSaleDate,
		}
	}

	step, found := nextStep(rule.Schedule, p)
	if !found {
		return Verdict{
			RecommendedAction: ActionNone,
			RecommendedLevel:  p.EnforcementLevel,
			Penalty:           generic.NewMoneyFromInt(0),
		}, nil
	}

	due := sold.AddDays(step.DayOffset)
	daysOverdue := generic.DaysBetween(due, today)
	isDueNow := daysOverdue > rule.GraceDays

	level := p.EnforcementLevel
	if isDueNow {
		level = max(level, step.Level)
	}

	return Verdict{
		DueDate:           &due,
		DaysOverdue:       daysOverdue,
		IsDueNow:          isDueNow,
		RecommendedAction: step.Action,
		RecommendedLevel:  level,
		Penalty:           CalculatePenalty(daysOverdue),
	}, nil
}

// nextStep returns the first schedule step the property has not satisfied.
func nextStep(schedule []ScheduleStep, p FlatProperty) (ScheduleStep, bool) {
	for _, step := range schedule {
		if !stepSatisfied(step.Action, p) {
			return step, true
		}
	}
	return ScheduleStep{}, false
}

func stepSatisfied(a Action, p FlatProperty) bool {
	switch a {
	case ActionAttempt1:
		if p.Compliance1stAttempt != nil {
			return true
		}
	case ActionAttempt2:
		if p.Compliance2ndAttempt != nil {
			return true
		}
	}
	return sentAction(p.Communications, a)
}

func sentAction(comms []Communication, a Action) bool {
	for _, c := range comms {
		if c.Action == a && c.Status == CommSent {
			return true
		}
	}
	return false
}

func errorVerdict(p FlatProperty, reason string) Verdict {
	return Verdict{
		RecommendedAction: ActionNone,
		RecommendedLevel:  p.EnforcementLevel,
		Penalty:           generic.NewMoneyFromInt(0),
		Error:             true,
		ErrorReason:       reason,
	}
}
