package compliance_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// NEXT STEP & OVERDUE
// =============================================================================

func TestComputeTiming_FirstAttemptOverdue(t *testing.T) {
	// GIVEN: FeaturedHomes sold 2024-01-01, no outreach yet
	// WHEN: evaluated on 2024-03-11
	// THEN: ATTEMPT_1 was due 2024-01-31, 40 days overdue, due now at level 1
	p := compliance.Flatten(compliance.Property{
		ID:          "p1",
		ProgramType: string(compliance.ProgramFeaturedHomes),
		DateSold:    ptr(date(2024, time.January, 1)),
	})

	v := compliance.ComputeTiming(p, date(2024, time.March, 11))

	require.False(t, v.Error)
	require.NotNil(t, v.DueDate)
	assert.Equal(t, "2024-01-31", v.DueDate.String())
	assert.Equal(t, 40, v.DaysOverdue)
	assert.True(t, v.IsDueNow)
	assert.Equal(t, compliance.ActionAttempt1, v.RecommendedAction)
	assert.Equal(t, 1, v.RecommendedLevel)
	assert.True(t, usd(500).Equal(v.Penalty), "got %s", v.Penalty)
}

func TestComputeTiming_GraceBoundary(t *testing.T) {
	// GIVEN: FeaturedHomes with 3 grace days
	// THEN: 3 days overdue is not due now, 4 days is
	tests := []struct {
		overdue int
		due     bool
	}{
		{0, false},
		{3, false},
		{4, true},
	}
	for _, tt := range tests {
		v := compliance.ComputeTiming(compliance.Flatten(featuredHome("g", tt.overdue)), asOf)
		assert.Equal(t, tt.overdue, v.DaysOverdue)
		assert.Equal(t, tt.due, v.IsDueNow, "overdue=%d", tt.overdue)
	}
}

func TestComputeTiming_NotYetDueIsNegative(t *testing.T) {
	// GIVEN: sold today
	// THEN: ATTEMPT_1 is 30 days out, level unchanged, no penalty
	p := compliance.Flatten(compliance.Property{
		ID:               "p1",
		ProgramType:      string(compliance.ProgramFeaturedHomes),
		DateSold:         ptr(asOf),
		EnforcementLevel: 0,
	})

	v := compliance.ComputeTiming(p, asOf)

	assert.Equal(t, -30, v.DaysOverdue)
	assert.False(t, v.IsDueNow)
	assert.Equal(t, 0, v.RecommendedLevel)
	assert.True(t, v.Penalty.IsZero())
}

func TestComputeTiming_IgnoresTimeOfDay(t *testing.T) {
	// GIVEN: a sale recorded late in the day
	// THEN: day counts use the calendar date only
	sold := time.Date(2024, time.January, 1, 23, 59, 0, 0, time.UTC)
	p := compliance.Flatten(compliance.Property{
		ID:          "p1",
		ProgramType: string(compliance.ProgramFeaturedHomes),
		DateSold:    &sold,
	})

	v := compliance.ComputeTiming(p, date(2024, time.January, 31))
	assert.Equal(t, 0, v.DaysOverdue)
}

func TestComputeTiming_LevelNeverLowered(t *testing.T) {
	// GIVEN: a property already at level 3 that is due for ATTEMPT_1
	// THEN: the recommendation keeps level 3
	p := featuredHome("p1", 20)
	p.EnforcementLevel = 3

	v := compliance.ComputeTiming(compliance.Flatten(p), asOf)

	assert.True(t, v.IsDueNow)
	assert.Equal(t, 3, v.RecommendedLevel)
}

func TestComputeTiming_LevelHeldWithinGrace(t *testing.T) {
	// GIVEN: Demolition at level 0, ATTEMPT_1 overdue 2 days (grace 5)
	// THEN: not due now, so the level is not escalated
	p := compliance.Flatten(compliance.Property{
		ID:          "p1",
		ProgramType: string(compliance.ProgramDemolition),
		DateSold:    ptr(asOf.AddDays(-92)),
	})

	v := compliance.ComputeTiming(p, asOf)

	assert.Equal(t, 2, v.DaysOverdue)
	assert.False(t, v.IsDueNow)
	assert.Equal(t, compliance.ActionAttempt1, v.RecommendedAction)
	assert.Equal(t, 0, v.RecommendedLevel)
}

// =============================================================================
// STEP SATISFACTION
// =============================================================================

func TestComputeTiming_AttemptTimestampSatisfiesStep(t *testing.T) {
	// GIVEN: 1st attempt recorded on the property
	// THEN: next step is ATTEMPT_2 at sale + 45
	p := featuredHome("p1", 20)
	p.Compliance1stAttempt = ptr(asOf.AddDays(-10))

	v := compliance.ComputeTiming(compliance.Flatten(p), asOf)

	assert.Equal(t, compliance.ActionAttempt2, v.RecommendedAction)
	assert.Equal(t, 5, v.DaysOverdue)
	assert.True(t, v.IsDueNow)
}

func TestComputeTiming_SentCommunicationSatisfiesStep(t *testing.T) {
	// GIVEN: sent ATTEMPT_1 and ATTEMPT_2 messages but no timestamps
	// THEN: next step is WARNING at sale + 60, level 2
	p := featuredHome("p1", 40)
	p.Communications = []compliance.Communication{sent(compliance.ActionAttempt1), sent(compliance.ActionAttempt2)}

	v := compliance.ComputeTiming(compliance.Flatten(p), asOf)

	assert.Equal(t, compliance.ActionWarning, v.RecommendedAction)
	assert.Equal(t, 10, v.DaysOverdue)
	assert.Equal(t, 2, v.RecommendedLevel)
}

func TestComputeTiming_UnsentCommunicationDoesNotCount(t *testing.T) {
	// GIVEN: an ATTEMPT_1 message that was only logged
	// THEN: ATTEMPT_1 is still the next step
	p := compliance.Flatten(featuredHome("p1", 10))
	p.Communications = []compliance.Communication{
		{Action: compliance.ActionAttempt1, Status: compliance.CommLogged},
	}

	v := compliance.ComputeTiming(p, asOf)

	assert.Equal(t, compliance.ActionAttempt1, v.RecommendedAction)
}

func TestComputeTiming_WarningNeedsCommunication(t *testing.T) {
	// GIVEN: both attempt timestamps, nothing sent
	// THEN: WARNING is next even though attempts are recorded
	p := featuredHome("p1", 50)
	p.Compliance1stAttempt = ptr(asOf.AddDays(-40))
	p.Compliance2ndAttempt = ptr(asOf.AddDays(-20))

	v := compliance.ComputeTiming(compliance.Flatten(p), asOf)

	assert.Equal(t, compliance.ActionWarning, v.RecommendedAction)
	assert.Equal(t, 20, v.DaysOverdue)
}

func TestComputeTiming_AllStepsMet(t *testing.T) {
	// GIVEN: every schedule step satisfied
	// THEN: NONE, no due date, nothing overdue
	p := featuredHome("p1", 200)
	p.EnforcementLevel = 3
	p.Compliance1stAttempt = ptr(asOf.AddDays(-150))
	p.Compliance2ndAttempt = ptr(asOf.AddDays(-140))
	p.Communications = []compliance.Communication{sent(compliance.ActionWarning), sent(compliance.ActionDefaultNotice)}

	v := compliance.ComputeTiming(compliance.Flatten(p), asOf)

	assert.False(t, v.Error)
	assert.Equal(t, compliance.ActionNone, v.RecommendedAction)
	assert.Nil(t, v.DueDate)
	assert.Equal(t, 0, v.DaysOverdue)
	assert.False(t, v.IsDueNow)
	assert.Equal(t, 3, v.RecommendedLevel)
}

// =============================================================================
// ERROR CHANNEL
// =============================================================================

func TestComputeTiming_MissingSaleDate(t *testing.T) {
	p := featuredHome("p1", 10)
	p.DateSold = nil

	v, err := compliance.ResolveTiming(compliance.Flatten(p), asOf)

	assert.True(t, v.Error)
	assert.Equal(t, compliance.ReasonMissingSaleDate, v.ErrorReason)
	assert.Nil(t, v.DueDate)
	assert.True(t, errors.Is(err, generic.ErrMissingSaleDate))

	var pe *generic.PropertyInputError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, generic.PropertyID("p1"), pe.PropertyID)
}

func TestComputeTiming_UnknownProgram(t *testing.T) {
	p := featuredHome("p1", 10)
	p.ProgramType = "Side Lot"

	v, err := compliance.ResolveTiming(compliance.Flatten(p), asOf)

	assert.True(t, v.Error)
	assert.Equal(t, compliance.ReasonUnknownProgram, v.ErrorReason)
	assert.True(t, errors.Is(err, generic.ErrUnknownProgram))
	assert.True(t, generic.IsClientError(err))
}

func TestComputeTiming_Pure(t *testing.T) {
	p := compliance.Flatten(featuredHome("p1", 33))
	assert.Equal(t, compliance.ComputeTiming(p, asOf), compliance.ComputeTiming(p, asOf))
}
