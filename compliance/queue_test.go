package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// DUE-NOW QUEUE
// =============================================================================

func TestBuildDueNowQueue_DueOnlyFilter(t *testing.T) {
	// GIVEN: one property 40 days overdue, one 1 day overdue (grace 3)
	// WHEN: dueOnly=true
	// THEN: only the 40-day property is returned
	props := []compliance.Property{featuredHome("late", 40), featuredHome("fresh", 1)}

	res := compliance.BuildDueNowQueue(props, asOf, true)

	require.Len(t, res.Queue, 1)
	assert.Equal(t, generic.PropertyID("late"), res.Queue[0].ID)
	assert.Equal(t, 40, res.Queue[0].DaysOverdue)

	// WHEN: dueOnly=false, both are listed
	all := compliance.BuildDueNowQueue(props, asOf, false)
	assert.Len(t, all.Queue, 2)
}

func TestBuildDueNowQueue_SortedByDaysOverdue(t *testing.T) {
	// GIVEN: due properties at 5, 40 and 12 days overdue
	// THEN: the queue is ordered 40, 12, 5
	props := []compliance.Property{featuredHome("a", 5), featuredHome("b", 40), featuredHome("c", 12)}

	res := compliance.BuildDueNowQueue(props, asOf, true)

	require.Len(t, res.Queue, 3)
	got := []int{res.Queue[0].DaysOverdue, res.Queue[1].DaysOverdue, res.Queue[2].DaysOverdue}
	assert.Equal(t, []int{40, 12, 5}, got)
}

func TestBuildDueNowQueue_StableTies(t *testing.T) {
	props := []compliance.Property{featuredHome("first", 9), featuredHome("second", 9)}

	res := compliance.BuildDueNowQueue(props, asOf, false)

	require.Len(t, res.Queue, 2)
	assert.Equal(t, generic.PropertyID("first"), res.Queue[0].ID)
	assert.Equal(t, generic.PropertyID("second"), res.Queue[1].ID)
}

func TestBuildDueNowQueue_ErrorIsolation(t *testing.T) {
	// GIVEN: five properties, one with no sale date
	// THEN: four are queued, the bad one lands in Skipped
	props := []compliance.Property{
		featuredHome("a", 10), featuredHome("b", 20), featuredHome("c", 30),
		featuredHome("d", 40), featuredHome("bad", 50),
	}
	props[4].DateSold = nil

	res := compliance.BuildDueNowQueue(props, asOf, false)

	assert.Len(t, res.Queue, 4)
	for _, item := range res.Queue {
		assert.NotEqual(t, generic.PropertyID("bad"), item.ID)
		assert.False(t, item.Error)
	}
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, generic.PropertyID("bad"), res.Skipped[0].ID)
	assert.Equal(t, compliance.ReasonMissingSaleDate, res.Skipped[0].Reason)
}

func TestBuildDueNowQueue_OnlySentCommunicationsCarried(t *testing.T) {
	p := featuredHome("a", 10)
	p.Communications = []compliance.Communication{
		sent(compliance.ActionAttempt1),
		{ID: "x", Action: compliance.ActionAttempt2, Status: compliance.CommFailed},
	}

	res := compliance.BuildDueNowQueue([]compliance.Property{p}, asOf, false)

	require.Len(t, res.Queue, 1)
	require.Len(t, res.Queue[0].Communications, 1)
	assert.Equal(t, compliance.ActionAttempt1, res.Queue[0].Communications[0].Action)
}

func TestBuildDueNowQueue_Empty(t *testing.T) {
	res := compliance.BuildDueNowQueue(nil, asOf, true)
	assert.NotNil(t, res.Queue)
	assert.Empty(t, res.Queue)
	assert.Empty(t, res.Skipped)
}

// =============================================================================
// EXCEPTIONS
// =============================================================================

func TestDetectExceptions_AccumulatesIssues(t *testing.T) {
	// GIVEN: no buyer email, level 2, no first attempt, one logged message
	// THEN: exactly missing_email and missing_1st_attempt
	p := featuredHome("a", 10)
	p.Buyer.Email = "  "
	p.EnforcementLevel = 2
	p.Communications = []compliance.Communication{{ID: "c1", Action: compliance.ActionAttempt1, Status: compliance.CommLogged}}

	out := compliance.DetectExceptions([]compliance.Property{p}, asOf)

	require.Len(t, out, 1)
	require.Len(t, out[0].Issues, 2)
	assert.Equal(t, compliance.IssueMissingEmail, out[0].Issues[0].Type)
	assert.Equal(t, compliance.IssueMissing1stAttempt, out[0].Issues[1].Type)
	assert.Equal(t, "", out[0].BuyerEmail)
	assert.Equal(t, "Buyer a", out[0].BuyerName)
}

func TestDetectExceptions_ExcludesCleanProperties(t *testing.T) {
	// GIVEN: email set, level 0, contacted 10 days ago
	// THEN: not listed
	p := featuredHome("clean", 10)
	p.LastContactDate = ptr(asOf.AddDays(-10))

	out := compliance.DetectExceptions([]compliance.Property{p}, asOf)

	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestDetectExceptions_Missing2ndAttempt(t *testing.T) {
	p := featuredHome("a", 30)
	p.EnforcementLevel = 2
	p.Compliance1stAttempt = ptr(asOf.AddDays(-20))
	p.Communications = []compliance.Communication{sent(compliance.ActionAttempt1)}

	issues := compliance.DetectIssues(p, asOf)

	require.Len(t, issues, 1)
	assert.Equal(t, compliance.IssueMissing2ndAttempt, issues[0].Type)

	// Level 1 does not require the 2nd attempt yet
	p.EnforcementLevel = 1
	assert.Empty(t, compliance.DetectIssues(p, asOf))
}

func TestDetectExceptions_NoCommunications(t *testing.T) {
	p := featuredHome("a", 30)
	p.EnforcementLevel = 1
	p.Compliance1stAttempt = ptr(asOf.AddDays(-20))

	issues := compliance.DetectIssues(p, asOf)

	require.Len(t, issues, 1)
	assert.Equal(t, compliance.IssueNoCommunications, issues[0].Type)
}

func TestDetectExceptions_StaleContact(t *testing.T) {
	// GIVEN: last contact exactly 60 days ago, then 75 days ago
	// THEN: 60 is fine, 75 is stale and the message carries the count
	p := featuredHome("a", 0)
	p.LastContactDate = ptr(asOf.AddDays(-60))
	assert.Empty(t, compliance.DetectIssues(p, asOf))

	p.LastContactDate = ptr(asOf.AddDays(-75))
	issues := compliance.DetectIssues(p, asOf)
	require.Len(t, issues, 1)
	assert.Equal(t, compliance.IssueStaleContact, issues[0].Type)
	assert.Contains(t, issues[0].Message, "75 days")
}

func TestDetectExceptions_SortedByIssueCount(t *testing.T) {
	one := featuredHome("one", 0)
	one.Buyer = nil

	three := featuredHome("three", 0)
	three.Buyer.Email = ""
	three.EnforcementLevel = 1
	three.LastContactDate = ptr(asOf.AddDays(-100))

	out := compliance.DetectExceptions([]compliance.Property{one, three}, asOf)

	require.Len(t, out, 2)
	assert.Equal(t, generic.PropertyID("three"), out[0].ID)
	assert.Len(t, out[0].Issues, 4)
	assert.Equal(t, generic.PropertyID("one"), out[1].ID)
	assert.Equal(t, "missing_email,missing_1st_attempt,no_communications,stale_contact", compliance.IssueTypes(out[0].Issues))
}
