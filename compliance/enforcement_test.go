package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/landbank/compliance-engine/compliance"
)

func TestCalculateEnforcementLevel_Boundaries(t *testing.T) {
	days := []int{0, 1, 30, 31, 60, 61, 90, 91, 1000}
	want := []int{0, 1, 1, 2, 2, 3, 3, 4, 4}

	for i, d := range days {
		assert.Equal(t, want[i], compliance.CalculateEnforcementLevel(d), "daysOverdue=%d", d)
	}
	assert.Equal(t, 0, compliance.CalculateEnforcementLevel(-15))
}

func TestCalculatePenalty_Tiers(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{-10, 0},
		{0, 0},
		{30, 0},
		{31, 50},
		{45, 750},
		{60, 1500},
		{75, 3000},
		{90, 4500},
		{100, 6500},
		{117, 9900},
		{118, 10000},
		{1000, 10000},
	}
	for _, tt := range tests {
		got := compliance.CalculatePenalty(tt.days)
		assert.True(t, usd(tt.want).Equal(got), "daysOverdue=%d: want %d got %s", tt.days, tt.want, got)
	}
}

func TestCalculatePenalty_MonotonicAndCapped(t *testing.T) {
	// GIVEN: every day count from -5 to 400
	// THEN: penalties never decrease and never exceed the cap
	prev := compliance.CalculatePenalty(-5)
	limit := usd(10000)
	for d := -4; d <= 400; d++ {
		cur := compliance.CalculatePenalty(d)
		assert.False(t, cur.LessThan(prev), "penalty decreased at %d", d)
		assert.False(t, cur.GreaterThan(limit), "penalty above cap at %d", d)
		prev = cur
	}
}

func TestEnforcementLevelName(t *testing.T) {
	assert.Equal(t, "Compliant", compliance.EnforcementLevelName(0))
	assert.Equal(t, "Legal Remedies", compliance.EnforcementLevelName(4))
	assert.Equal(t, "Unknown", compliance.EnforcementLevelName(5))
	assert.Equal(t, "Unknown", compliance.EnforcementLevelName(-1))
}
