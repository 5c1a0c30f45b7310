package factory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("comm-%d", n)
	}
}

func TestParseProgram(t *testing.T) {
	tests := []struct {
		label string
		want  compliance.Program
	}{
		{"FeaturedHomes", compliance.ProgramFeaturedHomes},
		{"Featured Homes", compliance.ProgramFeaturedHomes},
		{" featured-homes ", compliance.ProgramFeaturedHomes},
		{"Ready4Rehab", compliance.ProgramReady4Rehab},
		{"Ready for Rehab", compliance.ProgramReady4Rehab},
		{"R4R", compliance.ProgramReady4Rehab},
		{"Demolition", compliance.ProgramDemolition},
		{"vip", compliance.ProgramVIP},
		{"Side Lot", compliance.Program("Side Lot")},
		{"", compliance.Program("")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseProgram(tt.label), "label %q", tt.label)
	}
}

func TestParseRecordDate_Layouts(t *testing.T) {
	for _, s := range []string{"2024-01-15", "01/15/2024", "1/15/2024", "2024-01-15T18:30:00Z", "1/15/2024 6:30:00 PM"} {
		d, err := ParseRecordDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, "2024-01-15", generic.FromTime(d).String(), s)
		assert.Zero(t, d.Hour(), s)
	}

	_, err := ParseRecordDate("15.01.2024")
	assert.True(t, errors.Is(err, generic.ErrInvalidDate))
}

func TestParseJSON(t *testing.T) {
	// GIVEN: a FileMaker-style export with a US date and a label program
	// WHEN: parsing
	// THEN: program is normalized, dates are parsed, communication gets an ID
	data := []byte(`[
	  {
	    "id": "fh-1",
	    "parcel_id": "01-001",
	    "address": "1 Main St",
	    "program": "Featured Homes",
	    "date_sold": "01/15/2024",
	    "compliance_1st_attempt": "",
	    "enforcement_level": 1,
	    "status": "Active",
	    "buyer": {"name": "Ada", "email": "ada@example.org"},
	    "communications": [{"action": "attempt_1", "status": "SENT", "sent_at": "2024-02-20"}]
	  }
	]`)
	f := &PropertyFactory{NewID: sequentialIDs()}

	props, err := f.ParseJSON(data)

	require.NoError(t, err)
	require.Len(t, props, 1)
	p := props[0]
	assert.Equal(t, string(compliance.ProgramFeaturedHomes), p.ProgramType)
	require.NotNil(t, p.DateSold)
	assert.Equal(t, "2024-01-15", generic.FromTime(*p.DateSold).String())
	assert.Nil(t, p.Compliance1stAttempt)
	assert.Equal(t, "active", p.Status)
	assert.Equal(t, "ada@example.org", p.BuyerEmail())
	require.Len(t, p.Communications, 1)
	assert.Equal(t, "comm-1", p.Communications[0].ID)
	assert.Equal(t, compliance.ActionAttempt1, p.Communications[0].Action)
	assert.Equal(t, compliance.CommSent, p.Communications[0].Status)
	assert.Equal(t, generic.PropertyID("fh-1"), p.Communications[0].PropertyID)
}

func TestParseJSON_WrappedSet(t *testing.T) {
	props, err := NewPropertyFactory().ParseJSON([]byte(`{"properties":[{"id":"a","program":"VIP"}]}`))
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, string(compliance.ProgramVIP), props[0].ProgramType)
	assert.Nil(t, props[0].DateSold)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
properties:
  - id: demo-1
    parcel_id: "02-002"
    program: Demo
    date_sold: "2024-03-01"
    enforcement_level: 2
    buyer:
      name: Grace
      email: ""
    communications:
      - id: c-1
        action: ATTEMPT_1
        status: logged
`)
	props, err := NewPropertyFactory().ParseYAML(data)

	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, string(compliance.ProgramDemolition), props[0].ProgramType)
	assert.Equal(t, 2, props[0].EnforcementLevel)
	assert.Equal(t, compliance.CommLogged, props[0].Communications[0].Status)
	assert.Equal(t, "c-1", props[0].Communications[0].ID)
}

func TestFromRecord_Rejects(t *testing.T) {
	f := NewPropertyFactory()

	_, err := f.FromRecord(PropertyRecord{ID: ""})
	assert.Error(t, err)

	_, err = f.FromRecord(PropertyRecord{ID: "a", EnforcementLevel: 7})
	assert.Error(t, err)

	_, err = f.FromRecord(PropertyRecord{ID: "a", DateSold: "soon"})
	assert.True(t, errors.Is(err, generic.ErrInvalidDate))
	assert.Contains(t, err.Error(), "date_sold")
}

func TestToRecord_RoundTripsThroughFromRecord(t *testing.T) {
	f := &PropertyFactory{NewID: sequentialIDs()}
	orig, err := f.FromRecord(PropertyRecord{
		ID: "r-1", Program: "R4R", DateSold: "05/01/2024", EnforcementLevel: 1,
		Buyer:          &BuyerRecord{Name: "Lin", Email: "lin@example.org"},
		Communications: []CommunicationRecord{{Action: "ATTEMPT_1", Status: "sent"}},
	})
	require.NoError(t, err)

	back, err := f.FromRecord(f.ToRecord(orig))

	require.NoError(t, err)
	assert.Equal(t, orig, back)
}
