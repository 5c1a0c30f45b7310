package compliance_test

import (
	"time"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func ptr(tp generic.TimePoint) *time.Time {
	t := tp.Time
	return &t
}

func usd(n int) generic.Amount {
	return generic.NewMoneyFromInt(n)
}

// asOf is the fixed evaluation day used across tests.
var asOf = date(2024, time.June, 1)

// featuredHome returns a FeaturedHomes property whose ATTEMPT_1 step
// (sale + 30) is overdue by exactly overdue days on asOf.
func featuredHome(id string, overdue int) compliance.Property {
	return compliance.Property{
		ID:          generic.PropertyID(id),
		ParcelID:    generic.ParcelID("P-" + id),
		Address:     id + " Main St",
		ProgramType: string(compliance.ProgramFeaturedHomes),
		DateSold:    ptr(asOf.AddDays(-(30 + overdue))),
		Status:      "active",
		Buyer:       &compliance.Buyer{ID: "b-" + id, Name: "Buyer " + id, Email: id + "@example.org"},
	}
}

func sent(action compliance.Action) compliance.Communication {
	return compliance.Communication{ID: string(action), Action: action, Status: compliance.CommSent}
}
