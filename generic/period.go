package generic

// =============================================================================
// PERIOD - A closed window of calendar days
// =============================================================================

// Period is an inclusive [Start, End] range of days. Used for "what comes due
// in the next N days" lookups.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod returns the window starting at start and spanning days days
// (start included). A non-positive span yields a single-day window.
func NewPeriod(start TimePoint, days int) Period {
	if days < 1 {
		days = 1
	}
	return Period{Start: start, End: start.AddDays(days - 1)}
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns the number of calendar days in the period.
func (p Period) Days() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
