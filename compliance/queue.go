/*
queue.go - Due-now queue and exceptions aggregation

PURPOSE:
  Batch views over a fetched set of properties:
  - Due-now queue: the prioritized list of properties staff should act on
  - Exceptions: properties with data-quality or process-completeness defects

DUE-NOW:
  1. Flatten every property (sent communications only)
  2. Resolve timing; error verdicts go to the Skipped channel
  3. Optionally keep only isDueNow
  4. Stable sort by daysOverdue descending

  The HTTP contract only exposes Queue. Skipped is kept for logging and
  scheduler run records.

EXCEPTIONS:
  Fixed, ordered checks; each one independently appends an issue:
    missing_email        blank buyer email
    missing_1st_attempt  enforcement active, no 1st attempt
    missing_2nd_attempt  1st attempt, no 2nd attempt, level >= 2
    no_communications    enforcement active, nothing logged
    stale_contact        last contact more than 60 days ago
  Clean properties are dropped; the rest are stable-sorted by issue count.

SEE ALSO:
  - timing.go: Per-property verdicts
  - service.go: Fetch + aggregate
*/
package compliance

import (
	"fmt"
	"slices"
	"strings"

	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// DUE-NOW QUEUE
// =============================================================================

// QueueItem is a flattened property with its verdict merged in.
type QueueItem struct {
	FlatProperty
	Verdict
}

// SkippedProperty is a property the queue could not evaluate.
type SkippedProperty struct {
	ID     generic.PropertyID `json:"id"`
	Reason string             `json:"reason"`
}

// DueNowResult is the two-channel outcome of a queue build.
type DueNowResult struct {
	Queue   []QueueItem       `json:"queue"`
	Skipped []SkippedProperty `json:"skipped"`
}

// BuildDueNowQueue resolves every property and returns the sorted queue.
func BuildDueNowQueue(props []Property, today generic.TimePoint, dueOnly bool) DueNowResult {
	res := DueNowResult{Queue: make([]QueueItem, 0, len(props))}
	for _, p := range props {
		flat := Flatten(p)
		v := ComputeTiming(flat, today)
		if v.Error {
			res.Skipped = append(res.Skipped, SkippedProperty{ID: p.ID, Reason: v.ErrorReason})
			continue
		}
		if dueOnly && !v.IsDueNow {
			continue
		}
		res.Queue = append(res.Queue, QueueItem{FlatProperty: flat, Verdict: v})
	}

	slices.SortStableFunc(res.Queue, func(a, b QueueItem) int {
		return b.DaysOverdue - a.DaysOverdue
	})
	return res
}

// =============================================================================
// EXCEPTIONS
// =============================================================================

// PropertyExceptions lists the issues found on one property.
type PropertyExceptions struct {
	ID               generic.PropertyID `json:"id"`
	ParcelID         generic.ParcelID   `json:"parcelId"`
	Address          string             `json:"address"`
	BuyerName        string             `json:"buyerName"`
	BuyerEmail       string             `json:"buyerEmail"`
	ProgramType      string             `json:"programType"`
	EnforcementLevel int                `json:"enforcementLevel"`
	Issues           []Issue            `json:"issues"`
}

// DetectIssues runs the exception checks against one property. Communication
// count covers every status.
func DetectIssues(p Property, today generic.TimePoint) []Issue {
	var issues []Issue

	if p.BuyerEmail() == "" {
		issues = append(issues, Issue{Type: IssueMissingEmail, Message: "No buyer email on file"})
	}

	if p.EnforcementLevel > 0 && p.Compliance1stAttempt == nil {
		issues = append(issues, Issue{
			Type:    IssueMissing1stAttempt,
			Message: fmt.Sprintf("Enforcement level %d without a 1st compliance attempt", p.EnforcementLevel),
		})
	}

	if p.Compliance1stAttempt != nil && p.Compliance2ndAttempt == nil && p.EnforcementLevel >= LevelWarning {
		issues = append(issues, Issue{
			Type:    IssueMissing2ndAttempt,
			Message: fmt.Sprintf("Enforcement level %d without a 2nd compliance attempt", p.EnforcementLevel),
		})
	}

	if p.EnforcementLevel > 0 && len(p.Communications) == 0 {
		issues = append(issues, Issue{Type: IssueNoCommunications, Message: "Enforcement active but no communications logged"})
	}

	if last := generic.FromTimePtr(p.LastContactDate); last != nil {
		if days := generic.DaysBetween(*last, today); days > staleContactDays {
			issues = append(issues, Issue{
				Type:    IssueStaleContact,
				Message: fmt.Sprintf("Last contact was %d days ago", days),
			})
		}
	}

	return issues
}

// DetectExceptions returns every property with at least one issue, most
// issues first.
func DetectExceptions(props []Property, today generic.TimePoint) []PropertyExceptions {
	out := make([]PropertyExceptions, 0)
	for _, p := range props {
		issues := DetectIssues(p, today)
		if len(issues) == 0 {
			continue
		}
		out = append(out, PropertyExceptions{
			ID:               p.ID,
			ParcelID:         p.ParcelID,
			Address:          p.Address,
			BuyerName:        p.BuyerName(),
			BuyerEmail:       p.BuyerEmail(),
			ProgramType:      p.ProgramType,
			EnforcementLevel: p.EnforcementLevel,
			Issues:           issues,
		})
	}

	slices.SortStableFunc(out, func(a, b PropertyExceptions) int {
		return len(b.Issues) - len(a.Issues)
	})
	return out
}

// IssueTypes joins issue types for compact display.
func IssueTypes(issues []Issue) string {
	types := make([]string, len(issues))
	for i, is := range issues {
		types[i] = is.Type
	}
	return strings.Join(types, ",")
}
