/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Input errors - Missing or unparsable dates, unknown programs
  2. Lookup errors - Property not found
  3. Store errors - Database-level failures

USAGE:
  if errors.Is(err, generic.ErrMissingSaleDate) {
      // skip the property, keep building the queue
  }

SEE ALSO:
  - compliance/timing.go: Turns input errors into error verdicts
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingSaleDate is returned when a property has no sale/close date.
	// Timing cannot be computed without it.
	ErrMissingSaleDate = errors.New("missing sale date")

	// ErrInvalidDate is returned when a date string cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrUnknownProgram is returned when a program type has no rule table entry.
	ErrUnknownProgram = errors.New("unknown program")

	// ErrPropertyNotFound is returned when a referenced property doesn't exist.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrStoreUnavailable is returned when the property store cannot be reached.
	ErrStoreUnavailable = errors.New("property store unavailable")

	// ErrInvalidRule is returned when a rule table entry breaks its invariants.
	ErrInvalidRule = errors.New("invalid rule")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PropertyInputError explains why a single property was skipped during a
// batch computation.
type PropertyInputError struct {
	PropertyID PropertyID
	Field      string
	Err        error
}

func (e *PropertyInputError) Error() string {
	return fmt.Sprintf("property %s: %s: %v", e.PropertyID, e.Field, e.Err)
}

func (e *PropertyInputError) Unwrap() error {
	return e.Err
}

// RuleViolationError reports which invariant of a rule table entry failed.
type RuleViolationError struct {
	Program string
	Step    int
	Reason  string
}

func (e *RuleViolationError) Error() string {
	return fmt.Sprintf("rule %s step %d: %s", e.Program, e.Step, e.Reason)
}

func (e *RuleViolationError) Unwrap() error {
	return ErrInvalidRule
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrMissingSaleDate) ||
		errors.Is(err, ErrUnknownProgram)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPropertyNotFound)
}
