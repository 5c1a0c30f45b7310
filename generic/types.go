/*
Package generic provides the domain-agnostic primitives of the compliance engine.

PURPOSE:
  The compliance rules of every land-bank program reduce to the same two
  ingredients: calendar-day arithmetic and money. This package holds both,
  plus the shared error taxonomy, so the compliance package can stay focused
  on program rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal quantity with a currency unit (penalties are USD)
  - Identifiers: Type-safe property / parcel IDs

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift in penalties
  2. Determinism: Nothing here reads the clock except Today()
  3. Type Safety: Strong typing for IDs prevents mixing property and parcel IDs

USAGE:
  fine := generic.NewMoneyFromInt(50).MulInt(15) // $750

SEE ALSO:
  - time.go: TimePoint and day differences
  - period.go: Date windows
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit (money for this system)
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitUSD  Unit = "USD"
	UnitDays Unit = "days"
)

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// NewMoneyFromInt is a whole-dollar USD amount.
func NewMoneyFromInt(dollars int) Amount {
	return NewAmountFromInt(dollars, UnitUSD)
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount              { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) MulInt(n int) Amount       { return Amount{Value: a.Value.Mul(decimal.NewFromInt(int64(n))), Unit: a.Unit} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool       { return a.Unit == b.Unit && a.Value.Equal(b.Value) }
func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Float64 is for display and JSON only; arithmetic stays in decimal.
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

func (a Amount) String() string {
	if a.Unit == UnitUSD {
		return "$" + a.Value.StringFixed(2)
	}
	return a.Value.String() + " " + string(a.Unit)
}

// MarshalJSON emits a plain number so dashboards can sort on it.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Float64())
}

// UnmarshalJSON reads a plain number as USD.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = Amount{Value: d, Unit: UnitUSD}
	return nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PropertyID string
type ParcelID string
