/*
Package generic provides the domain-agnostic building blocks of the stipend engine.

PURPOSE:
  This package contains the value types that the rules engine is built from:
  decimal amounts with a unit, time-of-day values with a "missing" sentinel,
  calendar periods for counting working days, and the error taxonomy shared
  by ingestion, the engine and the report writers.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 400 ILS, 3.5 hours)
  - StudentID: Type-safe identifier for a student

DESIGN PRINCIPLES:
  1. Immutability: Values are never mutated after construction
  2. Precision: Uses decimal.Decimal to avoid floating-point drift in payouts
  3. Type Safety: Strong typing for IDs and units

USAGE:
  base := generic.NewAmountFromInt(400, generic.UnitShekel)
  bonus := generic.NewAmountFromInt(20, generic.UnitShekel).MulInt(22)
  total := base.Add(bonus)

SEE ALSO:
  - time.go: Time-of-day normalization and the missing-exit sentinel
  - period.go: Reporting periods and working-day counting
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitShekel Unit = "ILS"
	UnitHours  Unit = "hours"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// ZeroAmount returns a zero quantity of the given unit.
func ZeroAmount(unit Unit) Amount { return Amount{Value: decimal.Zero, Unit: unit} }

// MustParseDecimal panics on malformed input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) MulInt(n int) Amount          { return a.Mul(decimal.NewFromInt(int64(n))) }
func (a Amount) Round(places int32) Amount    { return Amount{Value: a.Value.Round(places), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) LessThanOrEqual(b Amount) bool {
	return a.Value.LessThanOrEqual(b.Value)
}
func (a Amount) Equal(b Amount) bool { return a.Unit == b.Unit && a.Value.Equal(b.Value) }
func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ClampZero returns the amount, or zero if it is negative.
func (a Amount) ClampZero() Amount {
	if a.IsNegative() {
		return a.Zero()
	}
	return a
}

// Float64 is for presentation layers only; arithmetic stays in decimal.
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

// MarshalJSON renders the value as a plain JSON number; the unit is implied
// by the field.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Value.String()), nil
}

func (a Amount) String() string {
	return a.Value.StringFixed(2) + " " + string(a.Unit)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID string
