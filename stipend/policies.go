/*
policies.go - Session and bonus policy configuration

PURPOSE:
  Holds the fixed parameters of the payout rules. A Policy is built once
  (defaults below, or parsed by the factory package from JSON) and injected
  into the Engine. Nothing mutates it afterwards.

DEFAULTS:
  Morning:   09:30-13:00, late from 10:00, very late from 10:30,
             base 400, 15 per day when reduced, 3.5 expected hours
  Afternoon: 14:00-17:00, late from 14:15, very late from 14:30,
             base 250, 10 per day when reduced, 3.0 expected hours
  Bonuses:   20 per perfect day, 5 per partial day, tier 1 = 190,
             tier 2 = 200, perfect attendance = 200, early arrival
             35 per week capped at 200 (100 without afternoon)

SEE ALSO:
  - factory/policy.go: JSON policy overrides
*/
package stipend

import (
	"fmt"

	"github.com/kollel/stipend-engine/generic"
	"github.com/shopspring/decimal"
)

// SessionPolicy is the rule set of one session type.
type SessionPolicy struct {
	Start             generic.TimeOfDay
	End               generic.TimeOfDay
	PerfectStart      generic.TimeOfDay
	LateThreshold     generic.TimeOfDay
	VeryLateThreshold generic.TimeOfDay
	BaseAmount        generic.Amount
	LateDailyRate     generic.Amount
	ExpectedHours     generic.Amount
}

// BonusPolicy holds the rules that are shared across sessions.
type BonusPolicy struct {
	MaxAllowedLatesOrAbsences int
	PerfectDayBonus           generic.Amount
	PartialDayBonus           generic.Amount

	Tier1Amount              generic.Amount
	Tier2Amount              generic.Amount
	MorningTier1MaxMissing   generic.Amount
	AfternoonTier1MaxMissing generic.Amount
	MorningTier2MaxMissing   generic.Amount
	AfternoonTier2MaxMissing generic.Amount
	PerfectAttendanceBonus   generic.Amount

	EarlyAttendanceCutoff              generic.TimeOfDay
	EarlyAttendanceWeeklyBonus         generic.Amount
	EarlyAttendanceCapWithAfternoon    generic.Amount
	EarlyAttendanceCapWithoutAfternoon generic.Amount
	// EarlyAttendanceMaxLateDays is how many days after the cutoff are
	// tolerated, both per month for the full bonus and per week.
	EarlyAttendanceMaxLateDays int
}

// Policy bundles everything the engine needs.
type Policy struct {
	Morning   SessionPolicy
	Afternoon SessionPolicy
	Bonus     BonusPolicy
}

// ForSession returns the policy of the given session.
func (p Policy) ForSession(s Session) SessionPolicy {
	if s == Morning {
		return p.Morning
	}
	return p.Afternoon
}

func shekels(n int) generic.Amount { return generic.NewAmountFromInt(n, generic.UnitShekel) }

func hours(s string) generic.Amount {
	return generic.Amount{Value: decimal.RequireFromString(s), Unit: generic.UnitHours}
}

// DefaultMorningPolicy returns the morning session rules.
func DefaultMorningPolicy() SessionPolicy {
	return SessionPolicy{
		Start:             generic.NewTimeOfDay(9, 30),
		End:               generic.NewTimeOfDay(13, 0),
		PerfectStart:      generic.NewTimeOfDay(9, 30),
		LateThreshold:     generic.NewTimeOfDay(10, 0),
		VeryLateThreshold: generic.NewTimeOfDay(10, 30),
		BaseAmount:        shekels(400),
		LateDailyRate:     shekels(15),
		ExpectedHours:     hours("3.5"),
	}
}

// DefaultAfternoonPolicy returns the afternoon session rules.
func DefaultAfternoonPolicy() SessionPolicy {
	return SessionPolicy{
		Start:             generic.NewTimeOfDay(14, 0),
		End:               generic.NewTimeOfDay(17, 0),
		PerfectStart:      generic.NewTimeOfDay(14, 0),
		LateThreshold:     generic.NewTimeOfDay(14, 15),
		VeryLateThreshold: generic.NewTimeOfDay(14, 30),
		BaseAmount:        shekels(250),
		LateDailyRate:     shekels(10),
		ExpectedHours:     hours("3.0"),
	}
}

// DefaultBonusPolicy returns the shared bonus rules.
func DefaultBonusPolicy() BonusPolicy {
	return BonusPolicy{
		MaxAllowedLatesOrAbsences: 2,
		PerfectDayBonus:           shekels(20),
		PartialDayBonus:           shekels(5),

		Tier1Amount:              shekels(190),
		Tier2Amount:              shekels(200),
		MorningTier1MaxMissing:   hours("7.0"),
		AfternoonTier1MaxMissing: hours("6.0"),
		MorningTier2MaxMissing:   hours("3.0"),
		AfternoonTier2MaxMissing: hours("2.0"),
		PerfectAttendanceBonus:   shekels(200),

		EarlyAttendanceCutoff:              generic.NewTimeOfDay(9, 0),
		EarlyAttendanceWeeklyBonus:         shekels(35),
		EarlyAttendanceCapWithAfternoon:    shekels(200),
		EarlyAttendanceCapWithoutAfternoon: shekels(100),
		EarlyAttendanceMaxLateDays:         1,
	}
}

// DefaultPolicy returns the complete default rule set.
func DefaultPolicy() Policy {
	return Policy{
		Morning:   DefaultMorningPolicy(),
		Afternoon: DefaultAfternoonPolicy(),
		Bonus:     DefaultBonusPolicy(),
	}
}

// Validate checks the ordering of thresholds and the sign of amounts.
func (p Policy) Validate() error {
	for _, s := range Sessions {
		if err := p.ForSession(s).validate(string(s)); err != nil {
			return err
		}
	}
	b := p.Bonus
	if b.MaxAllowedLatesOrAbsences < 0 {
		return &generic.PolicyError{Field: "bonus.max_allowed_lates_or_absences", Reason: "must not be negative"}
	}
	if b.EarlyAttendanceMaxLateDays < 0 {
		return &generic.PolicyError{Field: "bonus.early_attendance_max_late_days", Reason: "must not be negative"}
	}
	amounts := map[string]generic.Amount{
		"perfect_day_bonus":        b.PerfectDayBonus,
		"partial_day_bonus":        b.PartialDayBonus,
		"tier1_amount":             b.Tier1Amount,
		"tier2_amount":             b.Tier2Amount,
		"perfect_attendance_bonus": b.PerfectAttendanceBonus,
		"early_weekly_bonus":       b.EarlyAttendanceWeeklyBonus,
		"early_cap_with_afternoon": b.EarlyAttendanceCapWithAfternoon,
		"early_cap_without":        b.EarlyAttendanceCapWithoutAfternoon,
	}
	for name, a := range amounts {
		if a.IsNegative() {
			return &generic.PolicyError{Field: "bonus." + name, Reason: "must not be negative"}
		}
	}
	return nil
}

func (sp SessionPolicy) validate(name string) error {
	field := func(f string) string { return fmt.Sprintf("%s.%s", name, f) }
	switch {
	case !sp.Start.Before(sp.End):
		return &generic.PolicyError{Field: field("start"), Reason: "must be before end"}
	case sp.PerfectStart.After(sp.LateThreshold):
		return &generic.PolicyError{Field: field("perfect_start"), Reason: "must not be after late threshold"}
	case sp.LateThreshold.After(sp.VeryLateThreshold):
		return &generic.PolicyError{Field: field("late_threshold"), Reason: "must not be after very late threshold"}
	case sp.BaseAmount.IsNegative() || sp.LateDailyRate.IsNegative():
		return &generic.PolicyError{Field: field("base_amount"), Reason: "amounts must not be negative"}
	case !sp.ExpectedHours.IsPositive():
		return &generic.PolicyError{Field: field("expected_hours"), Reason: "must be positive"}
	}
	return nil
}
