/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts JSON policy files into stipend.Policy. Every field is optional;
  a missing field keeps the default from stipend.DefaultPolicy, so a file
  only needs to name what differs.

JSON SCHEMA:
  {
    "morning": {
      "start": "09:30",
      "end": "13:00",
      "perfect_start": "09:30",
      "late_threshold": "10:00",
      "very_late_threshold": "10:30",
      "base_amount": 400,
      "late_daily_rate": 15,
      "expected_hours": 3.5
    },
    "afternoon": { ... same keys ... },
    "bonus": {
      "max_allowed_lates_or_absences": 2,
      "perfect_day_bonus": 20,
      "partial_day_bonus": 5,
      "tier1_amount": 190,
      "tier2_amount": 200,
      "morning_tier1_max_missing_hours": 7,
      "afternoon_tier1_max_missing_hours": 6,
      "morning_tier2_max_missing_hours": 3,
      "afternoon_tier2_max_missing_hours": 2,
      "perfect_attendance_bonus": 200,
      "early_attendance_cutoff": "09:00",
      "early_attendance_weekly_bonus": 35,
      "early_attendance_cap_with_afternoon": 200,
      "early_attendance_cap_without_afternoon": 100,
      "early_attendance_max_late_days": 1
    }
  }

VALIDATION:
  Field shapes (HH:MM times, non-negative numbers) are checked with
  go-playground/validator; cross-field rules (threshold ordering) are
  checked by stipend.Policy.Validate.

USAGE:
  f := factory.NewPolicyFactory()
  policy, err := f.ParsePolicyFile("policy.json")

SEE ALSO:
  - stipend/policies.go: Defaults and cross-field validation
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/stipend"
	"github.com/shopspring/decimal"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a policy.
type PolicyJSON struct {
	Morning   *SessionJSON `json:"morning,omitempty" validate:"omitempty"`
	Afternoon *SessionJSON `json:"afternoon,omitempty" validate:"omitempty"`
	Bonus     *BonusJSON   `json:"bonus,omitempty" validate:"omitempty"`
}

// SessionJSON represents one session's rules.
type SessionJSON struct {
	Start             *string  `json:"start,omitempty" validate:"omitempty,datetime=15:04"`
	End               *string  `json:"end,omitempty" validate:"omitempty,datetime=15:04"`
	PerfectStart      *string  `json:"perfect_start,omitempty" validate:"omitempty,datetime=15:04"`
	LateThreshold     *string  `json:"late_threshold,omitempty" validate:"omitempty,datetime=15:04"`
	VeryLateThreshold *string  `json:"very_late_threshold,omitempty" validate:"omitempty,datetime=15:04"`
	BaseAmount        *float64 `json:"base_amount,omitempty" validate:"omitempty,gte=0"`
	LateDailyRate     *float64 `json:"late_daily_rate,omitempty" validate:"omitempty,gte=0"`
	ExpectedHours     *float64 `json:"expected_hours,omitempty" validate:"omitempty,gt=0,lte=24"`
}

// BonusJSON represents the shared bonus rules.
type BonusJSON struct {
	MaxAllowedLatesOrAbsences *int     `json:"max_allowed_lates_or_absences,omitempty" validate:"omitempty,gte=0"`
	PerfectDayBonus           *float64 `json:"perfect_day_bonus,omitempty" validate:"omitempty,gte=0"`
	PartialDayBonus           *float64 `json:"partial_day_bonus,omitempty" validate:"omitempty,gte=0"`

	Tier1Amount              *float64 `json:"tier1_amount,omitempty" validate:"omitempty,gte=0"`
	Tier2Amount              *float64 `json:"tier2_amount,omitempty" validate:"omitempty,gte=0"`
	MorningTier1MaxMissing   *float64 `json:"morning_tier1_max_missing_hours,omitempty" validate:"omitempty,gte=0"`
	AfternoonTier1MaxMissing *float64 `json:"afternoon_tier1_max_missing_hours,omitempty" validate:"omitempty,gte=0"`
	MorningTier2MaxMissing   *float64 `json:"morning_tier2_max_missing_hours,omitempty" validate:"omitempty,gte=0"`
	AfternoonTier2MaxMissing *float64 `json:"afternoon_tier2_max_missing_hours,omitempty" validate:"omitempty,gte=0"`
	PerfectAttendanceBonus   *float64 `json:"perfect_attendance_bonus,omitempty" validate:"omitempty,gte=0"`

	EarlyAttendanceCutoff              *string  `json:"early_attendance_cutoff,omitempty" validate:"omitempty,datetime=15:04"`
	EarlyAttendanceWeeklyBonus         *float64 `json:"early_attendance_weekly_bonus,omitempty" validate:"omitempty,gte=0"`
	EarlyAttendanceCapWithAfternoon    *float64 `json:"early_attendance_cap_with_afternoon,omitempty" validate:"omitempty,gte=0"`
	EarlyAttendanceCapWithoutAfternoon *float64 `json:"early_attendance_cap_without_afternoon,omitempty" validate:"omitempty,gte=0"`
	EarlyAttendanceMaxLateDays         *int     `json:"early_attendance_max_late_days,omitempty" validate:"omitempty,gte=0"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to Go structs.
type PolicyFactory struct {
	validate *validator.Validate
}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{validate: validator.New()}
}

// ParsePolicy parses a JSON string into a Policy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (stipend.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return stipend.Policy{}, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// ParsePolicyFile reads and parses a policy file. An empty path yields the
// default policy.
func (f *PolicyFactory) ParsePolicyFile(path string) (stipend.Policy, error) {
	if path == "" {
		return stipend.DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return stipend.Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return f.ParsePolicy(string(data))
}

// FromJSON overlays pj onto the default policy and validates the result.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (stipend.Policy, error) {
	if err := f.validate.Struct(pj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return stipend.Policy{}, &generic.PolicyError{
				Field:  fe.Namespace(),
				Reason: fmt.Sprintf("failed %q check", fe.Tag()),
			}
		}
		return stipend.Policy{}, fmt.Errorf("%w: %v", generic.ErrInvalidPolicy, err)
	}

	p := stipend.DefaultPolicy()
	if pj.Morning != nil {
		p.Morning = pj.Morning.apply(p.Morning)
	}
	if pj.Afternoon != nil {
		p.Afternoon = pj.Afternoon.apply(p.Afternoon)
	}
	if pj.Bonus != nil {
		p.Bonus = pj.Bonus.apply(p.Bonus)
	}

	if err := p.Validate(); err != nil {
		return stipend.Policy{}, err
	}
	return p, nil
}

func (s *SessionJSON) apply(sp stipend.SessionPolicy) stipend.SessionPolicy {
	setTime(&sp.Start, s.Start)
	setTime(&sp.End, s.End)
	setTime(&sp.PerfectStart, s.PerfectStart)
	setTime(&sp.LateThreshold, s.LateThreshold)
	setTime(&sp.VeryLateThreshold, s.VeryLateThreshold)
	setAmount(&sp.BaseAmount, s.BaseAmount)
	setAmount(&sp.LateDailyRate, s.LateDailyRate)
	setAmount(&sp.ExpectedHours, s.ExpectedHours)
	return sp
}

func (b *BonusJSON) apply(bp stipend.BonusPolicy) stipend.BonusPolicy {
	if b.MaxAllowedLatesOrAbsences != nil {
		bp.MaxAllowedLatesOrAbsences = *b.MaxAllowedLatesOrAbsences
	}
	setAmount(&bp.PerfectDayBonus, b.PerfectDayBonus)
	setAmount(&bp.PartialDayBonus, b.PartialDayBonus)
	setAmount(&bp.Tier1Amount, b.Tier1Amount)
	setAmount(&bp.Tier2Amount, b.Tier2Amount)
	setAmount(&bp.MorningTier1MaxMissing, b.MorningTier1MaxMissing)
	setAmount(&bp.AfternoonTier1MaxMissing, b.AfternoonTier1MaxMissing)
	setAmount(&bp.MorningTier2MaxMissing, b.MorningTier2MaxMissing)
	setAmount(&bp.AfternoonTier2MaxMissing, b.AfternoonTier2MaxMissing)
	setAmount(&bp.PerfectAttendanceBonus, b.PerfectAttendanceBonus)
	setTime(&bp.EarlyAttendanceCutoff, b.EarlyAttendanceCutoff)
	setAmount(&bp.EarlyAttendanceWeeklyBonus, b.EarlyAttendanceWeeklyBonus)
	setAmount(&bp.EarlyAttendanceCapWithAfternoon, b.EarlyAttendanceCapWithAfternoon)
	setAmount(&bp.EarlyAttendanceCapWithoutAfternoon, b.EarlyAttendanceCapWithoutAfternoon)
	if b.EarlyAttendanceMaxLateDays != nil {
		bp.EarlyAttendanceMaxLateDays = *b.EarlyAttendanceMaxLateDays
	}
	return bp
}

// setTime is only called after validation, so the value is a valid HH:MM.
func setTime(dst *generic.TimeOfDay, v *string) {
	if v != nil {
		*dst = generic.MustParseTimeOfDay(*v)
	}
}

func setAmount(dst *generic.Amount, v *float64) {
	if v != nil {
		*dst = generic.Amount{Value: decimal.NewFromFloat(*v), Unit: dst.Unit}
	}
}

// =============================================================================
// EXPORT
// =============================================================================

// ToJSON renders a policy in the file format, with every field set.
func ToJSON(p stipend.Policy) PolicyJSON {
	return PolicyJSON{
		Morning:   sessionToJSON(p.Morning),
		Afternoon: sessionToJSON(p.Afternoon),
		Bonus: &BonusJSON{
			MaxAllowedLatesOrAbsences:          intPtr(p.Bonus.MaxAllowedLatesOrAbsences),
			PerfectDayBonus:                    floatPtr(p.Bonus.PerfectDayBonus),
			PartialDayBonus:                    floatPtr(p.Bonus.PartialDayBonus),
			Tier1Amount:                        floatPtr(p.Bonus.Tier1Amount),
			Tier2Amount:                        floatPtr(p.Bonus.Tier2Amount),
			MorningTier1MaxMissing:             floatPtr(p.Bonus.MorningTier1MaxMissing),
			AfternoonTier1MaxMissing:           floatPtr(p.Bonus.AfternoonTier1MaxMissing),
			MorningTier2MaxMissing:             floatPtr(p.Bonus.MorningTier2MaxMissing),
			AfternoonTier2MaxMissing:           floatPtr(p.Bonus.AfternoonTier2MaxMissing),
			PerfectAttendanceBonus:             floatPtr(p.Bonus.PerfectAttendanceBonus),
			EarlyAttendanceCutoff:              timePtr(p.Bonus.EarlyAttendanceCutoff),
			EarlyAttendanceWeeklyBonus:         floatPtr(p.Bonus.EarlyAttendanceWeeklyBonus),
			EarlyAttendanceCapWithAfternoon:    floatPtr(p.Bonus.EarlyAttendanceCapWithAfternoon),
			EarlyAttendanceCapWithoutAfternoon: floatPtr(p.Bonus.EarlyAttendanceCapWithoutAfternoon),
			EarlyAttendanceMaxLateDays:         intPtr(p.Bonus.EarlyAttendanceMaxLateDays),
		},
	}
}

func sessionToJSON(sp stipend.SessionPolicy) *SessionJSON {
	return &SessionJSON{
		Start:             timePtr(sp.Start),
		End:               timePtr(sp.End),
		PerfectStart:      timePtr(sp.PerfectStart),
		LateThreshold:     timePtr(sp.LateThreshold),
		VeryLateThreshold: timePtr(sp.VeryLateThreshold),
		BaseAmount:        floatPtr(sp.BaseAmount),
		LateDailyRate:     floatPtr(sp.LateDailyRate),
		ExpectedHours:     floatPtr(sp.ExpectedHours),
	}
}

func timePtr(t generic.TimeOfDay) *string { s := t.String(); return &s }
func floatPtr(a generic.Amount) *float64  { f := a.Float64(); return &f }
func intPtr(n int) *int                   { return &n }
