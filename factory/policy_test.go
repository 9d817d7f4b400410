package factory_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kollel/stipend-engine/factory"
	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/stipend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy_OverridesOnlyNamedFields(t *testing.T) {
	// GIVEN: A file that raises the morning base and moves the early cutoff
	// WHEN: Parsing
	// THEN: Those fields change, everything else keeps its default

	f := factory.NewPolicyFactory()
	p, err := f.ParsePolicy(`{
		"morning": {"base_amount": 450},
		"bonus": {"early_attendance_cutoff": "08:45", "tier2_amount": 250}
	}`)
	require.NoError(t, err)

	def := stipend.DefaultPolicy()
	assert.True(t, p.Morning.BaseAmount.Equal(generic.NewAmountFromInt(450, generic.UnitShekel)))
	assert.Equal(t, generic.NewTimeOfDay(8, 45), p.Bonus.EarlyAttendanceCutoff)
	assert.True(t, p.Bonus.Tier2Amount.Equal(generic.NewAmountFromInt(250, generic.UnitShekel)))
	assert.Equal(t, def.Morning.LateThreshold, p.Morning.LateThreshold)
	assert.Equal(t, def.Afternoon, p.Afternoon)
}

func TestParsePolicy_RejectsMalformedTime(t *testing.T) {
	f := factory.NewPolicyFactory()

	_, err := f.ParsePolicy(`{"afternoon": {"late_threshold": "quarter past two"}}`)

	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrInvalidPolicy)
}

func TestParsePolicy_RejectsNegativeAmount(t *testing.T) {
	f := factory.NewPolicyFactory()

	_, err := f.ParsePolicy(`{"bonus": {"perfect_day_bonus": -5}}`)

	assert.ErrorIs(t, err, generic.ErrInvalidPolicy)
}

func TestParsePolicy_RejectsThresholdsOutOfOrder(t *testing.T) {
	f := factory.NewPolicyFactory()

	_, err := f.ParsePolicy(`{"morning": {"late_threshold": "10:45"}}`)

	var pe *generic.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "morning.late_threshold", pe.Field)
}

func TestParsePolicy_InvalidJSON(t *testing.T) {
	f := factory.NewPolicyFactory()

	_, err := f.ParsePolicy(`{"morning": `)

	assert.Error(t, err)
}

func TestParsePolicyFile_EmptyPathIsDefault(t *testing.T) {
	f := factory.NewPolicyFactory()

	p, err := f.ParsePolicyFile("")

	require.NoError(t, err)
	assert.Equal(t, stipend.DefaultPolicy(), p)
}

func TestToJSON_RoundTripsThroughFile(t *testing.T) {
	f := factory.NewPolicyFactory()
	data, err := json.Marshal(factory.ToJSON(stipend.DefaultPolicy()))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	p, err := f.ParsePolicyFile(path)
	require.NoError(t, err)

	def := stipend.DefaultPolicy()
	assert.Equal(t, def.Morning.Start, p.Morning.Start)
	assert.True(t, def.Morning.ExpectedHours.Equal(p.Morning.ExpectedHours))
	assert.True(t, def.Bonus.EarlyAttendanceCapWithoutAfternoon.Equal(p.Bonus.EarlyAttendanceCapWithoutAfternoon))
	assert.Equal(t, def.Bonus.MaxAllowedLatesOrAbsences, p.Bonus.MaxAllowedLatesOrAbsences)
}
