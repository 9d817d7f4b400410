package generic_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kollel/stipend-engine/generic"
)

func TestMonthPeriod(t *testing.T) {
	p := generic.MonthPeriod(2024, time.February)

	assert.Equal(t, generic.NewDate(2024, time.February, 1), p.Start)
	assert.Equal(t, generic.NewDate(2024, time.February, 29), p.End)
	assert.Len(t, p.Days(), 29)
	assert.NoError(t, p.Validate())
	assert.True(t, p.Contains(p.End))
	assert.False(t, p.Contains(p.End.AddDays(1)))
}

func TestParseMonth(t *testing.T) {
	p, err := generic.ParseMonth("2024-04")
	require.NoError(t, err)
	assert.Equal(t, generic.MonthPeriod(2024, time.April), p)

	_, err = generic.ParseMonth("April 2024")
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
	assert.True(t, generic.IsClientError(err))
}

func TestPeriod_WorkingDays(t *testing.T) {
	// GIVEN: April 2024 with a Friday/Saturday weekend (22 study days)
	// WHEN: Two holidays fall on study days and one on a Saturday
	// THEN: Only the two study-day holidays are subtracted

	april := generic.MonthPeriod(2024, time.April)
	assert.Equal(t, 22, april.WorkingDays(generic.DefaultWeekend, nil))

	cal := generic.NewStaticHolidayCalendar(
		generic.Holiday{Date: generic.NewDate(2024, time.April, 23)},
		generic.Holiday{Date: generic.NewDate(2024, time.April, 24)},
		generic.Holiday{Date: generic.NewDate(2024, time.April, 27)},
	)
	assert.Equal(t, 20, april.WorkingDays(generic.DefaultWeekend, cal))

	assert.Equal(t, 21, generic.MonthPeriod(2024, time.March).WorkingDays(generic.DefaultWeekend, nil))
	assert.Equal(t, 30, april.WorkingDays(nil, nil))
}

func TestPeriod_Validate(t *testing.T) {
	bad := generic.Period{Start: generic.NewDate(2024, time.April, 2), End: generic.NewDate(2024, time.April, 1)}
	assert.ErrorIs(t, bad.Validate(), generic.ErrInvalidPeriod)
	assert.ErrorIs(t, generic.Period{}.Validate(), generic.ErrInvalidPeriod)
}

func TestParseWeekdays(t *testing.T) {
	days, err := generic.ParseWeekdays("Friday, sat")
	require.NoError(t, err)
	assert.Equal(t, generic.DefaultWeekend, days)

	days, err = generic.ParseWeekdays("")
	require.NoError(t, err)
	assert.Empty(t, days)

	_, err = generic.ParseWeekdays("shabbos")
	assert.Error(t, err)
}

func TestAmount(t *testing.T) {
	base := generic.NewAmountFromInt(400, generic.UnitShekel)
	rate := generic.NewAmountFromInt(15, generic.UnitShekel)

	reduced := rate.MulInt(17)
	assert.Equal(t, "255.00 ILS", reduced.String())
	assert.True(t, reduced.LessThan(base))
	assert.Equal(t, reduced, base.Min(reduced))
	assert.True(t, rate.Sub(base).ClampZero().IsZero())

	hours := generic.NewAmount(3.5, generic.UnitHours).MulInt(2)
	assert.Equal(t, 7.0, hours.Float64())

	assert.Equal(t, "2.75", generic.MustParseDecimal("2.75").String())
	assert.Panics(t, func() { generic.MustParseDecimal("two hours") })

	raw, err := json.Marshal(struct {
		Total generic.Amount `json:"total"`
	}{base.Add(rate)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total": 415}`, string(raw))
}
