package config_test

import (
	"testing"
	"time"

	"github.com/kollel/stipend-engine/config"
	"github.com/kollel/stipend-engine/generic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []time.Weekday{time.Friday, time.Saturday}, cfg.Calendar.Weekend)
	assert.Empty(t, cfg.Calendar.Holidays)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOCALE", "en")
	t.Setenv("WEEKEND_DAYS", "sat")
	t.Setenv("HOLIDAYS", "2024-04-23=Pesach, 2024-04-24")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, []time.Weekday{time.Saturday}, cfg.Calendar.Weekend)
	require.Len(t, cfg.Calendar.Holidays, 2)
	assert.Equal(t, "Pesach", cfg.Calendar.Holidays[0].Name)
	assert.Equal(t, generic.NewDate(2024, time.April, 24), cfg.Calendar.Holidays[1].Date)
}

func TestLoad_RejectsBadHoliday(t *testing.T) {
	t.Setenv("HOLIDAYS", "23/04/2024")

	_, err := config.Load()

	assert.Error(t, err)
}

func TestWorkingDaysFor(t *testing.T) {
	// GIVEN: April 2024 with Friday/Saturday weekend and two holidays
	// WHEN: No override is configured
	// THEN: 30 days - 8 weekend days - 2 holidays = 20

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Calendar.Holidays, err = config.ParseHolidays("2024-04-23,2024-04-24")
	require.NoError(t, err)

	period := generic.MonthPeriod(2024, time.April)
	assert.Equal(t, 20, cfg.WorkingDaysFor(period))

	cfg.WorkingDays = 18
	assert.Equal(t, 18, cfg.WorkingDaysFor(period))
}
