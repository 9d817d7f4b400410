// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kollel/stipend-engine/generic"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env    string
	Port   int
	Locale string

	// WorkingDays overrides the calendar count when positive.
	WorkingDays    int
	PolicyFile     string
	MaxUploadBytes int64

	Database DatabaseConfig
	Report   ReportConfig
	Log      LogConfig
	CORS     CORSConfig
	Calendar CalendarConfig
}

type DatabaseConfig struct {
	Path string
}

type ReportConfig struct {
	// PDFFont is a UTF-8 TrueType font for PDF output; Hebrew needs one.
	PDFFont string
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// CalendarConfig decides which days of a month are study days.
type CalendarConfig struct {
	Weekend  []time.Weekday
	Holidays []generic.Holiday
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{
		Env:            v.GetString("ENV"),
		Port:           v.GetInt("HTTP_PORT"),
		Locale:         v.GetString("LOCALE"),
		WorkingDays:    v.GetInt("WORKING_DAYS"),
		PolicyFile:     v.GetString("POLICY_FILE"),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		Database:       DatabaseConfig{Path: v.GetString("DB_PATH")},
		Report:         ReportConfig{PDFFont: v.GetString("PDF_FONT")},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		CORS: CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))},
	}

	weekend, err := generic.ParseWeekdays(v.GetString("WEEKEND_DAYS"))
	if err != nil {
		return nil, fmt.Errorf("WEEKEND_DAYS: %w", err)
	}
	holidays, err := ParseHolidays(v.GetString("HOLIDAYS"))
	if err != nil {
		return nil, fmt.Errorf("HOLIDAYS: %w", err)
	}
	cfg.Calendar = CalendarConfig{Weekend: weekend, Holidays: holidays}

	if cfg.WorkingDays < 0 {
		return nil, fmt.Errorf("WORKING_DAYS: %w", generic.ErrInvalidWorkingDays)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("LOCALE", "he")
	v.SetDefault("WORKING_DAYS", 0)
	v.SetDefault("POLICY_FILE", "")
	v.SetDefault("MAX_UPLOAD_BYTES", 10*1024*1024)

	v.SetDefault("DB_PATH", "stipend.db")
	v.SetDefault("PDF_FONT", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("ALLOWED_ORIGINS", "*")

	v.SetDefault("WEEKEND_DAYS", "friday,saturday")
	v.SetDefault("HOLIDAYS", "")
}

// HolidayCalendar returns the configured holidays as a calendar.
func (c *Config) HolidayCalendar() generic.HolidayCalendar {
	if len(c.Calendar.Holidays) == 0 {
		return generic.DefaultHolidayCalendar{}
	}
	return generic.NewStaticHolidayCalendar(c.Calendar.Holidays...)
}

// WorkingDaysFor returns the configured override, or the number of study
// days in the period.
func (c *Config) WorkingDaysFor(p generic.Period) int {
	if c.WorkingDays > 0 {
		return c.WorkingDays
	}
	return p.WorkingDays(c.Calendar.Weekend, c.HolidayCalendar())
}

// ParseHolidays parses "2024-04-23=Pesach,2024-04-24" style lists. Names are
// optional.
func ParseHolidays(raw string) ([]generic.Holiday, error) {
	var out []generic.Holiday
	for _, part := range splitAndTrim(raw) {
		dateStr, name, _ := strings.Cut(part, "=")
		d, err := generic.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", part, err)
		}
		out = append(out, generic.Holiday{Date: d, Name: strings.TrimSpace(name)})
	}
	return out, nil
}

// With an explicit config file viper reports a missing .env as a plain
// path error rather than ConfigFileNotFoundError.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
