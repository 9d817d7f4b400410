package stipend

import (
	"github.com/kollel/stipend-engine/i18n"
)

// WarningCode identifies the kind of a warning independently of its text.
type WarningCode string

const (
	WarnMissingExit     WarningCode = "missing_exit"
	WarnParseAnomaly    WarningCode = "parse_anomaly"
	WarnBaseReduced     WarningCode = "base_reduced"
	WarnEarlySuppressed WarningCode = "early_suppressed"
)

// Warning explains a part of the result. Warnings never change amounts.
type Warning struct {
	Code    WarningCode    `json:"code"`
	Session Session        `json:"session,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Message string         `json:"message"`
}

// buildWarnings assembles a student's warnings in display order: missing
// exits, unreadable values, base reductions per session, then the
// early-arrival suppression.
func buildWarnings(locale string, morning, afternoon SessionStats, anomalies int, limit int) []Warning {
	var out []Warning

	if missing := morning.MissingExitDays + afternoon.MissingExitDays; missing > 0 {
		params := map[string]any{"Count": missing}
		out = append(out, Warning{
			Code:    WarnMissingExit,
			Params:  params,
			Message: i18n.Tr(locale, "warning.missing_exit", params),
		})
	}

	if anomalies > 0 {
		params := map[string]any{"Count": anomalies}
		out = append(out, Warning{
			Code:    WarnParseAnomaly,
			Params:  params,
			Message: i18n.Tr(locale, "warning.parse_anomaly", params),
		})
	}

	for _, s := range []SessionStats{morning, afternoon} {
		if !s.BaseReduced {
			continue
		}
		lateOver := s.LateDays > limit
		absentOver := s.AbsentDays > limit
		id := "warning.base_reduced_both"
		switch {
		case lateOver && !absentOver:
			id = "warning.base_reduced_late"
		case absentOver && !lateOver:
			id = "warning.base_reduced_absent"
		}
		params := map[string]any{
			"Session": i18n.Tr(locale, "session."+string(s.Session)),
			"Late":    s.LateDays,
			"Absent":  s.AbsentDays,
			"Limit":   limit,
		}
		out = append(out, Warning{
			Code:    WarnBaseReduced,
			Session: s.Session,
			Params:  params,
			Message: i18n.Tr(locale, id, params),
		})
	}

	if morning.EarlySuppressed {
		params := map[string]any{"Absent": morning.AbsentDays, "Limit": limit}
		out = append(out, Warning{
			Code:    WarnEarlySuppressed,
			Session: Morning,
			Params:  params,
			Message: i18n.Tr(locale, "warning.early_suppressed", params),
		})
	}
	return out
}
