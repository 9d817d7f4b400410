/*
scenarios.go - Demo datasets for testing and demonstrations

PURPOSE:

	Provides pre-built attendance months that exercise specific rules:
	punctual perfect days, missing exit times, a student who skips the
	afternoon, both monthly tiers, and early-arrival suppression.

AVAILABLE SCENARIOS:

	punctual-morning:  22 perfect mornings, no afternoon
	missing-exits:     5 of 22 mornings without an exit time
	no-afternoon:      20 mornings, afternoon never attended
	both-tiers:        Both sessions, small misses, every arrival before 09:00
	early-suppressed:  3 missed mornings cancel the early-arrival bonus

HOW SCENARIOS WORK:
 1. Lay out N study days (Sunday-Thursday) starting 2024-03-03
 2. Generate events for one student
 3. Run: compute directly. Load: store the events for /api/stipends/stored

USAGE VIA API:

	GET  /api/scenarios
	POST /api/scenarios/both-tiers/run?format=xlsx
	POST /api/scenarios/both-tiers/load

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' with ID, name, description, working days
 2. Write its events builder

SEE ALSO:
  - handlers.go: respond, shared with the compute endpoints
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/stipend"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	events func(days []generic.Date) []stipend.AttendanceEvent
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "punctual-morning",
			Name:        "Punctual Morning",
			Description: "Arrives 09:15, leaves 13:00, continuous, every morning",
			WorkingDays: 22,
		},
		events: func(days []generic.Date) []stipend.AttendanceEvent {
			return everyDay(days, "09:15", "13:00")
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "missing-exits",
			Name:        "Missing Exit Times",
			Description: "Five mornings have no exit time; they count as absences and reduce the base",
			WorkingDays: 22,
		},
		events: func(days []generic.Date) []stipend.AttendanceEvent {
			var out []stipend.AttendanceEvent
			for i, d := range days {
				exit := "13:00"
				if i%4 == 0 && i < 20 {
					exit = "00:00"
				}
				out = append(out, demoEvent(d, "09:15", exit))
			}
			return out
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "no-afternoon",
			Name:        "No Afternoon",
			Description: "Mornings only; the afternoon is all absent without a warning",
			WorkingDays: 20,
		},
		events: func(days []generic.Date) []stipend.AttendanceEvent {
			return everyDay(days, "09:15", "13:00")
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "both-tiers",
			Name:        "Both Tiers",
			Description: "Both sessions with 2h and 1h missed; tier 1, tier 2, perfect attendance and early arrival all paid",
			WorkingDays: 20,
		},
		events: func(days []generic.Date) []stipend.AttendanceEvent {
			var out []stipend.AttendanceEvent
			for i, d := range days {
				morningExit, afternoonExit := "13:00", "17:00"
				if i < 2 {
					morningExit = "12:00"
				}
				if i == 0 {
					afternoonExit = "16:00"
				}
				out = append(out, demoEvent(d, "08:50", morningExit), demoEvent(d, "14:00", afternoonExit))
			}
			return out
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "early-suppressed",
			Name:        "Early Arrival Suppressed",
			Description: "17 of 20 mornings before 09:00 and every afternoon; 3 absences withhold the early bonus",
			WorkingDays: 20,
		},
		events: func(days []generic.Date) []stipend.AttendanceEvent {
			out := everyDay(days[:17], "08:45", "13:00")
			return append(out, everyDay(days, "14:00", "17:00")...)
		},
	},
}

var scenarioStart = generic.NewDate(2024, time.March, 3)

// studyDays lays out n Sunday-Thursday dates from scenarioStart.
func studyDays(n int) []generic.Date {
	var out []generic.Date
	for d := scenarioStart; len(out) < n; d = d.AddDays(1) {
		if wd := d.Weekday(); wd == time.Friday || wd == time.Saturday {
			continue
		}
		out = append(out, d)
	}
	return out
}

func demoEvent(d generic.Date, entry, exit string) stipend.AttendanceEvent {
	in := generic.MustParseTimeOfDay(entry)
	return stipend.AttendanceEvent{
		StudentID:  "000000018",
		LastName:   "Cohen",
		FirstName:  "Moshe",
		Date:       d,
		Entry:      in,
		Exit:       generic.MustParseTimeOfDay(exit),
		Session:    stipend.SessionForEntry(in),
		Continuous: true,
	}
}

func everyDay(days []generic.Date, entry, exit string) []stipend.AttendanceEvent {
	out := make([]stipend.AttendanceEvent, 0, len(days))
	for _, d := range days {
		out = append(out, demoEvent(d, entry, exit))
	}
	return out
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RunScenario computes a scenario. Accepts ?format= and ?locale= like the
// compute endpoints.
// POST /api/scenarios/{id}/run
func (h *Handler) RunScenario(w http.ResponseWriter, r *http.Request) {
	s, ok := findScenario(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}
	batch := stipend.Batch{
		Events:      s.events(studyDays(s.WorkingDays)),
		WorkingDays: s.WorkingDays,
	}
	h.respond(w, r, batch, pick("", r), r.URL.Query().Get("format"))
}

// LoadScenario stores a scenario's events so it can be computed through
// /api/stipends/stored (month 2024-03 or 2024-04).
// POST /api/scenarios/{id}/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	s, ok := findScenario(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}
	events := s.events(studyDays(s.WorkingDays))
	stored, err := h.Store.SaveEvents(r.Context(), events)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	h.Logger.Info("scenario loaded", zap.String("scenario", s.ID), zap.Int("stored", stored))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": s.ScenarioDTO,
		"stored":   stored,
	})
}
