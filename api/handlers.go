/*
handlers.go - HTTP API handlers for the stipend engine

PURPOSE:
  Exposes the stipend engine via REST API. Handles HTTP request/response,
  JSON serialization, file uploads, and delegates to ingest, stipend and
  report.

ENDPOINTS:
  Stipends:
    POST   /api/stipends/compute       Compute from inline JSON events
    POST   /api/stipends/upload        Compute from an uploaded CSV/XLSX file
    POST   /api/stipends/stored        Compute a month from the event store

  Events:
    POST   /api/events                 Import JSON events or a file into the store
    DELETE /api/events?month=YYYY-MM   Drop a month of stored events

  Calendar:
    GET    /api/holidays?month=        List holidays
    POST   /api/holidays               Add a holiday

  Policy:
    GET    /api/policy                 Effective policy as JSON

  Scenarios:
    GET    /api/scenarios              List demo datasets
    POST   /api/scenarios/{id}/run     Compute a demo dataset

OUTPUT FORMAT:
  Compute endpoints answer JSON by default. ?format=csv|xlsx|pdf (or the
  "format" field) returns the rendered report as an attachment instead.
  ?locale= or Accept-Language picks the language of warnings and labels.

WORKING DAYS:
  An explicit working_days wins. Otherwise the month (given, or the month
  most events fall in) is counted with the configured weekend and the
  holidays from config and the store.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, missing columns, bad working days
  - 413: Upload too large
  - 415: Unsupported file or output format
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo datasets
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kollel/stipend-engine/config"
	"github.com/kollel/stipend-engine/factory"
	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/i18n"
	"github.com/kollel/stipend-engine/ingest"
	"github.com/kollel/stipend-engine/report"
	"github.com/kollel/stipend-engine/stipend"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *stipend.Engine
	Store  ingest.EventStore
	Config *config.Config
	Logger *zap.Logger

	validate *validator.Validate
}

// NewHandler creates a new handler. A nil logger disables logging.
func NewHandler(engine *stipend.Engine, store ingest.EventStore, cfg *config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Engine:   engine,
		Store:    store,
		Config:   cfg,
		Logger:   logger,
		validate: validator.New(),
	}
}

// Health answers liveness probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetPolicy returns the policy the engine runs with.
// GET /api/policy
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PolicyDTO{Policy: factory.ToJSON(h.Engine.Policy())})
}

// =============================================================================
// STIPEND HANDLERS
// =============================================================================

// Compute computes stipends for inline events.
// POST /api/stipends/compute
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if !h.decode(w, r, &req) {
		return
	}

	batch, err := ingest.Normalize(eventsTable(req.Events))
	if err != nil {
		h.writeDomainError(w, "Invalid events", err)
		return
	}
	wd, err := h.workingDays(r.Context(), req.WorkingDays, req.Month, batch.Events)
	if err != nil {
		h.writeDomainError(w, "Cannot determine working days", err)
		return
	}
	batch.WorkingDays = wd

	h.respond(w, r, batch, pick(req.Locale, r), r.URL.Query().Get("format"))
}

// Upload computes stipends from a CSV or XLSX file sent as multipart field
// "file". Query: working_days, month, locale, format.
// POST /api/stipends/upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	table, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	batch, err := ingest.Normalize(table)
	if err != nil {
		h.writeDomainError(w, "Cannot read attendance file", err)
		return
	}

	q := r.URL.Query()
	requested, err := queryInt(q.Get("working_days"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "working_days must be a number", err)
		return
	}
	wd, err := h.workingDays(r.Context(), requested, q.Get("month"), batch.Events)
	if err != nil {
		h.writeDomainError(w, "Cannot determine working days", err)
		return
	}
	batch.WorkingDays = wd

	h.respond(w, r, batch, pick("", r), q.Get("format"))
}

// ComputeStored computes a month from the event store.
// POST /api/stipends/stored
func (h *Handler) ComputeStored(w http.ResponseWriter, r *http.Request) {
	var req StoredComputeRequest
	if !h.decode(w, r, &req) {
		return
	}
	period, err := generic.ParseMonth(req.Month)
	if err != nil {
		h.writeDomainError(w, "Invalid month", err)
		return
	}

	table, err := h.Store.Source(period).ReadTable(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read stored events", err)
		return
	}
	batch, err := ingest.Normalize(table)
	if err != nil {
		h.writeDomainError(w, "Stored events are unreadable", err)
		return
	}
	wd, err := h.workingDays(r.Context(), req.WorkingDays, req.Month, batch.Events)
	if err != nil {
		h.writeDomainError(w, "Cannot determine working days", err)
		return
	}
	batch.WorkingDays = wd

	format := req.Format
	if f := r.URL.Query().Get("format"); f != "" {
		format = f
	}
	h.respond(w, r, batch, pick(req.Locale, r), format)
}

// respond runs the engine and writes JSON or a rendered report.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, batch stipend.Batch, locale, format string) {
	engine := h.Engine.Localized(locale)
	res, err := engine.ComputeBatch(batch)
	if err != nil {
		h.writeDomainError(w, "Computation failed", err)
		return
	}

	if format == "" || format == "json" {
		withDays := r.URL.Query().Get("details") == "true"
		writeJSON(w, http.StatusOK, toComputeResponse(res, locale, withDays))
		return
	}

	f, err := report.FormatFromName(format)
	if err != nil {
		h.writeDomainError(w, "Unsupported output format", err)
		return
	}
	exp, err := report.New(f, report.Options{PDFFont: h.Config.Report.PDFFont, Logger: h.Logger})
	if err != nil {
		h.writeDomainError(w, "Unsupported output format", err)
		return
	}
	rep := report.Build(res, locale)
	body, err := exp.Render(rep)
	if err != nil {
		h.Logger.Error("report rendering failed", zap.String("run_id", res.RunID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to render report", err)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="stipends-%s.%s"`, res.RunID, exp.Extension()))
	w.Header().Set("X-Run-ID", res.RunID)
	if len(rep.Warnings) > 0 {
		w.Header().Set("X-Report-Warnings", strconv.Itoa(len(rep.Warnings)))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// =============================================================================
// EVENT STORE HANDLERS
// =============================================================================

// ImportEvents stores events for later computation. Accepts either a JSON
// ImportRequest or a multipart file upload.
// POST /api/events
func (h *Handler) ImportEvents(w http.ResponseWriter, r *http.Request) {
	var table *ingest.Table
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		t, ok := h.readUpload(w, r)
		if !ok {
			return
		}
		table = t
	} else {
		var req ImportRequest
		if !h.decode(w, r, &req) {
			return
		}
		table = eventsTable(req.Events)
	}

	batch, err := ingest.Normalize(table)
	if err != nil {
		h.writeDomainError(w, "Cannot read events", err)
		return
	}
	stored, err := h.Store.SaveEvents(r.Context(), batch.Events)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store events", err)
		return
	}
	h.Logger.Info("events imported",
		zap.Int("received", len(batch.Events)),
		zap.Int("stored", stored),
		zap.Int("anomalies", len(batch.Anomalies)))

	writeJSON(w, http.StatusCreated, ImportResponse{
		Received:  len(batch.Events),
		Stored:    stored,
		Anomalies: toAnomalyDTOs(batch.Anomalies),
	})
}

// DeleteEvents drops one month of stored events.
// DELETE /api/events?month=YYYY-MM
func (h *Handler) DeleteEvents(w http.ResponseWriter, r *http.Request) {
	period, err := generic.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		h.writeDomainError(w, "Invalid month", err)
		return
	}
	n, err := h.Store.DeleteEvents(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete events", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "deleted": n})
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns the stored holidays of a month (default: this month).
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	period, err := generic.ParseMonth(month)
	if err != nil {
		h.writeDomainError(w, "Invalid month", err)
		return
	}

	holidays, err := h.Store.Holidays(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}
	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, HolidayDTO{Date: hol.Date.String(), Name: hol.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday adds a closed day.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if err := h.Store.SaveHoliday(r.Context(), generic.Holiday{Date: date, Name: req.Name}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "created", "date": date.String()})
}

// =============================================================================
// HELPERS
// =============================================================================

// workingDays resolves W for a run. See the package comment.
func (h *Handler) workingDays(ctx context.Context, requested int, month string, events []stipend.AttendanceEvent) (int, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w: got %d", generic.ErrInvalidWorkingDays, requested)
	case requested > 0:
		return requested, nil
	}
	if h.Config.WorkingDays > 0 {
		return h.Config.WorkingDays, nil
	}

	var period generic.Period
	if month != "" {
		p, err := generic.ParseMonth(month)
		if err != nil {
			return 0, err
		}
		period = p
	} else {
		p, ok := ingest.DominantMonth(events)
		if !ok {
			return 0, fmt.Errorf("%w: no working_days, month or events given", generic.ErrInvalidWorkingDays)
		}
		period = p
	}

	cal, err := ingest.CalendarFor(ctx, h.Store, period)
	if err != nil {
		return 0, err
	}
	for _, hol := range h.Config.Calendar.Holidays {
		if _, ok := cal[hol.Date]; !ok {
			cal[hol.Date] = hol.Name
		}
	}
	return period.WorkingDays(h.Config.Calendar.Weekend, cal), nil
}

// readUpload reads multipart field "file" as a table.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*ingest.Table, bool) {
	limit := h.Config.MaxUploadBytes
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large", err)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Expected a multipart upload", err)
		return nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, `Missing multipart field "file"`, err)
		return nil, false
	}
	defer file.Close()

	format, err := ingest.FormatFromName(header.Filename)
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "Unsupported file type (use .csv or .xlsx)", err)
		return nil, false
	}
	table, err := ingest.Read(file, format)
	if err != nil {
		h.writeDomainError(w, "Cannot read attendance file", err)
		return nil, false
	}
	return table, true
}

// decode reads and validates a JSON body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// pick chooses the response locale: explicit value, then ?locale=, then
// Accept-Language, then the engine default.
func pick(explicit string, r *http.Request) string {
	for _, l := range []string{explicit, r.URL.Query().Get("locale"), r.Header.Get("Accept-Language")} {
		if l != "" {
			return i18n.Normalize(l)
		}
	}
	return i18n.LocaleFromContext(r.Context())
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine and ingest errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, generic.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
