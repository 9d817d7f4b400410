/*
handlers_test.go - HTTP tests for the stipend API

Tests for:
- Inline computation and working-day resolution
- File upload in CSV, rendered as JSON and XLSX
- Event store import followed by a stored computation
- Demo scenarios, policy, holidays and metrics endpoints
*/
package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kollel/stipend-engine/config"
	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/metrics"
	"github.com/kollel/stipend-engine/stipend"
	"github.com/kollel/stipend-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	router  http.Handler
	handler *Handler
	metrics *metrics.Service
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := metrics.New()
	store.WithObserver(m)
	engine, err := stipend.NewEngine(stipend.DefaultPolicy(), stipend.WithRecorder(m))
	require.NoError(t, err)

	cfg := &config.Config{
		MaxUploadBytes: 1 << 20,
		Calendar: config.CalendarConfig{
			Weekend:  generic.DefaultWeekend,
			Holidays: []generic.Holiday{{Date: generic.NewDate(2024, time.April, 24), Name: "Chol Hamoed"}},
		},
	}
	h := NewHandler(engine, store, cfg, nil)
	return &testServer{
		router:  NewRouter(h, RouterOptions{Metrics: m}),
		handler: h,
		metrics: m,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeCompute(t *testing.T, rec *httptest.ResponseRecorder) ComputeResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ComputeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func aprilEvents() []EventDTO {
	return []EventDTO{
		{StudentID: "1", LastName: "Cohen", FirstName: "Moshe", Date: "2024-04-01", Entry: "09:15", Exit: "13:00", Continuous: true},
		{StudentID: "1", LastName: "Cohen", FirstName: "Moshe", Date: "2024-04-02", Entry: "09:15", Exit: "13:00", Continuous: true},
		{StudentID: "2", LastName: "Levi", FirstName: "Dan", Date: "2024-04-01", Entry: "14:05", Exit: "17:00"},
	}
}

// =============================================================================
// COMPUTE
// =============================================================================

func TestHealth(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestCompute_InlineEvents(t *testing.T) {
	// GIVEN: Two students, explicit working days
	// WHEN: Posting the events
	// THEN: One result per student, sorted by ID, with the run's totals

	s := setupTestServer(t)

	resp := decodeCompute(t, s.do(t, http.MethodPost, "/api/stipends/compute", ComputeRequest{
		WorkingDays: 2,
		Events:      aprilEvents(),
	}))

	require.Len(t, resp.Students, 2)
	assert.Equal(t, 2, resp.WorkingDays)
	assert.NotEmpty(t, resp.RunID)
	first := resp.Students[0]
	assert.Equal(t, "1", first.StudentID)
	assert.Equal(t, "Cohen Moshe", first.FullName)
	assert.Equal(t, 2, first.Morning.PerfectDays)
	assert.Equal(t, 440.0, first.GrandTotal)
	assert.Equal(t, first.GrandTotal+resp.Students[1].GrandTotal, resp.GrandTotal)
}

func TestCompute_WorkingDaysFromMonthAndHolidays(t *testing.T) {
	// GIVEN: April 2024 (22 study days), a stored holiday and a configured one
	// WHEN: Computing with month only
	// THEN: Working days = 20

	s := setupTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/holidays", HolidayRequest{Date: "2024-04-23", Name: "Pesach"})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeCompute(t, s.do(t, http.MethodPost, "/api/stipends/compute", ComputeRequest{
		Month:  "2024-04",
		Events: aprilEvents(),
	}))

	assert.Equal(t, 20, resp.WorkingDays)
}

func TestCompute_WorkingDaysInferredFromEvents(t *testing.T) {
	// March 2024 has 21 Sunday-Thursday days and no holidays.
	s := setupTestServer(t)
	events := []EventDTO{{StudentID: "1", Date: "2024-03-04", Entry: "09:00", Exit: "13:00"}}

	resp := decodeCompute(t, s.do(t, http.MethodPost, "/api/stipends/compute", ComputeRequest{Events: events}))

	assert.Equal(t, 21, resp.WorkingDays)
}

func TestCompute_ValidationAndAnomalies(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/stipends/compute", ComputeRequest{
		WorkingDays: 5,
		Events:      []EventDTO{{Date: "2024-04-01", Entry: "09:00"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeCompute(t, s.do(t, http.MethodPost, "/api/stipends/compute", ComputeRequest{
		WorkingDays: 5,
		Events:      []EventDTO{{StudentID: "9", Date: "2024-04-01", Entry: "09:00", Exit: "late"}},
	}))
	require.Len(t, resp.Anomalies, 1)
	assert.Equal(t, "exit", resp.Anomalies[0].Column)
	require.Len(t, resp.Students, 1)
	var codes []stipend.WarningCode
	for _, w := range resp.Students[0].Warnings {
		codes = append(codes, w.Code)
	}
	// The lone morning row has no usable exit, so all five days are absences.
	assert.Equal(t, []stipend.WarningCode{
		stipend.WarnMissingExit,
		stipend.WarnParseAnomaly,
		stipend.WarnBaseReduced,
		stipend.WarnEarlySuppressed,
	}, codes)
}

func TestCompute_HebrewWarningsFromAcceptLanguage(t *testing.T) {
	s := setupTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/scenarios/early-suppressed/run", nil)
	req.Header.Set("Accept-Language", "he-IL,he;q=0.9")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	resp := decodeCompute(t, rec)
	assert.Equal(t, "he", resp.Locale)
	require.NotEmpty(t, resp.Students[0].Warnings)
	assert.Contains(t, resp.Students[0].Warnings[1].Message, "היעדרויות")
}

// =============================================================================
// UPLOAD
// =============================================================================

const uploadCSV = "זהות,שם משפחה,שם פרטי,כניסה,יציאה,רצופות\n" +
	"1,Cohen,Moshe,2024-04-01 09:10,13:00,כן\n" +
	"1,Cohen,Moshe,2024-04-02 09:10,13:00,כן\n"

func TestUpload_CSVAsJSON(t *testing.T) {
	s := setupTestServer(t)

	resp := decodeCompute(t, s.upload(t, "/api/stipends/upload?working_days=2", "april.csv", uploadCSV))

	require.Len(t, resp.Students, 1)
	assert.Equal(t, 2, resp.Students[0].Morning.AttendedDays)
	assert.Equal(t, 440.0, resp.Students[0].GrandTotal)
}

func TestUpload_CSVAsXLSXReport(t *testing.T) {
	// GIVEN: A CSV upload asking for an XLSX report
	// WHEN: Posting the file
	// THEN: The body is a workbook with a summary and one detail sheet

	s := setupTestServer(t)

	rec := s.upload(t, "/api/stipends/upload?working_days=2&format=xlsx&locale=en", "april.csv", uploadCSV)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "1 Cohen Moshe"}, f.GetSheetList())
}

func TestUpload_Errors(t *testing.T) {
	s := setupTestServer(t)

	rec := s.upload(t, "/api/stipends/upload?working_days=2", "april.csv", "id,entry\n1,09:00\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exit")

	rec = s.upload(t, "/api/stipends/upload?working_days=2", "april.txt", uploadCSV)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = s.upload(t, "/api/stipends/upload?working_days=2&format=docx", "april.csv", uploadCSV)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = s.upload(t, "/api/stipends/upload?working_days=-1", "april.csv", uploadCSV)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// EVENT STORE
// =============================================================================

func TestImportThenComputeStored(t *testing.T) {
	// GIVEN: Events imported twice (the second import is a duplicate)
	// WHEN: Computing April from the store
	// THEN: Nothing is double counted

	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/events", ImportRequest{Events: aprilEvents()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/events", ImportRequest{Events: aprilEvents()})
	var imp ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &imp))
	assert.Equal(t, 3, imp.Received)
	assert.Equal(t, 0, imp.Stored)

	resp := decodeCompute(t, s.do(t, http.MethodPost, "/api/stipends/stored", StoredComputeRequest{
		Month:       "2024-04",
		WorkingDays: 2,
	}))
	require.Len(t, resp.Students, 2)
	assert.Equal(t, 2, resp.Students[0].Morning.AttendedDays)
	assert.Equal(t, "Levi Dan", resp.Students[1].FullName)

	rec = s.do(t, http.MethodDelete, "/api/events?month=2024-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeCompute(t, s.do(t, http.MethodPost, "/api/stipends/stored", StoredComputeRequest{
		Month:       "2024-04",
		WorkingDays: 2,
	}))
	assert.Empty(t, resp.Students)
}

func TestImportEvents_MultipartFile(t *testing.T) {
	s := setupTestServer(t)

	rec := s.upload(t, "/api/events", "april.csv", uploadCSV)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"stored":2`)
}

func TestComputeStored_CSVReport(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/events", ImportRequest{Events: aprilEvents()})

	rec := s.do(t, http.MethodPost, "/api/stipends/stored", StoredComputeRequest{
		Month: "2024-04", WorkingDays: 2, Format: "csv", Locale: "en",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 4)
}

// =============================================================================
// SCENARIOS, POLICY, HOLIDAYS, METRICS
// =============================================================================

func TestScenarios_ListAndRun(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/scenarios", nil)
	var list []ScenarioDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 5)

	resp := decodeCompute(t, s.do(t, http.MethodPost, "/api/scenarios/both-tiers/run", nil))
	require.Len(t, resp.Students, 1)
	st := resp.Students[0]
	assert.Equal(t, 190.0, st.Tier1Bonus)
	assert.Equal(t, 200.0, st.Tier2Bonus)
	assert.Equal(t, 2195.0, st.GrandTotal)

	resp = decodeCompute(t, s.do(t, http.MethodPost, "/api/scenarios/missing-exits/run", nil))
	assert.Equal(t, 5, resp.Students[0].Morning.MissingExitDays)
	assert.Equal(t, 255.0, resp.Students[0].Morning.Base)

	rec = s.do(t, http.MethodPost, "/api/scenarios/nope/run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadScenario_ThenComputeStored(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/scenarios/no-afternoon/load", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeCompute(t, s.do(t, http.MethodPost, "/api/stipends/stored", StoredComputeRequest{
		Month: "2024-03", WorkingDays: 20,
	}))
	require.Len(t, resp.Students, 1)
	assert.Equal(t, 20, resp.Students[0].Afternoon.AbsentDays)
}

func TestGetPolicy(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/policy", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var dto PolicyDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	require.NotNil(t, dto.Policy.Morning)
	assert.Equal(t, 400.0, *dto.Policy.Morning.BaseAmount)
	assert.Equal(t, "10:00", *dto.Policy.Morning.LateThreshold)
}

func TestHolidays_CreateAndList(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/holidays", HolidayRequest{Date: "23/04/2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/holidays", HolidayRequest{Date: "2024-04-23", Name: "Pesach"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/holidays?month=2024-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pesach")
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/scenarios/punctual-morning/run", nil)

	rec := s.do(t, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "stipend_batches_total 1")
	assert.Contains(t, body, `http_requests_total{method="POST",path="/api/scenarios/{id}/run",status="200"} 1`)
}
