package stipend

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kollel/stipend-engine/generic"
	"go.uber.org/zap"
)

// =============================================================================
// ENGINE - Batch driver
// =============================================================================

// Recorder receives computation metrics. See the metrics package.
type Recorder interface {
	ObserveStudent(r StudentResult)
	ObserveBatch(students, anomalies int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStudent(StudentResult)         {}
func (nopRecorder) ObserveBatch(int, int, time.Duration) {}

// Engine computes stipends under one immutable policy. It holds no state
// between calls and is safe for concurrent use.
type Engine struct {
	policy  Policy
	logger  *zap.Logger
	locale  string
	metrics Recorder
}

type Option func(*Engine)

// WithLogger sets the logger used for anomalies and batch summaries.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLocale sets the language of warning messages ("en" or "he").
func WithLocale(locale string) Option {
	return func(e *Engine) {
		if locale != "" {
			e.locale = locale
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// NewEngine validates the policy and returns an engine.
func NewEngine(policy Policy, opts ...Option) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		policy:  policy,
		logger:  zap.NewNop(),
		locale:  "en",
		metrics: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy { return e.policy }

// Locale returns the language warnings are rendered in.
func (e *Engine) Locale() string { return e.locale }

// Localized returns a copy of the engine that renders warnings in locale.
// An empty locale returns e itself.
func (e *Engine) Localized(locale string) *Engine {
	if locale == "" || locale == e.locale {
		return e
	}
	c := *e
	c.locale = locale
	return &c
}

// BatchResult is the outcome of one batch run.
type BatchResult struct {
	RunID       string          `json:"run_id"`
	WorkingDays int             `json:"working_days"`
	Results     []StudentResult `json:"results"`
	Anomalies   []ParseAnomaly  `json:"anomalies,omitempty"`
}

// Compute groups events by student and returns one result per student,
// sorted by student ID. Deterministic for identical inputs.
func (e *Engine) Compute(events []AttendanceEvent, workingDays int) ([]StudentResult, error) {
	res, err := e.ComputeBatch(Batch{Events: events, WorkingDays: workingDays})
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// ComputeBatch is Compute plus parse anomalies collected during ingestion.
// Students that only appear through anomalies still get a (zero) result.
func (e *Engine) ComputeBatch(b Batch) (*BatchResult, error) {
	if b.WorkingDays <= 0 {
		return nil, fmt.Errorf("%w: got %d", generic.ErrInvalidWorkingDays, b.WorkingDays)
	}
	started := time.Now()
	runID := uuid.NewString()
	log := e.logger.With(zap.String("run_id", runID))

	inputs := make(map[generic.StudentID]*StudentInput)
	get := func(id generic.StudentID, last, first string) *StudentInput {
		in, ok := inputs[id]
		if !ok {
			in = &StudentInput{StudentID: id}
			inputs[id] = in
		}
		if in.LastName == "" {
			in.LastName = last
		}
		if in.FirstName == "" {
			in.FirstName = first
		}
		return in
	}

	for _, ev := range b.Events {
		in := get(ev.StudentID, ev.LastName, ev.FirstName)
		session := ev.Session
		if session == "" {
			session = SessionForEntry(ev.Entry)
		}
		if session == Morning {
			in.Morning = append(in.Morning, ev)
		} else {
			in.Afternoon = append(in.Afternoon, ev)
		}
	}
	for _, a := range b.Anomalies {
		in := get(a.StudentID, a.LastName, a.FirstName)
		in.Anomalies++
		log.Warn("unreadable time value",
			zap.String("student_id", string(a.StudentID)),
			zap.Int("row", a.Row),
			zap.String("column", a.Column),
			zap.String("raw", a.Raw),
			zap.String("reason", a.Reason))
	}

	ids := make([]generic.StudentID, 0, len(inputs))
	for id := range inputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	results := make([]StudentResult, 0, len(ids))
	for _, id := range ids {
		r := e.ComputeStudent(*inputs[id], b.WorkingDays)
		e.metrics.ObserveStudent(r)
		if len(r.Warnings) > 0 {
			log.Debug("student has warnings",
				zap.String("student_id", string(id)),
				zap.Int("warnings", len(r.Warnings)))
		}
		results = append(results, r)
	}

	elapsed := time.Since(started)
	e.metrics.ObserveBatch(len(results), len(b.Anomalies), elapsed)
	log.Info("stipend batch computed",
		zap.Int("students", len(results)),
		zap.Int("events", len(b.Events)),
		zap.Int("anomalies", len(b.Anomalies)),
		zap.Int("working_days", b.WorkingDays),
		zap.Duration("duration", elapsed))

	return &BatchResult{
		RunID:       runID,
		WorkingDays: b.WorkingDays,
		Results:     results,
		Anomalies:   b.Anomalies,
	}, nil
}
