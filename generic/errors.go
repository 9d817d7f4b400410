/*
errors.go - Centralized error types for the stipend engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Anomalies - Recoverable bad values (a time that cannot be parsed).
     These never abort a batch; they degrade to a sentinel and end up as
     a warning on the affected student.
  2. Input errors - The input as a whole is unusable (missing column,
     non-positive working days). Fatal for the whole batch.
  3. Policy errors - A configured policy is inconsistent.

USAGE:
  if errors.Is(err, generic.ErrMissingColumn) {
      var mc *generic.MissingColumnError
      errors.As(err, &mc)
      log.Printf("input lacks column %s", mc.Column)
  }

SEE ALSO:
  - time.go: Produces anomalies
  - ingest/normalize.go: Produces MissingColumnError
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingValue is returned when a time cell is blank. The value degrades
	// to MissingTime; a blank exit is an expected condition, not an anomaly.
	ErrMissingValue = errors.New("missing value")

	// ErrParseAnomaly is returned when a present value cannot be understood.
	ErrParseAnomaly = errors.New("unparsable value")

	// ErrMissingColumn is returned when the input table lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidWorkingDays is returned when the working-day count is not positive.
	ErrInvalidWorkingDays = errors.New("working days must be positive")

	// ErrInvalidPolicy is returned when a policy fails validation.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrUnsupportedFormat is returned for input or output formats we cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ParseAnomalyError describes a value that could not be normalized.
type ParseAnomalyError struct {
	Raw    any
	Reason string
}

func (e *ParseAnomalyError) Error() string {
	return fmt.Sprintf("cannot parse %v: %s", e.Raw, e.Reason)
}

func (e *ParseAnomalyError) Unwrap() error { return ErrParseAnomaly }

// MissingColumnError names the required column that was not found.
type MissingColumnError struct {
	Column   string
	Accepted []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q (accepted headers: %s)",
		e.Column, strings.Join(e.Accepted, ", "))
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// PolicyError reports which policy field is inconsistent.
type PolicyError struct {
	Field  string
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("invalid policy: %s: %s", e.Field, e.Reason)
}

func (e *PolicyError) Unwrap() error { return ErrInvalidPolicy }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsAnomaly returns true if the error is a recoverable value problem.
func IsAnomaly(err error) bool {
	return errors.Is(err, ErrParseAnomaly)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrInvalidWorkingDays) ||
		errors.Is(err, ErrInvalidPolicy) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrUnsupportedFormat)
}
