/*
errors.go - Error types for the determination engine

ERROR CATEGORIES:
  1. Missing data - never an error; resolved to conservative defaults
  2. Malformed input - dates degrade flags; other fields reject the record
  3. Per-record failure - RecordError, collected by the batch runner
  4. Table errors - rejected tax-year constants

USAGE:
  for _, rerr := range result.Errors {
      if errors.Is(rerr, aca.ErrMissingEmployeeID) { ... }
  }

SEE ALSO:
  - batch.go: Converts failures into RecordError entries
  - tables.go: Uses TableError
*/
package aca

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownTaxYear is returned when no constant table exists for a year.
	ErrUnknownTaxYear = errors.New("unknown tax year")

	// ErrInvalidTaxYear is returned when a constant table fails validation.
	ErrInvalidTaxYear = errors.New("invalid tax year table")

	// ErrMissingEmployeeID is returned for records without identity.
	ErrMissingEmployeeID = errors.New("missing employee id")

	// ErrInvalidHours is returned for out-of-range months or negative hours.
	ErrInvalidHours = errors.New("invalid monthly hours")

	// ErrInvalidCompensation is returned for negative salary or rate.
	ErrInvalidCompensation = errors.New("invalid compensation")

	// ErrInvalidCoverage is returned for impossible coverage snapshots.
	ErrInvalidCoverage = errors.New("invalid coverage data")

	// ErrMissingAsOf is returned when a batch has no explicit as-of date.
	ErrMissingAsOf = errors.New("batch as-of date is required")

	// ErrRecordPanic wraps a panic recovered inside one employee's pipeline.
	ErrRecordPanic = errors.New("record processing panicked")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// Stage names the pipeline step a record failed in.
type Stage string

const (
	StageValidate      Stage = "validate"
	StageFTE           Stage = "fte_classified"
	StageCoverage      Stage = "coverage_coded"
	StageAffordability Stage = "affordability_evaluated"
	StagePenalty       Stage = "penalty_assessed"
	StageStatus        Stage = "status_finalized"
)

// RecordError is the per-record error entry of a batch run.
type RecordError struct {
	Index      int // position in the input batch
	EmployeeID string
	Stage      Stage
	Err        error
}

func (e RecordError) Error() string {
	id := e.EmployeeID
	if id == "" {
		id = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("employee %s: %s: %v", id, e.Stage, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// TableError explains why a tax-year table was rejected.
type TableError struct {
	TaxYear int
	Field   string
	Reason  string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("tax year %d: %s: %s", e.TaxYear, e.Field, e.Reason)
}

func (e *TableError) Unwrap() error {
	return ErrInvalidTaxYear
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsInputError returns true if the error is due to malformed record input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingEmployeeID) ||
		errors.Is(err, ErrInvalidHours) ||
		errors.Is(err, ErrInvalidCompensation) ||
		errors.Is(err, ErrInvalidCoverage)
}
