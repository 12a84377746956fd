/*
batch.go - Batch assessment runner

PURPOSE:
  Assesses a collection of employees and reduces the assessments into a
  ComplianceResult: status counts, aggregate penalty exposure, a penalty
  breakdown and an ALE estimate.

EXECUTION:
  Records are processed in chunks of chunkSize. Within a chunk an errgroup
  with SetLimit(workers) maps records in parallel; every worker writes only
  its own slot, indexed by input position. The reduce walks the slots in
  input order, so the output is identical regardless of scheduling.

FAILURES:
  A record that fails validation or panics becomes a RecordError and is left
  out of Assessments. The batch never aborts because of one record. The only
  batch-level errors are a missing as-of date and context cancellation
  (checked between chunks).

SEE ALSO:
  - assessment.go: Per-employee pipeline
  - metrics/metrics.go: Recorder implementation
*/
package aca

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Risk level boundaries for aggregate exposure.
var (
	riskLowLimit    = decimal.NewFromInt(50000)
	riskMediumLimit = decimal.NewFromInt(250000)
)

// slot is one record's outcome.
type slot struct {
	assessment ComplianceAssessment
	err        *RecordError
}

// AssessBatch assesses every record in input order.
func (e *Engine) AssessBatch(ctx context.Context, in BatchInput) (ComplianceResult, error) {
	if in.AsOf.IsZero() {
		return ComplianceResult{}, ErrMissingAsOf
	}
	started := time.Now()
	total := len(in.Employees)

	e.logger.Info().
		Int("tax_year", e.constants.TaxYear).
		Str("client_id", in.ClientID).
		Int("records", total).
		Str("as_of", FormatDate(in.AsOf)).
		Msg("assessment batch started")

	slots := make([]slot, total)
	for lo := 0; lo < total; lo += e.chunkSize {
		if err := ctx.Err(); err != nil {
			return ComplianceResult{}, err
		}
		hi := min(lo+e.chunkSize, total)

		var g errgroup.Group
		g.SetLimit(e.workers)
		for i := lo; i < hi; i++ {
			i := i
			g.Go(func() error {
				slots[i] = e.assessSlot(i, in)
				return nil
			})
		}
		_ = g.Wait()

		if e.progress != nil {
			e.progress(hi, total)
		}
	}

	result := e.reduce(in, slots)

	e.recorder.RecordBatch(e.constants.TaxYear, total, result.AggregatePenaltyExposure, time.Since(started))
	e.logger.Info().
		Int("tax_year", result.TaxYear).
		Str("client_id", result.ClientID).
		Int("assessed", result.TotalAssessed).
		Int("failed", len(result.Errors)).
		Int("compliant", result.Compliant).
		Int("at_risk", result.AtRisk).
		Int("non_compliant", result.NonCompliant).
		Int("pending_review", result.PendingReview).
		Str("exposure", result.AggregatePenaltyExposure.StringFixed(2)).
		Msg("assessment batch finished")

	return result, nil
}

func (e *Engine) assessSlot(i int, in BatchInput) slot {
	rec := in.Employees[i]
	if rec.ClientID == "" {
		rec.ClientID = in.ClientID
	}

	var cov *CoverageData
	if c, ok := in.Coverage[rec.EmployeeID]; ok {
		cov = &c
	}

	a, err := e.AssessEmployee(rec, cov, in.AsOf)
	if err != nil {
		var rerr RecordError
		if !errors.As(err, &rerr) {
			rerr = RecordError{EmployeeID: rec.EmployeeID, Stage: StageValidate, Err: err}
		}
		rerr.Index = i
		e.recorder.RecordFailure(e.constants.TaxYear, rerr.Stage)
		e.logger.Warn().
			Int("index", i).
			Str("employee_id", rec.EmployeeID).
			Str("stage", string(rerr.Stage)).
			Err(rerr.Err).
			Msg("employee assessment failed")
		return slot{err: &rerr}
	}

	e.recorder.RecordAssessment(e.constants.TaxYear, a.Status)
	return slot{assessment: a}
}

// reduce folds slots in input order.
func (e *Engine) reduce(in BatchInput, slots []slot) ComplianceResult {
	result := ComplianceResult{
		ClientID:                 in.ClientID,
		TaxYear:                  e.constants.TaxYear,
		AsOf:                     FormatDate(in.AsOf),
		TotalRecords:             len(slots),
		Assessments:              make([]ComplianceAssessment, 0, len(slots)),
		AggregatePenaltyExposure: decimal.Zero,
		Penalties: PenaltyBreakdown{
			Penalty4980HA: decimal.Zero,
			Penalty4980HB: decimal.Zero,
		},
		Errors: []RecordError{},
	}

	for _, s := range slots {
		if s.err != nil {
			result.Errors = append(result.Errors, *s.err)
			continue
		}
		a := s.assessment
		result.Assessments = append(result.Assessments, a)

		switch a.Status {
		case StatusCompliant:
			result.Compliant++
		case StatusAtRisk:
			result.AtRisk++
		case StatusNonCompliant:
			result.NonCompliant++
		case StatusPendingReview:
			result.PendingReview++
		}

		if a.PenaltyRisk != nil {
			amount := a.PenaltyRisk.PotentialPenaltyAmount
			result.AggregatePenaltyExposure = result.AggregatePenaltyExposure.Add(amount)
			switch a.PenaltyRisk.PenaltyType {
			case Penalty4980HA:
				result.Penalties.Penalty4980HA = result.Penalties.Penalty4980HA.Add(amount)
				result.Penalties.AffectedEmployeesA++
			case Penalty4980HB:
				result.Penalties.Penalty4980HB = result.Penalties.Penalty4980HB.Add(amount)
				result.Penalties.AffectedEmployeesB++
			}
		}
	}

	result.TotalAssessed = len(result.Assessments)
	result.Penalties.RiskLevel = riskLevel(result.AggregatePenaltyExposure)
	result.ALE = e.summarizeALE(result.Assessments)
	return result
}

func riskLevel(exposure decimal.Decimal) RiskLevel {
	switch {
	case !exposure.IsPositive():
		return RiskNone
	case exposure.LessThan(riskLowLimit):
		return RiskLow
	case exposure.LessThan(riskMediumLimit):
		return RiskMedium
	default:
		return RiskHigh
	}
}

// summarizeALE counts full-time employees plus full-time equivalents. Each
// non-full-time employee contributes min(average hours, divisor) hours; the
// hours total divided by the divisor, rounded down, is the equivalent count.
func (e *Engine) summarizeALE(assessments []ComplianceAssessment) ALESummary {
	divisor := e.constants.FTEHoursDivisor
	s := ALESummary{Threshold: e.constants.ALEThreshold}
	hours := decimal.Zero
	for _, a := range assessments {
		if a.FTE.Status == FTEFullTime {
			s.FullTimeEmployees++
			continue
		}
		hours = hours.Add(decimal.Min(a.FTE.AverageMonthlyHours, divisor))
	}
	s.FullTimeEquivalents = int(hours.Div(divisor).Floor().IntPart())
	s.Total = s.FullTimeEmployees + s.FullTimeEquivalents
	s.IsALE = s.Total >= s.Threshold
	return s
}
