/*
assessment.go - Per-employee assessment pipeline

PURPOSE:
  Runs the five stages for one employee and composes the result:

    start -> fte_classified -> coverage_coded -> [affordability_evaluated]
          -> penalty_assessed -> status_finalized

  Affordability is skipped exactly when the employee is not full-time. Each
  stage is a pure function of the previous results; nothing is retried.

STATUS:
  undetermined FTE          -> pending_review
  not full-time             -> compliant
  full-time + 4980H(a) risk -> non_compliant
  full-time + 4980H(b) risk -> at_risk
  otherwise                 -> compliant

ADVISORY TEXT:
  Issues and recommendations are derived from the results above and never
  feed back into the status.
*/
package aca

import (
	"fmt"
	"time"
)

// lowConfidence is the FTE confidence below which hours tracking is flagged.
const lowConfidence = 80

// AssessEmployee runs the full pipeline for one record. cov is nil when no
// coverage data exists. Invalid input or a panic inside any stage is returned
// as a RecordError naming the stage.
func (e *Engine) AssessEmployee(rec EmployeeRecord, cov *CoverageData, asOf time.Time) (a ComplianceAssessment, err error) {
	stage := StageValidate
	defer func() {
		if r := recover(); r != nil {
			err = RecordError{
				EmployeeID: rec.EmployeeID,
				Stage:      stage,
				Err:        fmt.Errorf("%w: %v", ErrRecordPanic, r),
			}
		}
	}()

	if err := rec.Validate(); err != nil {
		return ComplianceAssessment{}, RecordError{EmployeeID: rec.EmployeeID, Stage: stage, Err: err}
	}
	if cov != nil {
		if err := cov.Validate(); err != nil {
			return ComplianceAssessment{}, RecordError{EmployeeID: rec.EmployeeID, Stage: stage, Err: err}
		}
	}

	stage = StageFTE
	fte := e.ClassifyFTE(rec, asOf)

	stage = StageCoverage
	codes := e.ResolveCodes(fte, cov)

	var aff *AffordabilityCalculation
	if fte.Status == FTEFullTime {
		stage = StageAffordability
		calc := e.EvaluateAffordability(rec, cov)
		aff = &calc
	}

	stage = StagePenalty
	risk := e.AssessPenalty(fte, aff, codes.Line14)

	stage = StageStatus
	status := overallStatus(fte, risk)
	issues, recommendations := advise(fte, aff, risk, cov)

	return ComplianceAssessment{
		EmployeeID:      rec.EmployeeID,
		ClientID:        rec.ClientID,
		TaxYear:         e.constants.TaxYear,
		AssessmentDate:  FormatDate(asOf),
		Status:          status,
		FTE:             fte,
		Affordability:   aff,
		Line14Code:      codes.Line14,
		Line15Code:      codes.Line15,
		Line16Code:      nil,
		PenaltyRisk:     risk,
		Issues:          issues,
		Recommendations: recommendations,
	}, nil
}

func overallStatus(fte FTEDetermination, risk *PenaltyRisk) ComplianceStatus {
	switch {
	case fte.Status == FTEUndetermined:
		return StatusPendingReview
	case fte.Status != FTEFullTime:
		return StatusCompliant
	case risk == nil:
		return StatusCompliant
	case risk.PenaltyType == Penalty4980HA:
		return StatusNonCompliant
	default:
		return StatusAtRisk
	}
}

// advise derives issues and recommendations. Both slices are non-nil so an
// assessment always serializes the same way.
func advise(fte FTEDetermination, aff *AffordabilityCalculation, risk *PenaltyRisk, cov *CoverageData) ([]string, []string) {
	issues := []string{}
	recommendations := []string{}

	if fte.Status == FTEUndetermined {
		issues = append(issues, "FTE status cannot be determined - insufficient hours data")
		recommendations = append(recommendations, "Collect 3-12 months of hours data for look-back measurement")
	}

	if fte.Confidence < lowConfidence {
		issues = append(issues, fmt.Sprintf("Low confidence (%d%%) in FTE determination", fte.Confidence))
		recommendations = append(recommendations, "Review hours tracking process for accuracy")
	}

	if fte.Status == FTEFullTime && cov == nil {
		issues = append(issues, "No coverage data supplied - Line 14 defaulted to 1A")
		recommendations = append(recommendations, "Supply offer and enrollment data to confirm the Line 14 code")
	}

	if aff != nil && aff.SafeHarborUsed == SafeHarborUnknown {
		issues = append(issues, "No compensation data - coverage assumed affordable")
		recommendations = append(recommendations, "Provide hourly rate or annual salary to apply a safe harbor")
	}

	if aff != nil && !aff.IsAffordable {
		issues = append(issues, "Coverage fails affordability test")
		recommendations = append(recommendations, "Consider offering lower-cost plan tier")
	}

	if risk != nil {
		issues = append(issues, risk.Reason)
		recommendations = append(recommendations, risk.MitigationOptions...)
	}

	if fte.Status == FTEFullTime && fte.IsNewHire {
		recommendations = append(recommendations,
			fmt.Sprintf("Confirm whether a limited non-assessment period (code %s) applies to this new hire", Code2D))
	}

	return issues, recommendations
}
