/*
Package aca provides the ACA compliance determination engine.

PURPOSE:
  Turns a canonical employee record (plus optional coverage/enrollment data)
  into a full-time-equivalence classification, IRS Form 1095-C Line 14/15
  codes, an affordability verdict and a penalty-risk estimate, then reduces a
  batch of those assessments into a compliance report.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeRecord: Canonical input handed over by the normalizer
  - CoverageData: Optional offer/enrollment facts for one employee
  - FTEDetermination: Full-time status plus method and confidence
  - AffordabilityCalculation: Safe-harbor affordability test result
  - PenaltyRisk: 4980H(a) or 4980H(b) exposure for one employee
  - ComplianceAssessment / ComplianceResult: Per-employee and batch roots

DESIGN PRINCIPLES:
  1. Immutability: Every result is a value, built once per run
  2. Precision: Hours, money and ratios use decimal.Decimal
  3. Determinism: The only clock is the explicit as-of date
  4. Explicit optionals: A missing result is nil, never a zero value

PIPELINE:
  record -> ClassifyFTE -> ResolveCodes -> [EvaluateAffordability] -> AssessPenalty -> status

SEE ALSO:
  - tables.go: Tax-year constants and IRS code tables
  - assessment.go: Per-employee pipeline
  - batch.go: Parallel batch runner
*/
package aca

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT - Canonical employee record and coverage facts
// =============================================================================

// EmployeeRecord is the canonical employee shape produced by the normalizer.
// Optional fields are pointers or empty slices; the engine never probes
// untyped maps.
type EmployeeRecord struct {
	EmployeeID      string
	ClientID        string
	FirstName       string
	LastName        string
	HireDate        string // YYYY-MM-DD, tolerated when malformed
	TerminationDate string // YYYY-MM-DD, optional
	EmploymentType  string // free-form classification, e.g. "full_time", "PT"
	HoursWorked     []MonthlyHours
	AnnualSalary    *decimal.Decimal
	HourlyRate      *decimal.Decimal
}

// MonthlyHours is one look-back observation.
type MonthlyHours struct {
	Year   int
	Month  time.Month
	Hours  decimal.Decimal
	Source string // "payroll", "timeclock", ...
}

// CoverageData is the per-employee offer/enrollment snapshot.
type CoverageData struct {
	OfferMade              bool
	Enrolled               bool
	CoversDependents       bool
	CoversSpouse           bool
	EmployeeMonthlyPremium decimal.Decimal
}

// Validate checks the record at the ingestion boundary. Malformed dates are
// not validation failures; they degrade the new-hire flag instead.
func (r EmployeeRecord) Validate() error {
	if r.EmployeeID == "" {
		return ErrMissingEmployeeID
	}
	for _, h := range r.HoursWorked {
		if h.Month < time.January || h.Month > time.December {
			return fmt.Errorf("%w: month %d in %d", ErrInvalidHours, h.Month, h.Year)
		}
		if h.Hours.IsNegative() {
			return fmt.Errorf("%w: negative hours for %d-%02d", ErrInvalidHours, h.Year, h.Month)
		}
	}
	if r.AnnualSalary != nil && r.AnnualSalary.IsNegative() {
		return fmt.Errorf("%w: negative annual salary", ErrInvalidCompensation)
	}
	if r.HourlyRate != nil && r.HourlyRate.IsNegative() {
		return fmt.Errorf("%w: negative hourly rate", ErrInvalidCompensation)
	}
	return nil
}

// Validate rejects coverage snapshots that cannot be real.
func (c CoverageData) Validate() error {
	if c.EmployeeMonthlyPremium.IsNegative() {
		return fmt.Errorf("%w: negative employee premium", ErrInvalidCoverage)
	}
	return nil
}

// =============================================================================
// FTE DETERMINATION
// =============================================================================

type FTEStatus string

const (
	FTEFullTime     FTEStatus = "full_time"
	FTEPartTime     FTEStatus = "part_time"
	FTEVariableHour FTEStatus = "variable_hour"
	FTEUndetermined FTEStatus = "undetermined"
)

type FTEMethod string

const (
	MethodClassification FTEMethod = "classification"
	MethodLookBack       FTEMethod = "look_back"
	MethodNone           FTEMethod = "none"
)

// YearMonth identifies one measurement month.
type YearMonth struct {
	Year  int
	Month time.Month
}

func (ym YearMonth) before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) IsZero() bool { return ym.Year == 0 && ym.Month == 0 }

func (ym YearMonth) String() string {
	if ym.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// MeasurementWindow is the [Start, End] span of a look-back history.
// Zero when no hours were observed.
type MeasurementWindow struct {
	Start YearMonth
	End   YearMonth
}

func (w MeasurementWindow) IsZero() bool { return w.Start.IsZero() && w.End.IsZero() }

// FTEDetermination is the classifier output. Value object.
type FTEDetermination struct {
	EmployeeID          string
	Status              FTEStatus
	AverageMonthlyHours decimal.Decimal
	MonthsObserved      int
	Window              MeasurementWindow
	Method              FTEMethod
	Confidence          int
	Reasoning           string
	IsNewHire           bool
}

// =============================================================================
// AFFORDABILITY
// =============================================================================

type SafeHarbor string

const (
	SafeHarborRateOfPay SafeHarbor = "rate_of_pay"
	SafeHarborW2        SafeHarbor = "W2"
	SafeHarborUnknown   SafeHarbor = "unknown"
)

// AffordabilityCalculation is only produced for full-time employees.
// MonthlyWage, MaxAffordableContribution and Margin are nil when no
// compensation data exists.
type AffordabilityCalculation struct {
	EmployeeID                string
	IsAffordable              bool
	EmployeeContribution      decimal.Decimal
	SafeHarborUsed            SafeHarbor
	AffordabilityPercentage   decimal.Decimal
	Threshold                 decimal.Decimal
	HourlyRate                *decimal.Decimal
	MonthlyHoursAssumed       *decimal.Decimal
	AnnualWages               *decimal.Decimal
	MonthlyWage               *decimal.Decimal
	MaxAffordableContribution *decimal.Decimal
	Margin                    *decimal.Decimal
}

// =============================================================================
// PENALTY RISK
// =============================================================================

type PenaltyType string

const (
	PenaltyNone   PenaltyType = "none"
	Penalty4980HA PenaltyType = "4980H_A" // no offer of coverage
	Penalty4980HB PenaltyType = "4980H_B" // unaffordable coverage
)

// PenaltyRisk is at most one per employee per run.
type PenaltyRisk struct {
	EmployeeID             string
	PenaltyType            PenaltyType
	PotentialPenaltyAmount decimal.Decimal
	MonthsAtRisk           []int
	Reason                 string
	MitigationOptions      []string
}

// =============================================================================
// ASSESSMENT - Aggregate root for one employee
// =============================================================================

type ComplianceStatus string

const (
	StatusCompliant     ComplianceStatus = "compliant"
	StatusAtRisk        ComplianceStatus = "at_risk"
	StatusNonCompliant  ComplianceStatus = "non_compliant"
	StatusPendingReview ComplianceStatus = "pending_review"
)

// ComplianceAssessment holds exactly one FTE determination and
// zero-or-one affordability and penalty results.
type ComplianceAssessment struct {
	EmployeeID      string
	ClientID        string
	TaxYear         int
	AssessmentDate  string // as-of date, YYYY-MM-DD
	Status          ComplianceStatus
	FTE             FTEDetermination
	Affordability   *AffordabilityCalculation
	Line14Code      OfferCode
	Line15Code      *SafeHarborCode
	Line16Code      *SafeHarborCode
	PenaltyRisk     *PenaltyRisk
	Issues          []string
	Recommendations []string
}

// PenaltyAmount returns the exposure of this assessment, zero without risk.
func (a ComplianceAssessment) PenaltyAmount() decimal.Decimal {
	if a.PenaltyRisk == nil {
		return decimal.Zero
	}
	return a.PenaltyRisk.PotentialPenaltyAmount
}

// =============================================================================
// BATCH - Input and result root
// =============================================================================

// BatchInput is one assessment run. Coverage is keyed by EmployeeID;
// a missing key means no coverage data for that employee.
type BatchInput struct {
	ClientID  string
	AsOf      time.Time
	Employees []EmployeeRecord
	Coverage  map[string]CoverageData
}

// PenaltyBreakdown splits aggregate exposure by section.
type PenaltyBreakdown struct {
	Penalty4980HA      decimal.Decimal
	Penalty4980HB      decimal.Decimal
	AffectedEmployeesA int
	AffectedEmployeesB int
	RiskLevel          RiskLevel
}

type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ALESummary estimates Applicable Large Employer status from the batch.
type ALESummary struct {
	FullTimeEmployees   int
	FullTimeEquivalents int
	Total               int
	Threshold           int
	IsALE               bool
}

// ComplianceResult is the batch root. Assessments keep input order; records
// that failed are listed in Errors and excluded from Assessments.
type ComplianceResult struct {
	ClientID                 string
	TaxYear                  int
	AsOf                     string
	TotalRecords             int
	TotalAssessed            int
	Compliant                int
	AtRisk                   int
	NonCompliant             int
	PendingReview            int
	Assessments              []ComplianceAssessment
	AggregatePenaltyExposure decimal.Decimal
	Penalties                PenaltyBreakdown
	ALE                      ALESummary
	Errors                   []RecordError
}
