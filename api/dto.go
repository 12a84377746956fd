package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/aca-engine/aca"
	"github.com/warp/aca-engine/factory"
)

// =============================================================================
// REQUEST DTOs
// =============================================================================

// AssessRequest is the body of POST /api/assessments. It is exactly the
// factory batch document.
type AssessRequest = factory.BatchJSON

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE DTOs
// =============================================================================

// AssessmentResponse wraps a result with run metadata. The result itself is
// deterministic; run_id and duration_ms are not part of it.
type AssessmentResponse struct {
	RunID      string              `json:"run_id"`
	DurationMS int64               `json:"duration_ms"`
	Result     ComplianceResultDTO `json:"result"`
}

// ComplianceResultDTO is the batch result.
type ComplianceResultDTO struct {
	ClientID                 string                    `json:"client_id"`
	TaxYear                  int                       `json:"tax_year"`
	AsOf                     string                    `json:"as_of"`
	TotalRecords             int                       `json:"total_records"`
	TotalAssessed            int                       `json:"total_employees_assessed"`
	Compliant                int                       `json:"compliant_count"`
	AtRisk                   int                       `json:"at_risk_count"`
	NonCompliant             int                       `json:"non_compliant_count"`
	PendingReview            int                       `json:"pending_review_count"`
	AggregatePenaltyExposure string                    `json:"aggregate_penalty_exposure"`
	Penalties                PenaltyBreakdownDTO       `json:"penalty_breakdown"`
	ALE                      ALESummaryDTO             `json:"ale_summary"`
	Assessments              []ComplianceAssessmentDTO `json:"assessments"`
	Errors                   []RecordErrorDTO          `json:"errors"`
}

// ComplianceAssessmentDTO is one employee's assessment.
type ComplianceAssessmentDTO struct {
	EmployeeID      string              `json:"employee_id"`
	ClientID        string              `json:"client_id"`
	TaxYear         int                 `json:"tax_year"`
	AssessmentDate  string              `json:"assessment_date"`
	Status          string              `json:"overall_status"`
	FTE             FTEDeterminationDTO `json:"fte_determination"`
	Affordability   *AffordabilityDTO   `json:"affordability"`
	Line14Code      string              `json:"line_14_code"`
	Line15Code      *string             `json:"line_15_code"`
	Line16Code      *string             `json:"line_16_code"`
	PenaltyRisk     *PenaltyRiskDTO     `json:"penalty_risk"`
	Issues          []string            `json:"issues"`
	Recommendations []string            `json:"recommendations"`
}

// FTEDeterminationDTO is the classifier output.
type FTEDeterminationDTO struct {
	EmployeeID             string `json:"employee_id"`
	Status                 string `json:"fte_status"`
	AverageMonthlyHours    string `json:"average_monthly_hours"`
	MonthsObserved         int    `json:"months_observed"`
	MeasurementPeriodStart string `json:"measurement_period_start,omitempty"`
	MeasurementPeriodEnd   string `json:"measurement_period_end,omitempty"`
	Method                 string `json:"determination_method"`
	Confidence             int    `json:"confidence_score"`
	Reasoning              string `json:"reasoning"`
	IsNewHire              bool   `json:"is_new_hire"`
}

// AffordabilityDTO is the safe-harbor test result.
type AffordabilityDTO struct {
	EmployeeID                string  `json:"employee_id"`
	IsAffordable              bool    `json:"is_affordable"`
	EmployeeContribution      string  `json:"employee_contribution"`
	SafeHarborUsed            string  `json:"safe_harbor_used"`
	AffordabilityPercentage   string  `json:"affordability_percentage"`
	Threshold                 string  `json:"threshold"`
	HourlyRate                *string `json:"hourly_rate,omitempty"`
	MonthlyHoursAssumed       *string `json:"monthly_hours_assumed,omitempty"`
	AnnualWages               *string `json:"annual_wages,omitempty"`
	AssumedMonthlyWage        *string `json:"assumed_monthly_wage,omitempty"`
	MaxAffordableContribution *string `json:"max_affordable_contribution,omitempty"`
	Margin                    *string `json:"margin,omitempty"`
}

// PenaltyRiskDTO is one employee's exposure.
type PenaltyRiskDTO struct {
	EmployeeID             string   `json:"employee_id"`
	PenaltyType            string   `json:"penalty_type"`
	PotentialPenaltyAmount string   `json:"potential_penalty_amount"`
	MonthsAtRisk           []int    `json:"months_at_risk"`
	Reason                 string   `json:"reason"`
	MitigationOptions      []string `json:"mitigation_options"`
}

// PenaltyBreakdownDTO splits exposure by section.
type PenaltyBreakdownDTO struct {
	Penalty4980HA      string `json:"penalty_4980h_a"`
	Penalty4980HB      string `json:"penalty_4980h_b"`
	AffectedEmployeesA int    `json:"affected_employees_a"`
	AffectedEmployeesB int    `json:"affected_employees_b"`
	RiskLevel          string `json:"risk_level"`
}

// ALESummaryDTO is the Applicable Large Employer estimate.
type ALESummaryDTO struct {
	FullTimeEmployees   int  `json:"full_time_employees"`
	FullTimeEquivalents int  `json:"full_time_equivalents"`
	Total               int  `json:"total"`
	Threshold           int  `json:"threshold"`
	IsALE               bool `json:"is_ale"`
}

// RecordErrorDTO is one failed record.
type RecordErrorDTO struct {
	Index      int    `json:"index"`
	EmployeeID string `json:"employee_id"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
}

// EmployeeDTO is a stored employee with its coverage, if any.
type EmployeeDTO struct {
	factory.EmployeeJSON
	Coverage *factory.CoverageJSON `json:"coverage,omitempty"`
}

// CodeDTO is one IRS code table row.
type CodeDTO struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// CodesResponse lists both Form 1095-C code tables.
type CodesResponse struct {
	Line14 []CodeDTO `json:"line_14"`
	Line15 []CodeDTO `json:"line_15_16"`
}

// TaxYearsResponse lists registered tax-year tables.
type TaxYearsResponse struct {
	DefaultTaxYear int                   `json:"default_tax_year"`
	TaxYears       []factory.TaxYearJSON `json:"tax_years"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ClientID    string `json:"client_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optional(d *decimal.Decimal, render func(decimal.Decimal) string) *string {
	if d == nil {
		return nil
	}
	s := render(*d)
	return &s
}

func plain(d decimal.Decimal) string {
	return d.String()
}

// NewResultDTO renders a result the way the API serves it.
func NewResultDTO(r aca.ComplianceResult) ComplianceResultDTO {
	dto := ComplianceResultDTO{
		ClientID:                 r.ClientID,
		TaxYear:                  r.TaxYear,
		AsOf:                     r.AsOf,
		TotalRecords:             r.TotalRecords,
		TotalAssessed:            r.TotalAssessed,
		Compliant:                r.Compliant,
		AtRisk:                   r.AtRisk,
		NonCompliant:             r.NonCompliant,
		PendingReview:            r.PendingReview,
		AggregatePenaltyExposure: money(r.AggregatePenaltyExposure),
		Penalties: PenaltyBreakdownDTO{
			Penalty4980HA:      money(r.Penalties.Penalty4980HA),
			Penalty4980HB:      money(r.Penalties.Penalty4980HB),
			AffectedEmployeesA: r.Penalties.AffectedEmployeesA,
			AffectedEmployeesB: r.Penalties.AffectedEmployeesB,
			RiskLevel:          string(r.Penalties.RiskLevel),
		},
		ALE: ALESummaryDTO{
			FullTimeEmployees:   r.ALE.FullTimeEmployees,
			FullTimeEquivalents: r.ALE.FullTimeEquivalents,
			Total:               r.ALE.Total,
			Threshold:           r.ALE.Threshold,
			IsALE:               r.ALE.IsALE,
		},
		Assessments: make([]ComplianceAssessmentDTO, 0, len(r.Assessments)),
		Errors:      make([]RecordErrorDTO, 0, len(r.Errors)),
	}
	for _, a := range r.Assessments {
		dto.Assessments = append(dto.Assessments, toAssessmentDTO(a))
	}
	for _, e := range r.Errors {
		dto.Errors = append(dto.Errors, RecordErrorDTO{
			Index:      e.Index,
			EmployeeID: e.EmployeeID,
			Stage:      string(e.Stage),
			Error:      e.Err.Error(),
		})
	}
	return dto
}

func toAssessmentDTO(a aca.ComplianceAssessment) ComplianceAssessmentDTO {
	dto := ComplianceAssessmentDTO{
		EmployeeID:      a.EmployeeID,
		ClientID:        a.ClientID,
		TaxYear:         a.TaxYear,
		AssessmentDate:  a.AssessmentDate,
		Status:          string(a.Status),
		FTE:             toFTEDTO(a.FTE),
		Line14Code:      string(a.Line14Code),
		Line15Code:      codePtr(a.Line15Code),
		Line16Code:      codePtr(a.Line16Code),
		Issues:          a.Issues,
		Recommendations: a.Recommendations,
	}
	if a.Affordability != nil {
		aff := toAffordabilityDTO(*a.Affordability)
		dto.Affordability = &aff
	}
	if a.PenaltyRisk != nil {
		dto.PenaltyRisk = &PenaltyRiskDTO{
			EmployeeID:             a.PenaltyRisk.EmployeeID,
			PenaltyType:            string(a.PenaltyRisk.PenaltyType),
			PotentialPenaltyAmount: money(a.PenaltyRisk.PotentialPenaltyAmount),
			MonthsAtRisk:           a.PenaltyRisk.MonthsAtRisk,
			Reason:                 a.PenaltyRisk.Reason,
			MitigationOptions:      a.PenaltyRisk.MitigationOptions,
		}
	}
	return dto
}

func toFTEDTO(f aca.FTEDetermination) FTEDeterminationDTO {
	return FTEDeterminationDTO{
		EmployeeID:             f.EmployeeID,
		Status:                 string(f.Status),
		AverageMonthlyHours:    f.AverageMonthlyHours.StringFixed(2),
		MonthsObserved:         f.MonthsObserved,
		MeasurementPeriodStart: f.Window.Start.String(),
		MeasurementPeriodEnd:   f.Window.End.String(),
		Method:                 string(f.Method),
		Confidence:             f.Confidence,
		Reasoning:              f.Reasoning,
		IsNewHire:              f.IsNewHire,
	}
}

func toAffordabilityDTO(c aca.AffordabilityCalculation) AffordabilityDTO {
	return AffordabilityDTO{
		EmployeeID:                c.EmployeeID,
		IsAffordable:              c.IsAffordable,
		EmployeeContribution:      money(c.EmployeeContribution),
		SafeHarborUsed:            string(c.SafeHarborUsed),
		AffordabilityPercentage:   c.AffordabilityPercentage.Round(6).String(),
		Threshold:                 plain(c.Threshold),
		HourlyRate:                optional(c.HourlyRate, plain),
		MonthlyHoursAssumed:       optional(c.MonthlyHoursAssumed, plain),
		AnnualWages:               optional(c.AnnualWages, money),
		AssumedMonthlyWage:        optional(c.MonthlyWage, money),
		MaxAffordableContribution: optional(c.MaxAffordableContribution, money),
		Margin:                    optional(c.Margin, money),
	}
}

func codePtr(c *aca.SafeHarborCode) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func toCodeDTOs(rows []aca.CodeDescription) []CodeDTO {
	out := make([]CodeDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, CodeDTO{Code: r.Code, Description: r.Description})
	}
	return out
}

func toEmployeeDTO(rec aca.EmployeeRecord, cov *aca.CoverageData) EmployeeDTO {
	dto := EmployeeDTO{EmployeeJSON: factory.EmployeeToJSON(rec)}
	if cov != nil {
		cj := factory.CoverageToJSON(*cov)
		dto.Coverage = &cj
	}
	return dto
}
