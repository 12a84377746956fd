package aca_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/aca-engine/aca"
)

// =============================================================================
// END-TO-END SCENARIOS
// =============================================================================

func TestAssessEmployee_FullTimeUnaffordable_AtRisk(t *testing.T) {
	// GIVEN: Full-time at $10/hour, enrolled self-only at $200/month
	// WHEN: Assessing for 2026
	// THEN: 1F/2C, unaffordable, 4980H(b) $4,320, at_risk

	e := newTestEngine(t)
	rec := fullTimeRecord("emp-1")
	rec.HourlyRate = decPtr("10")

	a, err := e.AssessEmployee(rec, enrolledSelfOnly("200"), asOf)
	require.NoError(t, err)

	assert.Equal(t, aca.StatusAtRisk, a.Status)
	assert.Equal(t, aca.Code1F, a.Line14Code)
	assert.Equal(t, code(aca.Code2C), a.Line15Code)
	assert.Nil(t, a.Line16Code)
	require.NotNil(t, a.Affordability)
	assert.False(t, a.Affordability.IsAffordable)
	require.NotNil(t, a.PenaltyRisk)
	assert.Equal(t, aca.Penalty4980HB, a.PenaltyRisk.PenaltyType)
	assert.True(t, a.PenaltyAmount().Equal(dec("4320")))
	assert.Contains(t, a.Issues, "Coverage fails affordability test")
	assert.Contains(t, a.Recommendations, "Reduce employee premium contribution")
	assert.Equal(t, "2026-12-31", a.AssessmentDate)
	assert.Equal(t, 2026, a.TaxYear)
	assert.Equal(t, "acme", a.ClientID)
}

func TestAssessEmployee_FullTimeNoOffer_NonCompliant(t *testing.T) {
	e := newTestEngine(t)
	rec := fullTimeRecord("emp-1")
	rec.AnnualSalary = decPtr("52000")

	a, err := e.AssessEmployee(rec, &aca.CoverageData{OfferMade: false}, asOf)
	require.NoError(t, err)

	assert.Equal(t, aca.StatusNonCompliant, a.Status)
	assert.Equal(t, aca.Code1H, a.Line14Code)
	assert.Nil(t, a.Line15Code)
	require.NotNil(t, a.PenaltyRisk)
	assert.Equal(t, aca.Penalty4980HA, a.PenaltyRisk.PenaltyType)
	assert.True(t, a.PenaltyAmount().Equal(dec("2880")))
}

func TestAssessEmployee_PartTime_NoAffordability(t *testing.T) {
	// GIVEN: A part-time employee even with an expensive premium
	// THEN: Affordability is never evaluated and the status is compliant

	e := newTestEngine(t)
	rec := aca.EmployeeRecord{EmployeeID: "emp-2", EmploymentType: "part_time", HourlyRate: decPtr("10")}

	a, err := e.AssessEmployee(rec, enrolledSelfOnly("900"), asOf)
	require.NoError(t, err)

	assert.Equal(t, aca.StatusCompliant, a.Status)
	assert.Nil(t, a.Affordability)
	assert.Nil(t, a.PenaltyRisk)
	assert.Equal(t, aca.Code1G, a.Line14Code)
	assert.Equal(t, code(aca.Code2B), a.Line15Code)
	assert.True(t, a.PenaltyAmount().IsZero())
}

func TestAssessEmployee_NoData_PendingReview(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.AssessEmployee(aca.EmployeeRecord{EmployeeID: "emp-3"}, nil, asOf)
	require.NoError(t, err)

	assert.Equal(t, aca.StatusPendingReview, a.Status)
	assert.Equal(t, aca.FTEUndetermined, a.FTE.Status)
	assert.Contains(t, a.Issues, "FTE status cannot be determined - insufficient hours data")
	assert.Contains(t, a.Recommendations, "Collect 3-12 months of hours data for look-back measurement")
}

func TestAssessEmployee_VariableHour_Compliant(t *testing.T) {
	e := newTestEngine(t)
	rec := aca.EmployeeRecord{EmployeeID: "emp-4", HoursWorked: monthsOf(12, "100")}

	a, err := e.AssessEmployee(rec, nil, asOf)
	require.NoError(t, err)

	assert.Equal(t, aca.StatusCompliant, a.Status)
	assert.Equal(t, aca.FTEVariableHour, a.FTE.Status)
	assert.Contains(t, a.Issues, "Low confidence (70%) in FTE determination")
}

// =============================================================================
// ADVISORY DEFAULTS
// =============================================================================

func TestAssessEmployee_DefaultsAreFlagged(t *testing.T) {
	// GIVEN: A full-time employee with neither coverage nor compensation data
	// THEN: 1A and "affordable" are reported, each with an advisory issue

	e := newTestEngine(t)

	a, err := e.AssessEmployee(fullTimeRecord("emp-5"), nil, asOf)
	require.NoError(t, err)

	assert.Equal(t, aca.StatusCompliant, a.Status)
	assert.Equal(t, aca.Code1A, a.Line14Code)
	assert.Nil(t, a.Line15Code)
	assert.Contains(t, a.Issues, "No coverage data supplied - Line 14 defaulted to 1A")
	assert.Contains(t, a.Issues, "No compensation data - coverage assumed affordable")
}

func TestAssessEmployee_NewHireRecommendation(t *testing.T) {
	e := newTestEngine(t)
	rec := fullTimeRecord("emp-6")
	rec.HireDate = "2026-09-01"
	rec.HourlyRate = decPtr("25")

	a, err := e.AssessEmployee(rec, enrolledSelfOnly("100"), asOf)
	require.NoError(t, err)

	assert.True(t, a.FTE.IsNewHire)
	assert.Contains(t, a.Recommendations,
		"Confirm whether a limited non-assessment period (code 2D) applies to this new hire")
}

func TestAssessEmployee_EmptySlicesNotNil(t *testing.T) {
	e := newTestEngine(t)
	rec := fullTimeRecord("emp-7")
	rec.AnnualSalary = decPtr("80000")

	a, err := e.AssessEmployee(rec, enrolledSelfOnly("100"), asOf)
	require.NoError(t, err)

	assert.NotNil(t, a.Issues)
	assert.NotNil(t, a.Recommendations)
	assert.Empty(t, a.Issues)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestAssessEmployee_InvalidInput(t *testing.T) {
	e := newTestEngine(t)

	cases := []struct {
		name string
		rec  aca.EmployeeRecord
		cov  *aca.CoverageData
		want error
	}{
		{"missing id", aca.EmployeeRecord{}, nil, aca.ErrMissingEmployeeID},
		{"month 13", aca.EmployeeRecord{EmployeeID: "x", HoursWorked: []aca.MonthlyHours{{Year: 2026, Month: 13, Hours: dec("10")}}}, nil, aca.ErrInvalidHours},
		{"negative hours", aca.EmployeeRecord{EmployeeID: "x", HoursWorked: []aca.MonthlyHours{{Year: 2026, Month: 1, Hours: dec("-1")}}}, nil, aca.ErrInvalidHours},
		{"negative salary", aca.EmployeeRecord{EmployeeID: "x", AnnualSalary: decPtr("-1")}, nil, aca.ErrInvalidCompensation},
		{"negative premium", aca.EmployeeRecord{EmployeeID: "x"}, enrolledSelfOnly("-5"), aca.ErrInvalidCoverage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.AssessEmployee(tc.rec, tc.cov, asOf)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, aca.IsInputError(err))

			var rerr aca.RecordError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, aca.StageValidate, rerr.Stage)
		})
	}
}

func TestAssessEmployee_MalformedHireDateIsNotAnError(t *testing.T) {
	e := newTestEngine(t)
	rec := fullTimeRecord("emp-8")
	rec.HireDate = "13/45/2020"

	a, err := e.AssessEmployee(rec, nil, asOf)
	require.NoError(t, err)
	assert.False(t, a.FTE.IsNewHire)
}
