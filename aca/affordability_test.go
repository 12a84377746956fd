package aca_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/aca-engine/aca"
)

func TestEvaluateAffordability_RateOfPay(t *testing.T) {
	// GIVEN: $10/hour and a $200 monthly premium
	// WHEN: Evaluating under the 2026 threshold (9.12%)
	// THEN: Wage is 1300, percentage about 15.38%, unaffordable

	e := newTestEngine(t)
	rec := fullTimeRecord("emp-1")
	rec.HourlyRate = decPtr("10")
	rec.AnnualSalary = decPtr("90000") // rate of pay takes precedence

	calc := e.EvaluateAffordability(rec, enrolledSelfOnly("200"))

	assert.Equal(t, aca.SafeHarborRateOfPay, calc.SafeHarborUsed)
	assert.False(t, calc.IsAffordable)
	assert.Equal(t, "0.1538", calc.AffordabilityPercentage.StringFixed(4))
	require.NotNil(t, calc.MonthlyWage)
	assert.True(t, calc.MonthlyWage.Equal(dec("1300")))
	require.NotNil(t, calc.MonthlyHoursAssumed)
	assert.True(t, calc.MonthlyHoursAssumed.Equal(dec("130")))
	assert.Nil(t, calc.AnnualWages)
	require.NotNil(t, calc.MaxAffordableContribution)
	assert.Equal(t, "118.56", calc.MaxAffordableContribution.StringFixed(2))
	assert.Equal(t, "-81.44", calc.Margin.StringFixed(2))
}

func TestEvaluateAffordability_W2(t *testing.T) {
	e := newTestEngine(t)
	rec := fullTimeRecord("emp-1")
	rec.AnnualSalary = decPtr("60000")

	calc := e.EvaluateAffordability(rec, enrolledSelfOnly("200"))

	assert.Equal(t, aca.SafeHarborW2, calc.SafeHarborUsed)
	assert.True(t, calc.IsAffordable)
	assert.Equal(t, "0.0400", calc.AffordabilityPercentage.StringFixed(4))
	require.NotNil(t, calc.AnnualWages)
	assert.True(t, calc.AnnualWages.Equal(dec("60000")))
	assert.Nil(t, calc.HourlyRate)
}

func TestEvaluateAffordability_ThresholdIsInclusive(t *testing.T) {
	// 1300 * 0.0912 = 118.56 exactly
	e := newTestEngine(t)
	rec := fullTimeRecord("emp-1")
	rec.HourlyRate = decPtr("10")

	assert.True(t, e.EvaluateAffordability(rec, enrolledSelfOnly("118.56")).IsAffordable)
	assert.False(t, e.EvaluateAffordability(rec, enrolledSelfOnly("118.57")).IsAffordable)
}

func TestEvaluateAffordability_ZeroRateFallsBackToSalary(t *testing.T) {
	e := newTestEngine(t)
	rec := fullTimeRecord("emp-1")
	rec.HourlyRate = decPtr("0")
	rec.AnnualSalary = decPtr("48000")

	calc := e.EvaluateAffordability(rec, enrolledSelfOnly("100"))

	assert.Equal(t, aca.SafeHarborW2, calc.SafeHarborUsed)
}

func TestEvaluateAffordability_UnknownCompensation(t *testing.T) {
	// GIVEN: No rate and no salary
	// THEN: Assumed affordable with percentage 0 and no wage figures

	e := newTestEngine(t)

	calc := e.EvaluateAffordability(fullTimeRecord("emp-1"), enrolledSelfOnly("500"))

	assert.Equal(t, aca.SafeHarborUnknown, calc.SafeHarborUsed)
	assert.True(t, calc.IsAffordable)
	assert.True(t, calc.AffordabilityPercentage.IsZero())
	assert.Nil(t, calc.MonthlyWage)
	assert.Nil(t, calc.MaxAffordableContribution)
	assert.Nil(t, calc.Margin)
}

func TestEvaluateAffordability_NoCoverageMeansZeroContribution(t *testing.T) {
	e := newTestEngine(t)
	rec := fullTimeRecord("emp-1")
	rec.HourlyRate = decPtr("15")

	calc := e.EvaluateAffordability(rec, nil)

	assert.True(t, calc.EmployeeContribution.IsZero())
	assert.True(t, calc.IsAffordable)
}
