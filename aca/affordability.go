/*
affordability.go - Affordability evaluator

PURPOSE:
  Tests whether the employee's monthly contribution for self-only coverage is
  within the year's affordability percentage under a safe harbor. Only called
  for full-time employees.

SAFE HARBOR SELECTION (first available wins):
  1. Rate of pay: hourly_rate * rate-of-pay hours (130)
  2. W-2:         annual_salary / 12
  3. Unknown:     no compensation data -> affordable, percentage 0

  A zero or missing rate/salary counts as unavailable.

ARITHMETIC:
  All values are decimal.Decimal; percentage = contribution / monthly wage,
  compared with the threshold using <=. A zero wage yields percentage 0.
*/
package aca

import "github.com/shopspring/decimal"

var twelve = decimal.NewFromInt(12)

// EvaluateAffordability runs the safe-harbor test. cov is nil when no
// coverage data exists; the contribution is then zero.
func (e *Engine) EvaluateAffordability(rec EmployeeRecord, cov *CoverageData) AffordabilityCalculation {
	contribution := decimal.Zero
	if cov != nil {
		contribution = cov.EmployeeMonthlyPremium
	}
	threshold := e.constants.AffordabilityThreshold

	calc := AffordabilityCalculation{
		EmployeeID:              rec.EmployeeID,
		EmployeeContribution:    contribution,
		Threshold:               threshold,
		AffordabilityPercentage: decimal.Zero,
	}

	var wage decimal.Decimal
	switch {
	case available(rec.HourlyRate):
		hours := e.constants.RateOfPayMonthlyHours
		rate := *rec.HourlyRate
		wage = rate.Mul(hours)
		calc.SafeHarborUsed = SafeHarborRateOfPay
		calc.HourlyRate = &rate
		calc.MonthlyHoursAssumed = &hours

	case available(rec.AnnualSalary):
		annual := *rec.AnnualSalary
		wage = annual.Div(twelve)
		calc.SafeHarborUsed = SafeHarborW2
		calc.AnnualWages = &annual

	default:
		// No compensation data: optimistic default, flagged as an advisory issue.
		calc.SafeHarborUsed = SafeHarborUnknown
		calc.IsAffordable = true
		return calc
	}

	if wage.IsPositive() {
		calc.AffordabilityPercentage = contribution.Div(wage)
	}
	calc.IsAffordable = calc.AffordabilityPercentage.LessThanOrEqual(threshold)

	maxContribution := wage.Mul(threshold).Round(2)
	margin := maxContribution.Sub(contribution)
	calc.MonthlyWage = &wage
	calc.MaxAffordableContribution = &maxContribution
	calc.Margin = &margin
	return calc
}

func available(v *decimal.Decimal) bool {
	return v != nil && v.IsPositive()
}
