package aca

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// allMonths is the months-at-risk set for an annual exposure.
var allMonths = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

// AssessPenalty converts FTE, affordability and the Line 14 code into at most
// one PenaltyRisk. The no-offer check runs first: a 1H code is a 4980H(a)
// exposure whatever the affordability result says.
func (e *Engine) AssessPenalty(fte FTEDetermination, aff *AffordabilityCalculation, line14 OfferCode) *PenaltyRisk {
	if fte.Status != FTEFullTime {
		return nil
	}

	if line14 == Code1H {
		return &PenaltyRisk{
			EmployeeID:             fte.EmployeeID,
			PenaltyType:            Penalty4980HA,
			PotentialPenaltyAmount: e.constants.Penalty4980HA,
			MonthsAtRisk:           append([]int(nil), allMonths...),
			Reason:                 "No coverage offered to full-time employee",
			MitigationOptions: []string{
				"Extend coverage offer immediately",
				"Review classification - may be part-time",
			},
		}
	}

	if aff != nil && !aff.IsAffordable {
		return &PenaltyRisk{
			EmployeeID:             fte.EmployeeID,
			PenaltyType:            Penalty4980HB,
			PotentialPenaltyAmount: e.constants.Penalty4980HB,
			MonthsAtRisk:           append([]int(nil), allMonths...),
			Reason: fmt.Sprintf("Coverage exceeds %s%% affordability threshold",
				aff.Threshold.Mul(decimal.NewFromInt(100)).StringFixed(2)),
			MitigationOptions: []string{
				"Reduce employee premium contribution",
				"Offer lower-cost plan option",
			},
		}
	}

	return nil
}
