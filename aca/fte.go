/*
fte.go - Full-time-equivalence classifier

PURPOSE:
  Decides whether an employee is full-time for ACA purposes, and how sure we
  are. The decision is an ordered rule list: the first rule that matches wins,
  so an explicit employer classification always overrides hours history.

RULE ORDER:
  1. Classified "full_time"/"ft"   -> full_time, confidence 95
  2. Classified "part_time"/"pt"   -> part_time, confidence 90
  3. Look-back hours average
       avg >= full-time threshold  -> full_time, confidence min(95, 70 + 2*months)
       avg <  part-time threshold  -> part_time, confidence 85
       otherwise                   -> variable_hour, confidence 70
  4. Nothing known                 -> undetermined, confidence 0

NEW HIRES:
  IsNewHire is carried for reporting only. A malformed hire date leaves it
  false rather than failing the record.
*/
package aca

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// fteInput is everything a rule may look at, computed once per record.
type fteInput struct {
	record         EmployeeRecord
	classification string
	history        hoursHistory
	isNewHire      bool
}

// fteRule returns a determination and true when it applies.
type fteRule struct {
	name  string
	apply func(c YearConstants, in fteInput) (FTEDetermination, bool)
}

// fteRules is evaluated top to bottom. Reordering or adding a rule is a
// change to this slice only.
var fteRules = []fteRule{
	{
		name:  "classified_full_time",
		apply: classifiedAs(FTEFullTime, 95, "Classified as full-time by employer", "full_time", "ft"),
	},
	{
		name:  "classified_part_time",
		apply: classifiedAs(FTEPartTime, 90, "Classified as part-time by employer", "part_time", "pt"),
	},
	{
		name:  "look_back",
		apply: lookBack,
	},
	{
		name:  "undetermined",
		apply: undetermined,
	},
}

// ClassifyFTE runs the rule list for one record as of the given date.
func (e *Engine) ClassifyFTE(rec EmployeeRecord, asOf time.Time) FTEDetermination {
	in := fteInput{
		record:         rec,
		classification: normalizeClassification(rec.EmploymentType),
		history:        summarizeHours(rec.HoursWorked),
		isNewHire:      e.isNewHire(rec, asOf),
	}
	for _, rule := range e.fteRules {
		if det, ok := rule.apply(e.constants, in); ok {
			return det
		}
	}
	// The last rule always matches; this is unreachable with the default list.
	det, _ := undetermined(e.constants, in)
	return det
}

func (e *Engine) isNewHire(rec EmployeeRecord, asOf time.Time) bool {
	hire, ok := parseDate(rec.HireDate)
	if !ok {
		if rec.HireDate != "" {
			e.logger.Debug().
				Str("employee_id", rec.EmployeeID).
				Str("hire_date", rec.HireDate).
				Msg("malformed hire date, new-hire flag left false")
		}
		return false
	}
	return daysBetween(hire, asOf) < e.constants.NewHireDays
}

// =============================================================================
// RULES
// =============================================================================

func classifiedAs(status FTEStatus, confidence int, reasoning string, labels ...string) func(YearConstants, fteInput) (FTEDetermination, bool) {
	return func(_ YearConstants, in fteInput) (FTEDetermination, bool) {
		for _, label := range labels {
			if in.classification == label {
				return FTEDetermination{
					EmployeeID:          in.record.EmployeeID,
					Status:              status,
					AverageMonthlyHours: in.history.average.Round(2),
					MonthsObserved:      in.history.months,
					Window:              in.history.window,
					Method:              MethodClassification,
					Confidence:          confidence,
					Reasoning:           reasoning,
					IsNewHire:           in.isNewHire,
				}, true
			}
		}
		return FTEDetermination{}, false
	}
}

func lookBack(c YearConstants, in fteInput) (FTEDetermination, bool) {
	h := in.history
	if h.months == 0 {
		return FTEDetermination{}, false
	}

	var (
		status     FTEStatus
		confidence int
	)
	switch {
	case h.average.GreaterThanOrEqual(c.FullTimeMonthlyHours):
		status = FTEFullTime
		confidence = min(95, 70+2*h.months)
	case h.average.LessThan(c.PartTimeMonthlyHours):
		status = FTEPartTime
		confidence = 85
	default:
		status = FTEVariableHour
		confidence = 70
	}

	return FTEDetermination{
		EmployeeID:          in.record.EmployeeID,
		Status:              status,
		AverageMonthlyHours: h.average.Round(2),
		MonthsObserved:      h.months,
		Window:              h.window,
		Method:              MethodLookBack,
		Confidence:          confidence,
		Reasoning: fmt.Sprintf("Based on %d-month look-back average of %s hours/month",
			h.months, h.average.StringFixed(1)),
		IsNewHire: in.isNewHire,
	}, true
}

func undetermined(_ YearConstants, in fteInput) (FTEDetermination, bool) {
	return FTEDetermination{
		EmployeeID:          in.record.EmployeeID,
		Status:              FTEUndetermined,
		AverageMonthlyHours: decimal.Zero,
		Method:              MethodNone,
		Confidence:          0,
		Reasoning:           "Insufficient data to determine FTE status",
		IsNewHire:           in.isNewHire,
	}, true
}

// =============================================================================
// HOURS HISTORY
// =============================================================================

type hoursHistory struct {
	months  int
	total   decimal.Decimal
	average decimal.Decimal
	window  MeasurementWindow
}

// summarizeHours computes the look-back aggregate. The window is the
// earliest and latest month observed, whatever order the slice is in.
func summarizeHours(hours []MonthlyHours) hoursHistory {
	h := hoursHistory{total: decimal.Zero, average: decimal.Zero}
	if len(hours) == 0 {
		return h
	}
	for i, m := range hours {
		ym := YearMonth{Year: m.Year, Month: m.Month}
		if i == 0 || ym.before(h.window.Start) {
			h.window.Start = ym
		}
		if i == 0 || h.window.End.before(ym) {
			h.window.End = ym
		}
		h.total = h.total.Add(m.Hours)
	}
	h.months = len(hours)
	h.average = h.total.Div(decimal.NewFromInt(int64(h.months)))
	return h
}

// normalizeClassification lowercases and folds "-" and " " into "_",
// so "Full-Time" and "full time" both read as "full_time".
func normalizeClassification(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}
