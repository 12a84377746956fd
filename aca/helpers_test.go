package aca_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/warp/aca-engine/aca"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var asOf = time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...aca.Option) *aca.Engine {
	t.Helper()
	c, err := aca.DefaultRegistry().ForYear(2026)
	require.NoError(t, err)
	return aca.NewEngine(c, opts...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

// monthsOf returns n consecutive months of the same hours ending December 2026.
func monthsOf(n int, hours string) []aca.MonthlyHours {
	out := make([]aca.MonthlyHours, 0, n)
	for i := 0; i < n; i++ {
		m := time.Month(12 - n + 1 + i)
		out = append(out, aca.MonthlyHours{Year: 2026, Month: m, Hours: dec(hours), Source: "payroll"})
	}
	return out
}

func fullTimeRecord(id string) aca.EmployeeRecord {
	return aca.EmployeeRecord{
		EmployeeID:     id,
		ClientID:       "acme",
		HireDate:       "2020-01-15",
		EmploymentType: "full_time",
	}
}

func enrolledSelfOnly(premium string) *aca.CoverageData {
	return &aca.CoverageData{OfferMade: true, Enrolled: true, EmployeeMonthlyPremium: dec(premium)}
}

func code(c aca.SafeHarborCode) *aca.SafeHarborCode {
	return &c
}
