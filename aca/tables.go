/*
tables.go - Static rule tables and tax-year constants

PURPOSE:
  Holds everything that changes from one plan year to the next (affordability
  percentage, FTE hour thresholds, penalty amounts) plus the IRS Form 1095-C
  code tables. Branch logic never embeds these numbers; it reads them from a
  YearConstants value handed to the engine at construction.

KEY CONCEPTS:
  - YearConstants: Immutable numeric policy for one tax year
  - Registry: Year -> constants lookup, safe for concurrent use
  - OfferCode (Line 14) / SafeHarborCode (Line 15/16) descriptions

MULTIPLE YEARS:
  Engines copy their YearConstants, so a 2025 and a 2026 engine can run side
  by side during year-end transition. Registering a table for a year that
  already exists replaces it for engines built afterwards.

SEE ALSO:
  - factory/taxyear.go: Loads extra tables from YAML/JSON
  - coverage.go: Line 14/15 decision table
*/
package aca

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// =============================================================================
// YEAR CONSTANTS
// =============================================================================

// YearConstants is the numeric policy for one tax year.
type YearConstants struct {
	TaxYear int

	// AffordabilityThreshold is a ratio, e.g. 0.0912 for 9.12%.
	AffordabilityThreshold decimal.Decimal

	// Look-back classification thresholds (hours per month).
	FullTimeMonthlyHours decimal.Decimal
	PartTimeMonthlyHours decimal.Decimal

	// RateOfPayMonthlyHours is the hours assumption for the rate-of-pay safe harbor.
	RateOfPayMonthlyHours decimal.Decimal

	// FTEHoursDivisor converts non-full-time hours into equivalents (120).
	FTEHoursDivisor decimal.Decimal

	// ALEThreshold is the full-time plus equivalents count for ALE status.
	ALEThreshold int

	// Annual per-employee penalty amounts.
	Penalty4980HA decimal.Decimal
	Penalty4980HB decimal.Decimal

	// NewHireDays: employees hired fewer than this many days before as-of are new hires.
	NewHireDays int
}

// Validate checks that a table is usable.
func (c YearConstants) Validate() error {
	fail := func(field, reason string) error {
		return &TableError{TaxYear: c.TaxYear, Field: field, Reason: reason}
	}
	switch {
	case c.TaxYear < 2015 || c.TaxYear > 2100:
		return fail("tax_year", "must be between 2015 and 2100")
	case !c.AffordabilityThreshold.IsPositive() || c.AffordabilityThreshold.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return fail("affordability_threshold", "must be a ratio in (0, 1)")
	case !c.FullTimeMonthlyHours.IsPositive():
		return fail("full_time_monthly_hours", "must be positive")
	case c.PartTimeMonthlyHours.IsNegative():
		return fail("part_time_monthly_hours", "must not be negative")
	case c.PartTimeMonthlyHours.GreaterThan(c.FullTimeMonthlyHours):
		return fail("part_time_monthly_hours", "must not exceed full_time_monthly_hours")
	case !c.RateOfPayMonthlyHours.IsPositive():
		return fail("rate_of_pay_monthly_hours", "must be positive")
	case !c.FTEHoursDivisor.IsPositive():
		return fail("fte_hours_divisor", "must be positive")
	case c.ALEThreshold <= 0:
		return fail("ale_threshold", "must be positive")
	case c.Penalty4980HA.IsNegative():
		return fail("penalty_4980h_a", "must not be negative")
	case c.Penalty4980HB.IsNegative():
		return fail("penalty_4980h_b", "must not be negative")
	case c.NewHireDays <= 0:
		return fail("new_hire_days", "must be positive")
	}
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// builtinYears are the tables shipped with the engine.
var builtinYears = []YearConstants{
	{
		TaxYear:                2024,
		AffordabilityThreshold: d("0.0839"),
		FullTimeMonthlyHours:   d("130"),
		PartTimeMonthlyHours:   d("60"),
		RateOfPayMonthlyHours:  d("130"),
		FTEHoursDivisor:        d("120"),
		ALEThreshold:           50,
		Penalty4980HA:          d("2970"),
		Penalty4980HB:          d("4460"),
		NewHireDays:            365,
	},
	{
		TaxYear:                2025,
		AffordabilityThreshold: d("0.0902"),
		FullTimeMonthlyHours:   d("130"),
		PartTimeMonthlyHours:   d("60"),
		RateOfPayMonthlyHours:  d("130"),
		FTEHoursDivisor:        d("120"),
		ALEThreshold:           50,
		Penalty4980HA:          d("2900"),
		Penalty4980HB:          d("4350"),
		NewHireDays:            365,
	},
	{
		TaxYear:                2026,
		AffordabilityThreshold: d("0.0912"),
		FullTimeMonthlyHours:   d("130"),
		PartTimeMonthlyHours:   d("60"),
		RateOfPayMonthlyHours:  d("130"),
		FTEHoursDivisor:        d("120"),
		ALEThreshold:           50,
		Penalty4980HA:          d("2880"),
		Penalty4980HB:          d("4320"),
		NewHireDays:            365,
	},
}

// DefaultTaxYear is used when configuration names no year.
const DefaultTaxYear = 2026

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps tax years to constants.
type Registry struct {
	mu    sync.RWMutex
	years map[int]YearConstants
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{years: make(map[int]YearConstants)}
}

// DefaultRegistry returns a registry preloaded with the built-in years.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range builtinYears {
		r.years[c.TaxYear] = c
	}
	return r
}

// Register validates and stores a table, replacing any existing entry.
func (r *Registry) Register(c YearConstants) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.years[c.TaxYear] = c
	return nil
}

// ForYear returns the constants for a tax year.
func (r *Registry) ForYear(year int) (YearConstants, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.years[year]
	if !ok {
		return YearConstants{}, ErrUnknownTaxYear
	}
	return c, nil
}

// Years lists registered tax years in ascending order.
func (r *Registry) Years() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	years := make([]int, 0, len(r.years))
	for y := range r.years {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// =============================================================================
// IRS CODE TABLES
// =============================================================================

// OfferCode is a Form 1095-C Line 14 code.
type OfferCode string

// SafeHarborCode is a Form 1095-C Line 15/16 code.
type SafeHarborCode string

const (
	Code1A OfferCode = "1A"
	Code1E OfferCode = "1E"
	Code1F OfferCode = "1F"
	Code1G OfferCode = "1G"
	Code1H OfferCode = "1H"
	Code1J OfferCode = "1J"
	Code1K OfferCode = "1K"

	Code2B SafeHarborCode = "2B"
	Code2C SafeHarborCode = "2C"
	Code2D SafeHarborCode = "2D"
)

// CodeDescription is one row of an IRS code table.
type CodeDescription struct {
	Code        string
	Description string
}

var offerCodes = []CodeDescription{
	{"1A", "Qualifying offer (employee only)"},
	{"1B", "MEC providing MV, employee cost at or below 9.5% mainland FPL"},
	{"1C", "Employee's lowest cost at or below 9.5% Form W-2 wages"},
	{"1D", "Employee's lowest cost at or below 9.5% rate of pay"},
	{"1E", "MEC providing MV to employee, dependents, but not spouse"},
	{"1F", "MEC providing MV to employee only"},
	{"1G", "Offer to employee who was not full-time"},
	{"1H", "No offer of coverage"},
	{"1I", "Qualifying offer transition relief 2015"},
	{"1J", "MEC providing MV, spouse and dependents"},
	{"1K", "MEC providing MV to employee, spouse, but not dependents"},
	{"1L", "ICHRA offered to employee only"},
	{"1M", "ICHRA offered to employee and dependents"},
	{"1N", "ICHRA offered to employee, spouse, and dependents"},
	{"1O", "ICHRA offered, spouse not offered"},
	{"1P", "Reserved"},
	{"1Q", "Reserved"},
	{"1R", "Reserved"},
	{"1S", "ICHRA offered, employee's share affordability unknown"},
}

var safeHarborCodes = []CodeDescription{
	{"2A", "Employee not employed during month"},
	{"2B", "Employee not full-time during month"},
	{"2C", "Employee enrolled in coverage offered"},
	{"2D", "Employee in limited non-assessment period"},
	{"2E", "Multiemployer interim rule relief"},
	{"2F", "W-2 safe harbor"},
	{"2G", "Federal poverty line safe harbor"},
	{"2H", "Rate of pay safe harbor"},
	{"2I", "Non-calendar year transition relief"},
}

// OfferCodes returns the Line 14 table in code order.
func OfferCodes() []CodeDescription {
	return append([]CodeDescription(nil), offerCodes...)
}

// SafeHarborCodes returns the Line 15/16 table in code order.
func SafeHarborCodes() []CodeDescription {
	return append([]CodeDescription(nil), safeHarborCodes...)
}

// Describe returns the description of a Line 14/15/16 code.
func Describe(code string) (string, bool) {
	for _, table := range [][]CodeDescription{offerCodes, safeHarborCodes} {
		for _, row := range table {
			if row.Code == code {
				return row.Description, true
			}
		}
	}
	return "", false
}
