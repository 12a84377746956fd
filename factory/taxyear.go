package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/aca-engine/aca"
)

// =============================================================================
// TAX YEAR DOCUMENT
// =============================================================================

// TaxYearJSON is the document form of aca.YearConstants. Only the year,
// threshold and penalty amounts are required; the hour thresholds and
// counts default to the statutory values.
//
//	tax_year: 2027
//	affordability_threshold: "0.0996"
//	penalty_4980h_a: "3340"
//	penalty_4980h_b: "5010"
type TaxYearJSON struct {
	TaxYear                int              `json:"tax_year"`
	AffordabilityThreshold decimal.Decimal  `json:"affordability_threshold"`
	FullTimeMonthlyHours   *decimal.Decimal `json:"full_time_monthly_hours,omitempty"`
	PartTimeMonthlyHours   *decimal.Decimal `json:"part_time_monthly_hours,omitempty"`
	RateOfPayMonthlyHours  *decimal.Decimal `json:"rate_of_pay_monthly_hours,omitempty"`
	FTEHoursDivisor        *decimal.Decimal `json:"fte_hours_divisor,omitempty"`
	ALEThreshold           *int             `json:"ale_threshold,omitempty"`
	Penalty4980HA          decimal.Decimal  `json:"penalty_4980h_a"`
	Penalty4980HB          decimal.Decimal  `json:"penalty_4980h_b"`
	NewHireDays            *int             `json:"new_hire_days,omitempty"`
}

var taxYearSchema = mustCompile("tax-year", `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["tax_year", "affordability_threshold", "penalty_4980h_a", "penalty_4980h_b"],
  "additionalProperties": false,
  "properties": {
    "tax_year": {"type": "integer", "minimum": 2015, "maximum": 2100},
    "affordability_threshold": {"$ref": "#/$defs/decimal"},
    "full_time_monthly_hours": {"$ref": "#/$defs/decimal"},
    "part_time_monthly_hours": {"$ref": "#/$defs/decimal"},
    "rate_of_pay_monthly_hours": {"$ref": "#/$defs/decimal"},
    "fte_hours_divisor": {"$ref": "#/$defs/decimal"},
    "ale_threshold": {"type": "integer", "minimum": 1},
    "penalty_4980h_a": {"$ref": "#/$defs/decimal"},
    "penalty_4980h_b": {"$ref": "#/$defs/decimal"},
    "new_hire_days": {"type": "integer", "minimum": 1}
  },
  "$defs": {
    "decimal": ` + decimalDef + `
  }
}`)

// Statutory defaults for optional fields.
var (
	defaultFullTimeHours  = decimal.NewFromInt(130)
	defaultPartTimeHours  = decimal.NewFromInt(60)
	defaultRateOfPayHours = decimal.NewFromInt(130)
	defaultFTEDivisor     = decimal.NewFromInt(120)
)

const (
	defaultALEThreshold = 50
	defaultNewHireDays  = 365
)

// ParseTaxYear decodes and validates a tax-year document.
func ParseTaxYear(data []byte, format Format) (aca.YearConstants, error) {
	raw, err := normalize(data, format)
	if err != nil {
		return aca.YearConstants{}, err
	}
	var tj TaxYearJSON
	if err := decode(raw, taxYearSchema, &tj); err != nil {
		return aca.YearConstants{}, fmt.Errorf("tax year: %w", err)
	}
	return tj.ToConstants()
}

// LoadTaxYearFile reads a tax-year document from disk.
func LoadTaxYearFile(path string) (aca.YearConstants, error) {
	data, format, err := readFile(path)
	if err != nil {
		return aca.YearConstants{}, err
	}
	c, err := ParseTaxYear(data, format)
	if err != nil {
		return aca.YearConstants{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ToConstants fills defaults and runs the table validation.
func (tj TaxYearJSON) ToConstants() (aca.YearConstants, error) {
	c := aca.YearConstants{
		TaxYear:                tj.TaxYear,
		AffordabilityThreshold: tj.AffordabilityThreshold,
		FullTimeMonthlyHours:   decimalOr(tj.FullTimeMonthlyHours, defaultFullTimeHours),
		PartTimeMonthlyHours:   decimalOr(tj.PartTimeMonthlyHours, defaultPartTimeHours),
		RateOfPayMonthlyHours:  decimalOr(tj.RateOfPayMonthlyHours, defaultRateOfPayHours),
		FTEHoursDivisor:        decimalOr(tj.FTEHoursDivisor, defaultFTEDivisor),
		ALEThreshold:           intOr(tj.ALEThreshold, defaultALEThreshold),
		Penalty4980HA:          tj.Penalty4980HA,
		Penalty4980HB:          tj.Penalty4980HB,
		NewHireDays:            intOr(tj.NewHireDays, defaultNewHireDays),
	}
	if err := c.Validate(); err != nil {
		return aca.YearConstants{}, err
	}
	return c, nil
}

// TaxYearToJSON renders constants as a fully populated document.
func TaxYearToJSON(c aca.YearConstants) TaxYearJSON {
	ft, pt, rop, div := c.FullTimeMonthlyHours, c.PartTimeMonthlyHours, c.RateOfPayMonthlyHours, c.FTEHoursDivisor
	ale, nh := c.ALEThreshold, c.NewHireDays
	return TaxYearJSON{
		TaxYear:                c.TaxYear,
		AffordabilityThreshold: c.AffordabilityThreshold,
		FullTimeMonthlyHours:   &ft,
		PartTimeMonthlyHours:   &pt,
		RateOfPayMonthlyHours:  &rop,
		FTEHoursDivisor:        &div,
		ALEThreshold:           &ale,
		Penalty4980HA:          c.Penalty4980HA,
		Penalty4980HB:          c.Penalty4980HB,
		NewHireDays:            &nh,
	}
}

// MarshalTaxYear encodes constants as a JSON document.
func MarshalTaxYear(c aca.YearConstants) ([]byte, error) {
	return json.Marshal(TaxYearToJSON(c))
}

func decimalOr(v *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
