package factory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/aca-engine/aca"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// EmployeeJSON is the document form of aca.EmployeeRecord.
type EmployeeJSON struct {
	EmployeeID      string             `json:"employee_id"`
	ClientID        string             `json:"client_id,omitempty"`
	FirstName       string             `json:"first_name,omitempty"`
	LastName        string             `json:"last_name,omitempty"`
	HireDate        string             `json:"hire_date,omitempty"`
	TerminationDate string             `json:"termination_date,omitempty"`
	EmploymentType  string             `json:"employment_type,omitempty"`
	HoursWorked     []MonthlyHoursJSON `json:"hours_worked,omitempty"`
	AnnualSalary    *decimal.Decimal   `json:"annual_salary,omitempty"`
	HourlyRate      *decimal.Decimal   `json:"hourly_rate,omitempty"`
}

// MonthlyHoursJSON is one look-back observation.
type MonthlyHoursJSON struct {
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Hours  decimal.Decimal `json:"hours"`
	Source string          `json:"source,omitempty"`
}

// CoverageJSON is the document form of aca.CoverageData.
type CoverageJSON struct {
	OfferMade              bool            `json:"offer_made"`
	Enrolled               bool            `json:"enrolled"`
	CoversDependents       bool            `json:"covers_dependents"`
	CoversSpouse           bool            `json:"covers_spouse"`
	EmployeeMonthlyPremium decimal.Decimal `json:"employee_monthly_premium"`
}

// BatchJSON is a full assessment request: employees plus coverage keyed by
// employee id. TaxYear and AsOf are optional; callers supply defaults.
type BatchJSON struct {
	ClientID  string                  `json:"client_id,omitempty"`
	TaxYear   int                     `json:"tax_year,omitempty"`
	AsOf      string                  `json:"as_of,omitempty"`
	Employees []EmployeeJSON          `json:"employees"`
	Coverage  map[string]CoverageJSON `json:"coverage,omitempty"`
}

// BatchDocument is a decoded BatchJSON.
type BatchDocument struct {
	TaxYear int // 0 when the document names none
	Input   aca.BatchInput
}

const batchSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["employees"],
  "additionalProperties": false,
  "properties": {
    "client_id": {"type": "string"},
    "tax_year": {"type": "integer", "minimum": 2015, "maximum": 2100},
    "as_of": {"$ref": "#/$defs/date"},
    "employees": {"type": "array", "items": {"$ref": "#/$defs/employee"}},
    "coverage": {"type": "object", "additionalProperties": {"$ref": "#/$defs/coverage"}}
  },
  "$defs": {
    "decimal": ` + decimalDef + `,
    "date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "employee": {
      "type": "object",
      "properties": {
        "employee_id": {"type": "string"},
        "client_id": {"type": "string"},
        "first_name": {"type": "string"},
        "last_name": {"type": "string"},
        "hire_date": {"type": "string"},
        "termination_date": {"type": "string"},
        "employment_type": {"type": "string"},
        "hours_worked": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["year", "month", "hours"],
            "properties": {
              "year": {"type": "integer"},
              "month": {"type": "integer", "minimum": 1, "maximum": 12},
              "hours": {"$ref": "#/$defs/decimal"},
              "source": {"type": "string"}
            }
          }
        },
        "annual_salary": {"$ref": "#/$defs/decimal"},
        "hourly_rate": {"$ref": "#/$defs/decimal"}
      }
    },
    "coverage": {
      "type": "object",
      "properties": {
        "offer_made": {"type": "boolean"},
        "enrolled": {"type": "boolean"},
        "covers_dependents": {"type": "boolean"},
        "covers_spouse": {"type": "boolean"},
        "employee_monthly_premium": {"$ref": "#/$defs/decimal"}
      }
    }
  }
}`

var (
	batchSchema    = mustCompile("batch", batchSchemaJSON)
	employeeSchema = mustCompileAt("batch", batchSchemaJSON, "/$defs/employee")
	coverageSchema = mustCompileAt("batch", batchSchemaJSON, "/$defs/coverage")
)

// =============================================================================
// PARSING
// =============================================================================

// ParseBatch decodes and validates a batch document. Missing employee
// client ids inherit the batch client id.
func ParseBatch(data []byte, format Format) (BatchDocument, error) {
	raw, err := normalize(data, format)
	if err != nil {
		return BatchDocument{}, err
	}
	var bj BatchJSON
	if err := decode(raw, batchSchema, &bj); err != nil {
		return BatchDocument{}, fmt.Errorf("batch: %w", err)
	}
	return bj.ToDocument()
}

// LoadBatchFile reads a batch document from disk.
func LoadBatchFile(path string) (BatchDocument, error) {
	data, format, err := readFile(path)
	if err != nil {
		return BatchDocument{}, err
	}
	doc, err := ParseBatch(data, format)
	if err != nil {
		return BatchDocument{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ToDocument converts a decoded batch into engine input.
func (bj BatchJSON) ToDocument() (BatchDocument, error) {
	in := aca.BatchInput{
		ClientID:  bj.ClientID,
		Employees: make([]aca.EmployeeRecord, 0, len(bj.Employees)),
		Coverage:  make(map[string]aca.CoverageData, len(bj.Coverage)),
	}
	if bj.AsOf != "" {
		asOf, err := ParseDate(bj.AsOf)
		if err != nil {
			return BatchDocument{}, err
		}
		in.AsOf = asOf
	}
	for _, ej := range bj.Employees {
		rec := ej.ToRecord()
		if rec.ClientID == "" {
			rec.ClientID = bj.ClientID
		}
		in.Employees = append(in.Employees, rec)
	}
	for id, cj := range bj.Coverage {
		in.Coverage[id] = cj.ToCoverage()
	}
	return BatchDocument{TaxYear: bj.TaxYear, Input: in}, nil
}

// ParseEmployee decodes and validates a single employee document.
func ParseEmployee(data []byte) (aca.EmployeeRecord, error) {
	var ej EmployeeJSON
	if err := decode(data, employeeSchema, &ej); err != nil {
		return aca.EmployeeRecord{}, fmt.Errorf("employee: %w", err)
	}
	return ej.ToRecord(), nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(aca.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: expected YYYY-MM-DD", ErrInvalidDocument, s)
	}
	return t, nil
}

// =============================================================================
// CONVERSION
// =============================================================================

// ToRecord converts the document form. No validation happens here; the
// engine validates records at assessment time.
func (ej EmployeeJSON) ToRecord() aca.EmployeeRecord {
	rec := aca.EmployeeRecord{
		EmployeeID:      ej.EmployeeID,
		ClientID:        ej.ClientID,
		FirstName:       ej.FirstName,
		LastName:        ej.LastName,
		HireDate:        ej.HireDate,
		TerminationDate: ej.TerminationDate,
		EmploymentType:  ej.EmploymentType,
		AnnualSalary:    ej.AnnualSalary,
		HourlyRate:      ej.HourlyRate,
	}
	for _, h := range ej.HoursWorked {
		rec.HoursWorked = append(rec.HoursWorked, aca.MonthlyHours{
			Year:   h.Year,
			Month:  time.Month(h.Month),
			Hours:  h.Hours,
			Source: h.Source,
		})
	}
	return rec
}

// EmployeeToJSON renders a record as a document.
func EmployeeToJSON(rec aca.EmployeeRecord) EmployeeJSON {
	ej := EmployeeJSON{
		EmployeeID:      rec.EmployeeID,
		ClientID:        rec.ClientID,
		FirstName:       rec.FirstName,
		LastName:        rec.LastName,
		HireDate:        rec.HireDate,
		TerminationDate: rec.TerminationDate,
		EmploymentType:  rec.EmploymentType,
		AnnualSalary:    rec.AnnualSalary,
		HourlyRate:      rec.HourlyRate,
	}
	for _, h := range rec.HoursWorked {
		ej.HoursWorked = append(ej.HoursWorked, MonthlyHoursJSON{
			Year:   h.Year,
			Month:  int(h.Month),
			Hours:  h.Hours,
			Source: h.Source,
		})
	}
	return ej
}

// ToCoverage converts the document form.
func (cj CoverageJSON) ToCoverage() aca.CoverageData {
	return aca.CoverageData{
		OfferMade:              cj.OfferMade,
		Enrolled:               cj.Enrolled,
		CoversDependents:       cj.CoversDependents,
		CoversSpouse:           cj.CoversSpouse,
		EmployeeMonthlyPremium: cj.EmployeeMonthlyPremium,
	}
}

// CoverageToJSON renders coverage as a document.
func CoverageToJSON(c aca.CoverageData) CoverageJSON {
	return CoverageJSON{
		OfferMade:              c.OfferMade,
		Enrolled:               c.Enrolled,
		CoversDependents:       c.CoversDependents,
		CoversSpouse:           c.CoversSpouse,
		EmployeeMonthlyPremium: c.EmployeeMonthlyPremium,
	}
}

// ParseCoverage decodes and validates a single coverage document.
func ParseCoverage(data []byte) (aca.CoverageData, error) {
	var cj CoverageJSON
	if err := decode(data, coverageSchema, &cj); err != nil {
		return aca.CoverageData{}, fmt.Errorf("coverage: %w", err)
	}
	return cj.ToCoverage(), nil
}
