/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built employers that populate the database with realistic
	employees and coverage. Together they reach every path of the
	determination pipeline: each FTE rule, each Line 14 code, both penalty
	sections and the ALE boundary.

AVAILABLE SCENARIOS:

	small-retailer:   One employee per outcome (compliant, 4980H(a), 4980H(b),
	                  variable-hour, part-time, pending review)
	ale-boundary:     45 full-time plus 12 variable-hour employees, 51 total
	new-hires:        Recent, long-tenured and malformed hire dates
	family-coverage:  Spouse and dependent combinations for 1E/1F/1J/1K

HOW SCENARIOS WORK:
 1. Reset database (employees and coverage)
 2. Build employees and coverage for one client
 3. Save through the store

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "small-retailer"}

	POST /api/clients/corner-market/assess

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description, client
 2. Create builder function: xxxScenario(h) scenarioData
 3. Add case to scenarioFor

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: AssessClient handler
  - store/sqlite/sqlite.go: Employee and coverage persistence
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/aca-engine/aca"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-retailer",
		Name:        "Small Retailer",
		Description: "One employee per outcome: compliant, no offer, unaffordable, variable-hour, part-time, undetermined",
		ClientID:    "corner-market",
	},
	{
		ID:          "ale-boundary",
		Name:        "ALE Boundary",
		Description: "45 full-time employees plus 12 variable-hour employees at 60 hours/month (51 with equivalents)",
		ClientID:    "midsize-logistics",
	},
	{
		ID:          "new-hires",
		Name:        "New Hires",
		Description: "Recent hires within the new-hire window, a long-tenured employee and a malformed hire date",
		ClientID:    "fresh-start",
	},
	{
		ID:          "family-coverage",
		Name:        "Family Coverage",
		Description: "Enrollment with and without spouse and dependents, plus a declined offer",
		ClientID:    "harbor-family",
	},
}

// scenarioData is what a scenario writes to the store.
type scenarioData struct {
	employees []aca.EmployeeRecord
	coverage  map[string]aca.CoverageData
}

func (d *scenarioData) add(rec aca.EmployeeRecord, cov *aca.CoverageData) {
	d.employees = append(d.employees, rec)
	if cov != nil {
		if d.coverage == nil {
			d.coverage = make(map[string]aca.CoverageData)
		}
		d.coverage[rec.EmployeeID] = *cov
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	data, ok := h.scenarioFor(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := h.saveScenario(ctx, data); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.logger.Info().
		Str("scenario", req.ScenarioID).
		Int("employees", len(data.employees)).
		Msg("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "loaded",
		"scenario":  req.ScenarioID,
		"employees": len(data.employees),
	})
}

// ResetDatabase handles POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) scenarioFor(id string) (scenarioData, bool) {
	switch id {
	case "small-retailer":
		return h.smallRetailerScenario(), true
	case "ale-boundary":
		return h.aleBoundaryScenario(), true
	case "new-hires":
		return h.newHiresScenario(), true
	case "family-coverage":
		return h.familyCoverageScenario(), true
	}
	return scenarioData{}, false
}

func (h *Handler) saveScenario(ctx context.Context, data scenarioData) error {
	for _, rec := range data.employees {
		if err := h.Store.SaveEmployee(ctx, rec); err != nil {
			return fmt.Errorf("employee %s: %w", rec.EmployeeID, err)
		}
	}
	for id, cov := range data.coverage {
		if err := h.Store.SaveCoverage(ctx, id, cov); err != nil {
			return fmt.Errorf("coverage %s: %w", id, err)
		}
	}
	return nil
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

// smallRetailerScenario: one employee per outcome.
func (h *Handler) smallRetailerScenario() scenarioData {
	const client = "corner-market"
	year := h.defaultYear
	var d scenarioData

	// Salaried, enrolled self-only at $150 -> W-2 safe harbor, compliant (1F/2C)
	d.add(employee("sr-001", client, "Maria", "Lopez", "2019-04-01", "full_time", withSalary("52000")),
		enrolled("150", false, false))

	// Full-time, no offer -> 1H, 4980H(a)
	d.add(employee("sr-002", client, "James", "Carter", "2021-06-14", "full_time", withRate("15.00")),
		&aca.CoverageData{OfferMade: false})

	// 140h average at $12.50/hr, declined a $200 offer -> rate of pay, 4980H(b)
	d.add(employee("sr-003", client, "Priya", "Shah", "2022-02-01", "", withRate("12.50"),
		withHours(year, time.December, 12, "140")),
		&aca.CoverageData{OfferMade: true, EmployeeMonthlyPremium: dec("200")})

	// 95h average -> variable-hour, low confidence
	d.add(employee("sr-004", client, "Tom", "Becker", "2023-09-18", "", withRate("17.25"),
		withHours(year, time.December, 12, "95")),
		enrolled("80", false, false))

	// Classified part-time -> 1G/2B
	d.add(employee("sr-005", client, "Ana", "Silva", "2024-03-04", "part_time", withRate("14.00")), nil)

	// Nothing known -> pending review
	d.add(employee("sr-006", client, "Lee", "Wong", "2024-11-11", ""), nil)

	return d
}

// aleBoundaryScenario: 45 + floor(12*60/120) = 51 against a threshold of 50.
func (h *Handler) aleBoundaryScenario() scenarioData {
	const client = "midsize-logistics"
	year := h.defaultYear
	var d scenarioData

	for i := 1; i <= 45; i++ {
		d.add(employee(fmt.Sprintf("ml-%03d", i), client, "Driver", fmt.Sprintf("%03d", i),
			"2020-01-06", "full_time", withSalary("48000")),
			enrolled("120", false, false))
	}
	for i := 46; i <= 57; i++ {
		d.add(employee(fmt.Sprintf("ml-%03d", i), client, "Loader", fmt.Sprintf("%03d", i),
			"2022-05-02", "", withRate("16.00"), withHours(year, time.December, 12, "60")), nil)
	}
	return d
}

// newHiresScenario uses hire dates relative to the handler clock.
func (h *Handler) newHiresScenario() scenarioData {
	const client = "fresh-start"
	today := h.now().UTC()
	ago := func(days int) string { return aca.FormatDate(today.AddDate(0, 0, -days)) }
	var d scenarioData

	// Hired a month ago, enrolled -> new-hire 2D recommendation
	d.add(employee("nh-001", client, "Jordan", "Reyes", ago(30), "full_time", withRate("22.00")),
		enrolled("95", false, false))

	// Hired well over a year ago
	d.add(employee("nh-002", client, "Casey", "Morgan", ago(400), "full_time", withRate("22.00")),
		enrolled("95", false, false))

	// Malformed hire date -> new-hire flag stays false
	d.add(employee("nh-003", client, "Riley", "Chen", "03/15/2026", "full_time", withRate("22.00")),
		enrolled("95", false, false))

	// Three months of hours, no coverage data -> look-back full-time, 1A default
	last := today.AddDate(0, -1, 0)
	d.add(employee("nh-004", client, "Sam", "Patel", ago(95), "", withRate("19.50"),
		withHours(last.Year(), last.Month(), 3, "150")), nil)

	return d
}

// familyCoverageScenario: every enrolled Line 14 variant plus a declined offer.
func (h *Handler) familyCoverageScenario() scenarioData {
	const client = "harbor-family"
	var d scenarioData

	d.add(employee("hf-001", client, "Elena", "Novak", "2018-08-20", "full_time", withSalary("61000")),
		enrolled("210", true, true)) // 1J
	d.add(employee("hf-002", client, "Marcus", "Hill", "2019-01-07", "full_time", withSalary("58000")),
		enrolled("180", true, false)) // 1E
	d.add(employee("hf-003", client, "Grace", "Kim", "2020-10-12", "full_time", withSalary("57000")),
		enrolled("170", false, true)) // 1K
	d.add(employee("hf-004", client, "Owen", "Price", "2021-03-29", "full_time", withSalary("50000")),
		enrolled("110", false, false)) // 1F
	d.add(employee("hf-005", client, "Nina", "Brooks", "2022-07-05", "full_time", withSalary("54000")),
		&aca.CoverageData{OfferMade: true, EmployeeMonthlyPremium: dec("140")}) // declined, 1E

	return d
}

// =============================================================================
// BUILDER HELPERS
// =============================================================================

type employeeOption func(*aca.EmployeeRecord)

func employee(id, client, first, last, hireDate, employmentType string, opts ...employeeOption) aca.EmployeeRecord {
	rec := aca.EmployeeRecord{
		EmployeeID:     id,
		ClientID:       client,
		FirstName:      first,
		LastName:       last,
		HireDate:       hireDate,
		EmploymentType: employmentType,
	}
	for _, o := range opts {
		o(&rec)
	}
	return rec
}

func withSalary(s string) employeeOption {
	return func(rec *aca.EmployeeRecord) {
		v := dec(s)
		rec.AnnualSalary = &v
	}
}

func withRate(s string) employeeOption {
	return func(rec *aca.EmployeeRecord) {
		v := dec(s)
		rec.HourlyRate = &v
	}
}

// withHours adds consecutive payroll months ending at (year, last).
func withHours(year int, last time.Month, months int, hours string) employeeOption {
	return func(rec *aca.EmployeeRecord) {
		end := time.Date(year, last, 1, 0, 0, 0, 0, time.UTC)
		for i := months - 1; i >= 0; i-- {
			m := end.AddDate(0, -i, 0)
			rec.HoursWorked = append(rec.HoursWorked, aca.MonthlyHours{
				Year:   m.Year(),
				Month:  m.Month(),
				Hours:  dec(hours),
				Source: "payroll",
			})
		}
	}
}

func enrolled(premium string, dependents, spouse bool) *aca.CoverageData {
	return &aca.CoverageData{
		OfferMade:              true,
		Enrolled:               true,
		CoversDependents:       dependents,
		CoversSpouse:           spouse,
		EmployeeMonthlyPremium: dec(premium),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
