/*
Package sqlite provides SQLite persistence for engine inputs.

PURPOSE:
  Stores the inputs an assessment needs between requests: employee records,
  coverage snapshots and custom tax-year tables. Assessments themselves are
  never stored; they are recomputed from inputs on every request.

KEY TABLES:
  employees: Canonical employee records; hours history as JSON
  coverage:  One offer/enrollment snapshot per employee
  tax_years: Tax-year constant tables as JSON documents

DECIMALS:
  Money and hours are stored as TEXT in decimal notation and parsed back
  exactly; SQLite REAL would lose precision.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL so readers
  do not block the single writer.

USAGE:
  store, err := sqlite.New("./aca.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  input, err := store.LoadBatch(ctx, "acme")

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - factory/taxyear.go: Tax-year document encoding used for tax_years
  - api/handlers.go: HTTP handlers on top of this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/aca-engine/aca"
	"github.com/warp/aca-engine/factory"
)

// Store persists engine inputs in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL DEFAULT '',
		first_name TEXT,
		last_name TEXT,
		hire_date TEXT,
		termination_date TEXT,
		employment_type TEXT,
		annual_salary TEXT,
		hourly_rate TEXT,
		hours_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_client
		ON employees(client_id, id);

	CREATE TABLE IF NOT EXISTS coverage (
		employee_id TEXT PRIMARY KEY REFERENCES employees(id) ON DELETE CASCADE,
		offer_made INTEGER NOT NULL,
		enrolled INTEGER NOT NULL,
		covers_dependents INTEGER NOT NULL,
		covers_spouse INTEGER NOT NULL,
		employee_monthly_premium TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tax_years (
		tax_year INTEGER PRIMARY KEY,
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee inserts or replaces an employee record.
func (s *Store) SaveEmployee(ctx context.Context, rec aca.EmployeeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hours := factory.EmployeeToJSON(rec).HoursWorked
	if hours == nil {
		hours = []factory.MonthlyHoursJSON{}
	}
	hoursJSON, err := json.Marshal(hours)
	if err != nil {
		return fmt.Errorf("encode hours: %w", err)
	}

	query := `
		INSERT INTO employees (id, client_id, first_name, last_name, hire_date, termination_date,
			employment_type, annual_salary, hourly_rate, hours_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			hire_date = excluded.hire_date,
			termination_date = excluded.termination_date,
			employment_type = excluded.employment_type,
			annual_salary = excluded.annual_salary,
			hourly_rate = excluded.hourly_rate,
			hours_json = excluded.hours_json,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query,
		rec.EmployeeID, rec.ClientID,
		nullString(rec.FirstName), nullString(rec.LastName),
		nullString(rec.HireDate), nullString(rec.TerminationDate),
		nullString(rec.EmploymentType),
		nullDecimal(rec.AnnualSalary), nullDecimal(rec.HourlyRate),
		string(hoursJSON), now, now,
	)
	return err
}

const employeeColumns = `id, client_id, first_name, last_name, hire_date, termination_date,
	employment_type, annual_salary, hourly_rate, hours_json`

// GetEmployee retrieves an employee by ID. Returns nil, nil when absent.
func (s *Store) GetEmployee(ctx context.Context, id string) (*aca.EmployeeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	rec, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListEmployees returns employees ordered by id; an empty clientID lists all.
func (s *Store) ListEmployees(ctx context.Context, clientID string) ([]aca.EmployeeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEmployees(ctx, clientID)
}

func (s *Store) listEmployees(ctx context.Context, clientID string) ([]aca.EmployeeRecord, error) {
	query := "SELECT " + employeeColumns + " FROM employees"
	var args []any
	if clientID != "" {
		query += " WHERE client_id = ?"
		args = append(args, clientID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := []aca.EmployeeRecord{}
	for rows.Next() {
		rec, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, rec)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee and its coverage.
func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (aca.EmployeeRecord, error) {
	var rec aca.EmployeeRecord
	var first, last, hire, term, empType, sal, rate sql.NullString
	var hoursJSON string
	if err := row.Scan(&rec.EmployeeID, &rec.ClientID, &first, &last, &hire, &term,
		&empType, &sal, &rate, &hoursJSON); err != nil {
		return aca.EmployeeRecord{}, err
	}
	rec.FirstName = first.String
	rec.LastName = last.String
	rec.HireDate = hire.String
	rec.TerminationDate = term.String
	rec.EmploymentType = empType.String

	var err error
	if rec.AnnualSalary, err = parseNullDecimal(sal); err != nil {
		return aca.EmployeeRecord{}, fmt.Errorf("employee %s: annual_salary: %w", rec.EmployeeID, err)
	}
	if rec.HourlyRate, err = parseNullDecimal(rate); err != nil {
		return aca.EmployeeRecord{}, fmt.Errorf("employee %s: hourly_rate: %w", rec.EmployeeID, err)
	}

	var hours []factory.MonthlyHoursJSON
	if err := json.Unmarshal([]byte(hoursJSON), &hours); err != nil {
		return aca.EmployeeRecord{}, fmt.Errorf("employee %s: hours_json: %w", rec.EmployeeID, err)
	}
	rec.HoursWorked = factory.EmployeeJSON{HoursWorked: hours}.ToRecord().HoursWorked
	return rec, nil
}

// =============================================================================
// COVERAGE STORE
// =============================================================================

// SaveCoverage inserts or replaces the coverage snapshot of an employee.
// The employee must exist.
func (s *Store) SaveCoverage(ctx context.Context, employeeID string, cov aca.CoverageData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO coverage (employee_id, offer_made, enrolled, covers_dependents, covers_spouse,
			employee_monthly_premium, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			offer_made = excluded.offer_made,
			enrolled = excluded.enrolled,
			covers_dependents = excluded.covers_dependents,
			covers_spouse = excluded.covers_spouse,
			employee_monthly_premium = excluded.employee_monthly_premium,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		employeeID, cov.OfferMade, cov.Enrolled, cov.CoversDependents, cov.CoversSpouse,
		cov.EmployeeMonthlyPremium.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetCoverage retrieves an employee's coverage. Returns nil, nil when absent.
func (s *Store) GetCoverage(ctx context.Context, employeeID string) (*aca.CoverageData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT employee_id, offer_made, enrolled, covers_dependents, covers_spouse, employee_monthly_premium
		 FROM coverage WHERE employee_id = ?`, employeeID)
	_, cov, err := scanCoverage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cov, nil
}

func scanCoverage(row scanner) (string, aca.CoverageData, error) {
	var (
		id      string
		cov     aca.CoverageData
		premium string
	)
	if err := row.Scan(&id, &cov.OfferMade, &cov.Enrolled, &cov.CoversDependents, &cov.CoversSpouse, &premium); err != nil {
		return "", aca.CoverageData{}, err
	}
	p, err := decimal.NewFromString(premium)
	if err != nil {
		return "", aca.CoverageData{}, fmt.Errorf("coverage %s: premium: %w", id, err)
	}
	cov.EmployeeMonthlyPremium = p
	return id, cov, nil
}

// LoadBatch assembles stored employees of a client and their coverage into
// batch input. AsOf is left for the caller.
func (s *Store) LoadBatch(ctx context.Context, clientID string) (aca.BatchInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employees, err := s.listEmployees(ctx, clientID)
	if err != nil {
		return aca.BatchInput{}, err
	}

	query := `SELECT c.employee_id, c.offer_made, c.enrolled, c.covers_dependents, c.covers_spouse, c.employee_monthly_premium
		FROM coverage c JOIN employees e ON e.id = c.employee_id`
	var args []any
	if clientID != "" {
		query += " WHERE e.client_id = ?"
		args = append(args, clientID)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return aca.BatchInput{}, err
	}
	defer rows.Close()

	coverage := make(map[string]aca.CoverageData)
	for rows.Next() {
		id, cov, err := scanCoverage(rows)
		if err != nil {
			return aca.BatchInput{}, err
		}
		coverage[id] = cov
	}
	if err := rows.Err(); err != nil {
		return aca.BatchInput{}, err
	}

	return aca.BatchInput{ClientID: clientID, Employees: employees, Coverage: coverage}, nil
}

// =============================================================================
// TAX YEAR STORE
// =============================================================================

// SaveTaxYear stores a tax-year table, replacing any existing one.
func (s *Store) SaveTaxYear(ctx context.Context, c aca.YearConstants) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := factory.MarshalTaxYear(c)
	if err != nil {
		return fmt.Errorf("encode tax year: %w", err)
	}
	query := `
		INSERT INTO tax_years (tax_year, config_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(tax_year) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, c.TaxYear, string(configJSON), time.Now().UTC().Format(time.RFC3339))
	return err
}

// ListTaxYears returns every stored table in year order.
func (s *Store) ListTaxYears(ctx context.Context) ([]aca.YearConstants, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT tax_year, config_json FROM tax_years ORDER BY tax_year")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var years []aca.YearConstants
	for rows.Next() {
		var (
			year       int
			configJSON string
		)
		if err := rows.Scan(&year, &configJSON); err != nil {
			return nil, err
		}
		c, err := factory.ParseTaxYear([]byte(configJSON), factory.FormatJSON)
		if err != nil {
			return nil, fmt.Errorf("stored tax year %d: %w", year, err)
		}
		years = append(years, c)
	}
	return years, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears employees and coverage (for testing/demo). Stored tax-year
// tables are kept.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"coverage", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
