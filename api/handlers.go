/*
handlers.go - HTTP API handlers for the ACA determination engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the factory (decoding), the store
  (persisted inputs) and the aca engine (assessment).

ENDPOINTS:
  Assessments:
    POST   /api/assessments                 Assess an inline batch document
    POST   /api/clients/{client}/assess     Assess stored employees of a client

  Employees:
    GET    /api/employees                   List employees (?client_id=)
    POST   /api/employees                   Create or replace an employee
    GET    /api/employees/{id}              Employee with coverage
    PUT    /api/employees/{id}/coverage     Set coverage snapshot

  Reference data:
    GET    /api/tax-years                   Registered tax-year tables
    POST   /api/tax-years                   Register a custom table
    GET    /api/tax-years/{year}            One table
    GET    /api/codes                       Form 1095-C code tables

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    GET    /api/scenarios/current           Currently loaded scenario
    POST   /api/scenarios/load              Load a demo scenario
    POST   /api/scenarios/reset             Clear stored employees

REQUEST FLOW:
  1. Parse HTTP request
  2. Decode and validate via factory
  3. Build an engine for the tax year and run it
  4. Serialize response

AS-OF DATE:
  Every assessment needs an explicit as-of date. Requests may pass one
  (as_of in the body, or ?as_of= for stored clients); when absent, the
  handler's clock supplies today's date.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid document, invalid record, invalid tax-year table
  - 404: Unknown employee, client, scenario or tax year
  - 409: Tax year already registered
  - 503: Request cancelled
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/warp/aca-engine/aca"
	"github.com/warp/aca-engine/factory"
	"github.com/warp/aca-engine/metrics"
	"github.com/warp/aca-engine/store/sqlite"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Config holds handler settings.
type Config struct {
	DefaultTaxYear int
	Workers        int
	ChunkSize      int
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Registry *aca.Registry

	defaultYear int
	workers     int
	chunkSize   int
	logger      zerolog.Logger
	metrics     *metrics.Metrics

	// now is the clock used when a request names no as-of date.
	now func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store and registry.
func NewHandler(store *sqlite.Store, registry *aca.Registry, cfg Config) *Handler {
	year := cfg.DefaultTaxYear
	if year == 0 {
		year = aca.DefaultTaxYear
	}
	return &Handler{
		Store:       store,
		Registry:    registry,
		defaultYear: year,
		workers:     cfg.Workers,
		chunkSize:   cfg.ChunkSize,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		now:         time.Now,
	}
}

// LoadTaxYears registers every stored custom table.
func (h *Handler) LoadTaxYears(ctx context.Context) error {
	years, err := h.Store.ListTaxYears(ctx)
	if err != nil {
		return err
	}
	for _, c := range years {
		if err := h.Registry.Register(c); err != nil {
			return fmt.Errorf("stored tax year %d: %w", c.TaxYear, err)
		}
		h.logger.Info().Int("tax_year", c.TaxYear).Msg("registered stored tax year")
	}
	return nil
}

func (h *Handler) engine(year int) (*aca.Engine, error) {
	c, err := h.Registry.ForYear(year)
	if err != nil {
		return nil, err
	}
	return aca.NewEngine(c,
		aca.WithLogger(h.logger),
		aca.WithWorkers(h.workers),
		aca.WithChunkSize(h.chunkSize),
		aca.WithRecorder(h.metrics),
	), nil
}

// =============================================================================
// ASSESSMENT ENDPOINTS
// =============================================================================

// AssessBatch handles POST /api/assessments
func (h *Handler) AssessBatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	doc, err := factory.ParseBatch(body, factory.FormatJSON)
	if err != nil {
		writeError(w, statusFor(err), "Invalid assessment request", err)
		return
	}

	year := doc.TaxYear
	if year == 0 {
		year = h.defaultYear
	}
	in := doc.Input
	if in.AsOf.IsZero() {
		in.AsOf = h.now()
	}
	h.run(w, r, year, in)
}

// AssessClient handles POST /api/clients/{client}/assess
func (h *Handler) AssessClient(w http.ResponseWriter, r *http.Request) {
	client := chi.URLParam(r, "client")

	year := h.defaultYear
	if v := r.URL.Query().Get("tax_year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tax_year", err)
			return
		}
		year = y
	}
	asOf := h.now()
	if v := r.URL.Query().Get("as_of"); v != "" {
		t, err := factory.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of", err)
			return
		}
		asOf = t
	}

	in, err := h.Store.LoadBatch(r.Context(), client)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load employees", err)
		return
	}
	if len(in.Employees) == 0 {
		writeError(w, http.StatusNotFound, "No employees stored for client", fmt.Errorf("client %q", client))
		return
	}
	in.AsOf = asOf
	h.run(w, r, year, in)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, year int, in aca.BatchInput) {
	engine, err := h.engine(year)
	if err != nil {
		writeError(w, statusFor(err), "Tax year not available", fmt.Errorf("%d: %w", year, err))
		return
	}

	runID := uuid.NewString()
	started := time.Now()
	result, err := engine.AssessBatch(r.Context(), in)
	if err != nil {
		writeError(w, statusFor(err), "Assessment failed", err)
		return
	}
	elapsed := time.Since(started)

	h.logger.Info().
		Str("run_id", runID).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("client_id", result.ClientID).
		Int("tax_year", result.TaxYear).
		Int("records", result.TotalRecords).
		Dur("elapsed", elapsed).
		Msg("assessment run served")

	writeJSON(w, http.StatusOK, AssessmentResponse{
		RunID:      runID,
		DurationMS: elapsed.Milliseconds(),
		Result:     NewResultDTO(result),
	})
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

// ListEmployees handles GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := h.Store.LoadBatch(ctx, r.URL.Query().Get("client_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, 0, len(in.Employees))
	for _, rec := range in.Employees {
		var cov *aca.CoverageData
		if c, ok := in.Coverage[rec.EmployeeID]; ok {
			cov = &c
		}
		dtos = append(dtos, toEmployeeDTO(rec, cov))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee handles POST /api/employees. A missing employee_id is
// assigned a UUID.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	rec, err := factory.ParseEmployee(body)
	if err != nil {
		writeError(w, statusFor(err), "Invalid employee", err)
		return
	}
	if rec.EmployeeID == "" {
		rec.EmployeeID = uuid.NewString()
	}
	if err := rec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee", err)
		return
	}

	if err := h.Store.SaveEmployee(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(rec, nil))
}

// GetEmployee handles GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	rec, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	cov, err := h.Store.GetCoverage(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get coverage", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*rec, cov))
}

// PutCoverage handles PUT /api/employees/{id}/coverage
func (h *Handler) PutCoverage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	rec, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	cov, err := factory.ParseCoverage(body)
	if err != nil {
		writeError(w, statusFor(err), "Invalid coverage", err)
		return
	}
	if err := cov.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid coverage", err)
		return
	}

	if err := h.Store.SaveCoverage(ctx, id, cov); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save coverage", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*rec, &cov))
}

// =============================================================================
// REFERENCE DATA ENDPOINTS
// =============================================================================

// ListTaxYears handles GET /api/tax-years
func (h *Handler) ListTaxYears(w http.ResponseWriter, r *http.Request) {
	resp := TaxYearsResponse{DefaultTaxYear: h.defaultYear, TaxYears: []factory.TaxYearJSON{}}
	for _, y := range h.Registry.Years() {
		c, err := h.Registry.ForYear(y)
		if err != nil {
			continue
		}
		resp.TaxYears = append(resp.TaxYears, factory.TaxYearToJSON(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTaxYear handles GET /api/tax-years/{year}
func (h *Handler) GetTaxYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tax year", err)
		return
	}
	c, err := h.Registry.ForYear(year)
	if err != nil {
		writeError(w, statusFor(err), "Tax year not found", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.TaxYearToJSON(c))
}

// CreateTaxYear handles POST /api/tax-years. An existing year is only
// replaced with ?replace=true.
func (h *Handler) CreateTaxYear(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	c, err := factory.ParseTaxYear(body, factory.FormatJSON)
	if err != nil {
		writeError(w, statusFor(err), "Invalid tax year table", err)
		return
	}

	if _, err := h.Registry.ForYear(c.TaxYear); err == nil && r.URL.Query().Get("replace") != "true" {
		writeError(w, http.StatusConflict, "Tax year already registered",
			fmt.Errorf("tax year %d exists; use ?replace=true", c.TaxYear))
		return
	}

	if err := h.Store.SaveTaxYear(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save tax year", err)
		return
	}
	if err := h.Registry.Register(c); err != nil {
		writeError(w, statusFor(err), "Invalid tax year table", err)
		return
	}
	h.logger.Info().Int("tax_year", c.TaxYear).Msg("tax year registered")
	writeJSON(w, http.StatusCreated, factory.TaxYearToJSON(c))
}

// ListCodes handles GET /api/codes
func (h *Handler) ListCodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CodesResponse{
		Line14: toCodeDTOs(aca.OfferCodes()),
		Line15: toCodeDTOs(aca.SafeHarborCodes()),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// statusFor maps engine and factory errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, aca.ErrUnknownTaxYear):
		return http.StatusNotFound
	case errors.Is(err, factory.ErrInvalidDocument),
		errors.Is(err, aca.ErrInvalidTaxYear),
		errors.Is(err, aca.ErrMissingAsOf),
		aca.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
