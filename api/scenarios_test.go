/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario stores the expected employees and coverage, and
	that assessing the scenario client produces the outcome it advertises.

These tests double as integration tests of store + engine + DTOs.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, h *Handler, id string) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func assessScenario(t *testing.T, h *Handler, client string) ComplianceResultDTO {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/clients/"+client+"/assess?as_of=2026-12-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[AssessmentResponse](t, rec).Result
}

func byID(res ComplianceResultDTO) map[string]ComplianceAssessmentDTO {
	out := make(map[string]ComplianceAssessmentDTO, len(res.Assessments))
	for _, a := range res.Assessments {
		out[a.EmployeeID] = a
	}
	return out
}

func TestScenario_SmallRetailer(t *testing.T) {
	// GIVEN: The small retailer scenario
	h := setupTestHandler(t)
	loadScenario(t, h, "small-retailer")

	// WHEN: Assessing the client
	res := assessScenario(t, h, "corner-market")

	// THEN: Each employee lands in its advertised bucket
	assert.Equal(t, 6, res.TotalAssessed)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 3, res.Compliant)
	assert.Equal(t, 1, res.NonCompliant)
	assert.Equal(t, 1, res.AtRisk)
	assert.Equal(t, 1, res.PendingReview)
	assert.Equal(t, "7200.00", res.AggregatePenaltyExposure)

	a := byID(res)
	assert.Equal(t, "1F", a["sr-001"].Line14Code)
	assert.Equal(t, "W2", a["sr-001"].Affordability.SafeHarborUsed)
	assert.Equal(t, "1H", a["sr-002"].Line14Code)
	assert.Equal(t, "4980H_A", a["sr-002"].PenaltyRisk.PenaltyType)
	assert.Equal(t, "1E", a["sr-003"].Line14Code)
	assert.Equal(t, "look_back", a["sr-003"].FTE.Method)
	assert.Equal(t, "4980H_B", a["sr-003"].PenaltyRisk.PenaltyType)
	assert.Equal(t, "variable_hour", a["sr-004"].FTE.Status)
	assert.Contains(t, a["sr-004"].Issues, "Low confidence (70%) in FTE determination")
	assert.Equal(t, "1G", a["sr-005"].Line14Code)
	assert.Equal(t, "pending_review", a["sr-006"].Status)
}

func TestScenario_ALEBoundary(t *testing.T) {
	// GIVEN: 45 full-time employees and 12 at 60 hours/month
	h := setupTestHandler(t)
	loadScenario(t, h, "ale-boundary")

	// WHEN: Assessing the client
	res := assessScenario(t, h, "midsize-logistics")

	// THEN: 45 + 6 equivalents crosses the threshold
	assert.Equal(t, 57, res.TotalAssessed)
	assert.Equal(t, 45, res.ALE.FullTimeEmployees)
	assert.Equal(t, 6, res.ALE.FullTimeEquivalents)
	assert.Equal(t, 51, res.ALE.Total)
	assert.True(t, res.ALE.IsALE)
	assert.Equal(t, "none", res.Penalties.RiskLevel)
}

func TestScenario_NewHires(t *testing.T) {
	// GIVEN: Hires dated relative to the handler clock
	h := setupTestHandler(t)
	loadScenario(t, h, "new-hires")

	// WHEN: Assessing as of the same day
	rec := do(t, h, http.MethodPost, "/api/clients/fresh-start/assess", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	a := byID(decodeBody[AssessmentResponse](t, rec).Result)

	// THEN: Only recent, well-formed hire dates are new hires
	assert.True(t, a["nh-001"].FTE.IsNewHire)
	assert.Contains(t, a["nh-001"].Recommendations,
		"Confirm whether a limited non-assessment period (code 2D) applies to this new hire")
	assert.False(t, a["nh-002"].FTE.IsNewHire)
	assert.False(t, a["nh-003"].FTE.IsNewHire)

	nh4 := a["nh-004"]
	assert.True(t, nh4.FTE.IsNewHire)
	assert.Equal(t, "full_time", nh4.FTE.Status)
	assert.Equal(t, 3, nh4.FTE.MonthsObserved)
	assert.Equal(t, 76, nh4.FTE.Confidence)
	assert.Equal(t, "1A", nh4.Line14Code)
	assert.Contains(t, nh4.Issues, "No coverage data supplied - Line 14 defaulted to 1A")
}

func TestScenario_FamilyCoverage(t *testing.T) {
	// GIVEN: Enrollment variants
	h := setupTestHandler(t)
	loadScenario(t, h, "family-coverage")

	// WHEN: Assessing the client
	res := assessScenario(t, h, "harbor-family")

	// THEN: Every Line 14 variant appears; only enrolled employees get 2C
	a := byID(res)
	want := map[string]string{"hf-001": "1J", "hf-002": "1E", "hf-003": "1K", "hf-004": "1F", "hf-005": "1E"}
	for id, code := range want {
		assert.Equal(t, code, a[id].Line14Code, id)
	}
	require.NotNil(t, a["hf-001"].Line15Code)
	assert.Equal(t, "2C", *a["hf-001"].Line15Code)
	assert.Nil(t, a["hf-005"].Line15Code)
	assert.Equal(t, 5, res.Compliant)
}

func TestScenario_LoadReplacesPrevious(t *testing.T) {
	// GIVEN: One scenario loaded over another
	h := setupTestHandler(t)
	loadScenario(t, h, "ale-boundary")
	loadScenario(t, h, "small-retailer")

	// THEN: Only the last scenario's employees remain
	all, err := h.Store.ListEmployees(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 6)

	rec := do(t, h, http.MethodGet, "/api/scenarios/current", "")
	assert.Equal(t, "small-retailer", decodeBody[ScenarioDTO](t, rec).ID)
}

func TestScenario_UnknownAndReset(t *testing.T) {
	h := setupTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/scenarios/load", `{`).Code)

	loadScenario(t, h, "family-coverage")
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/scenarios/reset", "").Code)

	all, err := h.Store.ListEmployees(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, "null\n", do(t, h, http.MethodGet, "/api/scenarios/current", "").Body.String())
}

func TestListScenarios(t *testing.T) {
	h := setupTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/scenarios", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]ScenarioDTO](t, rec)
	require.Len(t, list, len(scenarios))
	for _, s := range list {
		_, ok := h.scenarioFor(s.ID)
		assert.True(t, ok, s.ID)
	}
}
