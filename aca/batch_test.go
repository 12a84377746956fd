package aca_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/aca-engine/aca"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// mixedBatch builds n employees cycling through at_risk, non_compliant,
// compliant and pending_review.
func mixedBatch(n int) aca.BatchInput {
	in := aca.BatchInput{ClientID: "acme", AsOf: asOf, Coverage: map[string]aca.CoverageData{}}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("emp-%04d", i)
		switch i % 4 {
		case 0:
			rec := fullTimeRecord(id)
			rec.HourlyRate = decPtr("10")
			in.Employees = append(in.Employees, rec)
			in.Coverage[id] = *enrolledSelfOnly("200")
		case 1:
			rec := fullTimeRecord(id)
			rec.AnnualSalary = decPtr("50000")
			in.Employees = append(in.Employees, rec)
			in.Coverage[id] = aca.CoverageData{}
		case 2:
			in.Employees = append(in.Employees, aca.EmployeeRecord{EmployeeID: id, HoursWorked: monthsOf(12, "60")})
		case 3:
			in.Employees = append(in.Employees, aca.EmployeeRecord{EmployeeID: id})
		}
	}
	return in
}

type countingRecorder struct {
	mu          sync.Mutex
	assessments map[aca.ComplianceStatus]int
	failures    map[aca.Stage]int
	batches     int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		assessments: map[aca.ComplianceStatus]int{},
		failures:    map[aca.Stage]int{},
	}
}

func (r *countingRecorder) RecordAssessment(_ int, status aca.ComplianceStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assessments[status]++
}

func (r *countingRecorder) RecordFailure(_ int, stage aca.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[stage]++
}

func (r *countingRecorder) RecordBatch(int, int, decimal.Decimal, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
}

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestAssessBatch_CountsAndExposure(t *testing.T) {
	// GIVEN: 8 employees, two of each status
	// WHEN: Running the batch
	// THEN: Counts partition the batch and exposure sums the penalties

	e := newTestEngine(t)

	result, err := e.AssessBatch(context.Background(), mixedBatch(8))
	require.NoError(t, err)

	assert.Equal(t, 8, result.TotalRecords)
	assert.Equal(t, 8, result.TotalAssessed)
	assert.Equal(t, 2, result.AtRisk)
	assert.Equal(t, 2, result.NonCompliant)
	assert.Equal(t, 2, result.Compliant)
	assert.Equal(t, 2, result.PendingReview)
	assert.Equal(t, result.TotalAssessed,
		result.Compliant+result.AtRisk+result.NonCompliant+result.PendingReview)

	// 2 * 4320 + 2 * 2880
	assert.True(t, result.AggregatePenaltyExposure.Equal(dec("14400")), "got %s", result.AggregatePenaltyExposure)
	assert.True(t, result.Penalties.Penalty4980HA.Equal(dec("5760")))
	assert.True(t, result.Penalties.Penalty4980HB.Equal(dec("8640")))
	assert.Equal(t, 2, result.Penalties.AffectedEmployeesA)
	assert.Equal(t, 2, result.Penalties.AffectedEmployeesB)
	assert.Equal(t, aca.RiskLow, result.Penalties.RiskLevel)

	sum := decimal.Zero
	for _, a := range result.Assessments {
		sum = sum.Add(a.PenaltyAmount())
	}
	assert.True(t, sum.Equal(result.AggregatePenaltyExposure))

	assert.Equal(t, "acme", result.ClientID)
	assert.Equal(t, 2026, result.TaxYear)
	assert.Equal(t, "2026-12-31", result.AsOf)
	assert.Empty(t, result.Errors)
}

func TestAssessBatch_PreservesInputOrder(t *testing.T) {
	e := newTestEngine(t, aca.WithWorkers(8), aca.WithChunkSize(7))
	in := mixedBatch(100)

	result, err := e.AssessBatch(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, result.Assessments, 100)
	for i, a := range result.Assessments {
		assert.Equal(t, in.Employees[i].EmployeeID, a.EmployeeID)
	}
}

func TestAssessBatch_Deterministic(t *testing.T) {
	// GIVEN: The same input run with different parallelism
	// THEN: Results are identical

	in := mixedBatch(64)

	serial, err := newTestEngine(t, aca.WithWorkers(1), aca.WithChunkSize(64)).AssessBatch(context.Background(), in)
	require.NoError(t, err)
	parallel, err := newTestEngine(t, aca.WithWorkers(16), aca.WithChunkSize(5)).AssessBatch(context.Background(), in)
	require.NoError(t, err)
	again, err := newTestEngine(t, aca.WithWorkers(16), aca.WithChunkSize(5)).AssessBatch(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
	assert.Equal(t, parallel, again)
}

func TestAssessBatch_EmptyBatch(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.AssessBatch(context.Background(), aca.BatchInput{ClientID: "acme", AsOf: asOf})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalRecords)
	assert.NotNil(t, result.Assessments)
	assert.True(t, result.AggregatePenaltyExposure.IsZero())
	assert.Equal(t, aca.RiskNone, result.Penalties.RiskLevel)
	assert.False(t, result.ALE.IsALE)
}

// =============================================================================
// FAILURE TESTS
// =============================================================================

func TestAssessBatch_InvalidRecordsCollected(t *testing.T) {
	// GIVEN: A batch with two invalid records among valid ones
	// THEN: They are reported with their input index and excluded from assessments

	e := newTestEngine(t)
	in := mixedBatch(4)
	in.Employees = append(in.Employees[:2],
		append([]aca.EmployeeRecord{{EmployeeID: ""}}, in.Employees[2:]...)...)
	in.Employees = append(in.Employees, aca.EmployeeRecord{EmployeeID: "bad-rate", HourlyRate: decPtr("-3")})

	result, err := e.AssessBatch(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 6, result.TotalRecords)
	assert.Equal(t, 4, result.TotalAssessed)
	require.Len(t, result.Errors, 2)

	assert.Equal(t, 2, result.Errors[0].Index)
	assert.ErrorIs(t, result.Errors[0], aca.ErrMissingEmployeeID)
	assert.Equal(t, "employee #2: validate: missing employee id", result.Errors[0].Error())

	assert.Equal(t, 5, result.Errors[1].Index)
	assert.Equal(t, "bad-rate", result.Errors[1].EmployeeID)
	assert.ErrorIs(t, result.Errors[1], aca.ErrInvalidCompensation)
}

func TestAssessBatch_MissingAsOf(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.AssessBatch(context.Background(), aca.BatchInput{ClientID: "acme"})

	assert.ErrorIs(t, err, aca.ErrMissingAsOf)
}

func TestAssessBatch_CancelledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.AssessBatch(ctx, mixedBatch(10))

	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// HOOK TESTS
// =============================================================================

func TestAssessBatch_RecorderAndProgress(t *testing.T) {
	rec := newCountingRecorder()
	var mu sync.Mutex
	var calls [][2]int
	e := newTestEngine(t,
		aca.WithRecorder(rec),
		aca.WithChunkSize(3),
		aca.WithProgress(func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, [2]int{done, total})
		}),
	)
	in := mixedBatch(8)
	in.Employees = append(in.Employees, aca.EmployeeRecord{})

	_, err := e.AssessBatch(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.assessments[aca.StatusAtRisk])
	assert.Equal(t, 2, rec.assessments[aca.StatusPendingReview])
	assert.Equal(t, 1, rec.failures[aca.StageValidate])
	assert.Equal(t, 1, rec.batches)
	assert.Equal(t, [][2]int{{3, 9}, {6, 9}, {9, 9}}, calls)
}

// =============================================================================
// ALE TESTS
// =============================================================================

func TestAssessBatch_ALESummary(t *testing.T) {
	// GIVEN: 45 full-time employees and 12 employees at 60 hours/month
	// WHEN: Summarizing ALE status
	// THEN: 12 * 60 / 120 = 6 equivalents, 51 total, an ALE

	e := newTestEngine(t)
	in := aca.BatchInput{ClientID: "acme", AsOf: asOf}
	for i := 0; i < 45; i++ {
		in.Employees = append(in.Employees, fullTimeRecord(fmt.Sprintf("ft-%02d", i)))
	}
	for i := 0; i < 12; i++ {
		in.Employees = append(in.Employees, aca.EmployeeRecord{
			EmployeeID:  fmt.Sprintf("pt-%02d", i),
			HoursWorked: monthsOf(12, "60"),
		})
	}

	result, err := e.AssessBatch(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, aca.ALESummary{
		FullTimeEmployees:   45,
		FullTimeEquivalents: 6,
		Total:               51,
		Threshold:           50,
		IsALE:               true,
	}, result.ALE)
}

func TestAssessBatch_ALEFloorsEquivalents(t *testing.T) {
	e := newTestEngine(t)
	in := aca.BatchInput{AsOf: asOf}
	// 3 * 50 = 150 hours -> 1.25 equivalents -> 1
	for i := 0; i < 3; i++ {
		in.Employees = append(in.Employees, aca.EmployeeRecord{
			EmployeeID:  fmt.Sprintf("pt-%d", i),
			HoursWorked: monthsOf(6, "50"),
		})
	}

	result, err := e.AssessBatch(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ALE.FullTimeEquivalents)
	assert.False(t, result.ALE.IsALE)
}

func TestAssessBatch_RiskLevels(t *testing.T) {
	// Each non-compliant employee carries a 2,880 exposure
	cases := []struct {
		nonCompliant int
		want         aca.RiskLevel
	}{
		{0, aca.RiskNone},
		{17, aca.RiskLow},    // 48,960
		{18, aca.RiskMedium}, // 51,840
		{86, aca.RiskMedium}, // 247,680
		{87, aca.RiskHigh},   // 250,560
	}

	e := newTestEngine(t)
	for _, tc := range cases {
		in := aca.BatchInput{AsOf: asOf, Coverage: map[string]aca.CoverageData{}}
		for i := 0; i < tc.nonCompliant; i++ {
			id := fmt.Sprintf("emp-%d", i)
			in.Employees = append(in.Employees, fullTimeRecord(id))
			in.Coverage[id] = aca.CoverageData{}
		}
		result, err := e.AssessBatch(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, result.Penalties.RiskLevel, "%d non-compliant", tc.nonCompliant)
	}
}
