package aca_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/aca-engine/aca"
)

func TestAssessPenalty_NoOffer_4980HA(t *testing.T) {
	e := newTestEngine(t)
	fte := aca.FTEDetermination{EmployeeID: "emp-1", Status: aca.FTEFullTime}

	// Affordability is irrelevant once no offer was made
	aff := &aca.AffordabilityCalculation{IsAffordable: false, Threshold: dec("0.0912")}
	risk := e.AssessPenalty(fte, aff, aca.Code1H)

	require.NotNil(t, risk)
	assert.Equal(t, aca.Penalty4980HA, risk.PenaltyType)
	assert.True(t, risk.PotentialPenaltyAmount.Equal(dec("2880")))
	assert.Len(t, risk.MonthsAtRisk, 12)
	assert.Equal(t, "No coverage offered to full-time employee", risk.Reason)
	assert.NotEmpty(t, risk.MitigationOptions)
}

func TestAssessPenalty_Unaffordable_4980HB(t *testing.T) {
	e := newTestEngine(t)
	fte := aca.FTEDetermination{EmployeeID: "emp-1", Status: aca.FTEFullTime}
	aff := &aca.AffordabilityCalculation{IsAffordable: false, Threshold: dec("0.0912")}

	risk := e.AssessPenalty(fte, aff, aca.Code1F)

	require.NotNil(t, risk)
	assert.Equal(t, aca.Penalty4980HB, risk.PenaltyType)
	assert.True(t, risk.PotentialPenaltyAmount.Equal(dec("4320")))
	assert.Equal(t, "Coverage exceeds 9.12% affordability threshold", risk.Reason)
}

func TestAssessPenalty_NoRisk(t *testing.T) {
	e := newTestEngine(t)
	ft := aca.FTEDetermination{Status: aca.FTEFullTime}

	assert.Nil(t, e.AssessPenalty(ft, &aca.AffordabilityCalculation{IsAffordable: true}, aca.Code1F))
	assert.Nil(t, e.AssessPenalty(ft, nil, aca.Code1A))
	assert.Nil(t, e.AssessPenalty(aca.FTEDetermination{Status: aca.FTEPartTime}, nil, aca.Code1H))
}

func TestAssessPenalty_MonthsAreNotShared(t *testing.T) {
	e := newTestEngine(t)
	ft := aca.FTEDetermination{Status: aca.FTEFullTime}

	first := e.AssessPenalty(ft, nil, aca.Code1H)
	first.MonthsAtRisk[0] = 99
	second := e.AssessPenalty(ft, nil, aca.Code1H)

	assert.Equal(t, 1, second.MonthsAtRisk[0])
}
