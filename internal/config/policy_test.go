package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/config"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/profit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

const minimalPolicy = `
simulation:
  start: 2024-01-01
rates:
  risky_ratio: [{ date: 2024-01-01, value: 0.5 }]
  safe_yield: [{ date: 2024-01-01, value: 0.01 }]
  risky_yield: [{ date: 2024-01-01, value: 0.04 }]
  loan_rate: [{ date: 2024-01-01, value: 0.02 }]
`

// TestLoadPolicy tests loading the sample policy file.
//
// WHY: The policy file drives both the target simulation and the profit
// rules; every section must reach its consumer in converted form.
func TestLoadPolicy(t *testing.T) {
	// Execute
	p, err := config.LoadPolicy(filepath.Join("testdata", "policy.yaml"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-01"), p.Simulation.Start.Time)
	assert.Equal(t, 100000.0, p.Simulation.InitialAsset)
	assert.Equal(t, -50000.0, p.Simulation.InitialLoan)

	rng := p.SimulationRange(day("2024-12-31"))
	assert.Equal(t, model.NewDateRange(day("2024-01-01"), day("2024-12-31")), rng)

	alloc := p.AllocationSchedule()
	require.Len(t, alloc, 2)
	assert.Equal(t, model.ControlPoint{Date: day("2030-01-01"), Value: 0.2}, alloc[1])

	rates := p.RateSchedule()
	assert.Len(t, rates, 3)
	assert.NotContains(t, rates, model.RateRiskyRatio)
	assert.Equal(t, 0.015, rates[model.RateLoan][0].Value)

	flows := p.Flows()
	require.Len(t, flows, 4)
	assert.Equal(t, model.RepeatMonthly, flows[0].Repeat, "repeat defaults to monthly")
	assert.Equal(t, 25, flows[0].Day)
	assert.Equal(t, 4, flows[1].Month)
	assert.Equal(t, day("2026-06-30"), flows[2].Specific)
	assert.Equal(t, []string{"loan repayment"}, p.LoanItems)

	require.Len(t, p.Classification, 2)
	assert.Equal(t, "Market", p.Classification[1].Conditions[1]["description"])

	assert.Equal(t, 1500.0, p.Profit.NoiseThreshold)
	assert.Equal(t, float64(profit.DefaultMaterialityThreshold), p.Profit.MaterialityThreshold)
	assert.Equal(t, []string{"Custodian"}, p.Profit.Exclusions.UnrealizedAccounts)
	assert.NotEmpty(t, p.Profit.Deposits)

	pensions := p.PensionContracts()
	require.Len(t, pensions, 1)
	assert.Equal(t, "Private Annuity", pensions[0].AssetID)
	assert.Equal(t, day("2020-01-01"), pensions[0].Start)
}

// TestParsePolicy_Defaults tests a policy with only the required sections.
//
// WHY: A fresh household starts with rates only; profit settings must fall
// back to the documented defaults.
func TestParsePolicy_Defaults(t *testing.T) {
	p, err := config.ParsePolicy([]byte(minimalPolicy))

	require.NoError(t, err)
	assert.Equal(t, float64(profit.DefaultNoiseThreshold), p.Profit.NoiseThreshold)
	assert.Empty(t, p.Flows())
	assert.Empty(t, p.PensionContracts())
	assert.Equal(t, day("2030-06-30"), p.SimulationRange(day("2030-06-30")).End)
}

// TestParsePolicy_Invalid tests policy validation.
//
// WHY: A malformed policy must stop before any stage runs, with an error
// the operator can map to the offending key.
func TestParsePolicy_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{
			name:    "unknown key",
			doc:     minimalPolicy + "colour: blue\n",
			wantMsg: "colour",
		},
		{
			name:    "bad date",
			doc:     "simulation:\n  start: 2024-13-01\n",
			wantMsg: "invalid date",
		},
		{
			name:    "missing start",
			doc:     "rates: {}\n",
			wantMsg: "simulation.start is required",
		},
		{
			name:    "missing rate series",
			doc:     "simulation:\n  start: 2024-01-01\nrates:\n  risky_ratio: [{ date: 2024-01-01, value: 0.5 }]\n",
			wantMsg: "rates.safe_yield",
		},
		{
			name:    "ratio out of range",
			doc:     "simulation:\n  start: 2024-01-01\nrates:\n  risky_ratio: [{ date: 2024-01-01, value: 1.5 }]\n  safe_yield: [{ date: 2024-01-01, value: 0 }]\n  risky_yield: [{ date: 2024-01-01, value: 0 }]\n  loan_rate: [{ date: 2024-01-01, value: 0 }]\n",
			wantMsg: "outside [0, 1]",
		},
		{
			name:    "unknown repeat",
			doc:     minimalPolicy + "planned_flows:\n  - { item: salary, amount: 1, repeat: WEEKLY, start: 2024-01-01 }\n",
			wantMsg: `unknown repeat "WEEKLY"`,
		},
		{
			name:    "annual flow without month",
			doc:     minimalPolicy + "planned_flows:\n  - { item: tax, amount: 1, repeat: ANNUALLY, start: 2024-01-01 }\n",
			wantMsg: "month 0",
		},
		{
			name:    "specific flow without date",
			doc:     minimalPolicy + "planned_flows:\n  - { item: car, amount: 1, repeat: SPECIFIC }\n",
			wantMsg: "date is required",
		},
		{
			name:    "rule with unknown column",
			doc:     minimalPolicy + "classification:\n  - item: salary\n    conditions:\n      - { payee: ACME }\n",
			wantMsg: `unknown column "payee"`,
		},
		{
			name:    "positive loan",
			doc:     "simulation:\n  start: 2024-01-01\n  initial_loan: 10\n",
			wantMsg: "initial_loan",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.ParsePolicy([]byte(tt.doc))

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidPolicy)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := config.LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read policy file")
}
