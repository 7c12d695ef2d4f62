// Package target forward-simulates the policy ledger: the balances the
// household would hold if allocation, yields and planned cash flows went
// exactly as planned.
package target

import (
	"fmt"
	"math"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/cashflow"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// Input holds everything one simulation needs.
type Input struct {
	Rates      model.RateSchedule
	Allocation model.AllocationSchedule
	// CashFlows are signed target rows, usually from ExpandFlows.
	CashFlows []model.CashFlowRow
	// LoanItems name the cash-flow items whose targets repay the loan.
	LoanItems    []string
	InitialAsset float64
	InitialLoan  float64
	Range        model.DateRange
}

// Simulate runs the daily recursion over in.Range and returns three rows per
// day in the order safe, risky, debt.
//
// Day 0 splits InitialAsset by the allocation ratio. On each later day the
// previous total plus the previous day's net cash flow is re-split, and each
// part earns its daily yield. The emitted safe and risky values are end of
// day, so they include that day's return. The loan accrues interest at the
// step-held loan rate, is reduced by repayments and never rises above zero.
//
// Returns a *apperrors.RateScheduleError when a series cannot cover the range,
// and apperrors.ErrInvalidPolicy when InitialLoan is positive.
func Simulate(in Input) (model.TargetLedger, error) {
	if err := checkLoan(in.InitialLoan); err != nil {
		return model.TargetLedger{}, err
	}
	rng := in.Range

	riskyRatio, err := Linear(model.RateRiskyRatio, in.Allocation, rng)
	if err != nil {
		return model.TargetLedger{}, err
	}
	safeYield, err := Linear(model.RateSafeYield, in.Rates[model.RateSafeYield], rng)
	if err != nil {
		return model.TargetLedger{}, err
	}
	riskyYield, err := Linear(model.RateRiskyYield, in.Rates[model.RateRiskyYield], rng)
	if err != nil {
		return model.TargetLedger{}, err
	}
	loanRate, err := StepHold(model.RateLoan, in.Rates[model.RateLoan], rng)
	if err != nil {
		return model.TargetLedger{}, err
	}

	n := rng.Len()
	safeRatio := make([]float64, n)
	for i := range riskyRatio {
		safeRatio[i] = 1 - riskyRatio[i]
	}
	safeDaily := daily(safeYield)
	riskyDaily := daily(riskyYield)
	loanDaily := daily(loanRate)

	net := cashflow.NetTarget(in.CashFlows, rng)
	repayments := Repayments(in.CashFlows, in.LoanItems, rng)
	loan := AmortizeLoan(in.InitialLoan, loanDaily, repayments)

	asset := make([]float64, n)
	safe := make([]float64, n)
	risky := make([]float64, n)
	safeReturn := make([]float64, n)
	riskyReturn := make([]float64, n)

	asset[0] = in.InitialAsset
	safe[0] = asset[0] * safeRatio[0]
	risky[0] = asset[0] * riskyRatio[0]

	for i := 1; i < n; i++ {
		prevTotal := asset[i-1] + net[i-1]
		safe[i] = prevTotal * safeRatio[i]
		risky[i] = prevTotal * riskyRatio[i]
		safeReturn[i] = safe[i] * safeDaily[i]
		riskyReturn[i] = risky[i] * riskyDaily[i]
		asset[i] = prevTotal + safeReturn[i] + riskyReturn[i]
	}

	rows := make([]model.TargetRow, 0, n*3)
	var safeTotal, riskyTotal float64
	for i, d := range rng.Days() {
		safeTotal += safeReturn[i]
		riskyTotal += riskyReturn[i]
		rows = append(rows,
			model.TargetRow{
				Date:            d,
				AssetClass:      model.AssetTypeSafe,
				Value:           safe[i] + safeReturn[i],
				Ratio:           safeRatio[i],
				TotalReturn:     safeTotal,
				AnnualizedYield: safeDaily[i] * DaysPerYear,
			},
			model.TargetRow{
				Date:            d,
				AssetClass:      model.AssetTypeRisky,
				Value:           risky[i] + riskyReturn[i],
				Ratio:           riskyRatio[i],
				TotalReturn:     riskyTotal,
				AnnualizedYield: riskyDaily[i] * DaysPerYear,
			},
			model.TargetRow{
				Date:            d,
				AssetClass:      model.AssetTypeDebt,
				Value:           loan[i],
				Ratio:           math.NaN(),
				TotalReturn:     math.NaN(),
				AnnualizedYield: loanDaily[i] * DaysPerYear,
			},
		)
	}

	return model.TargetLedger{Rows: rows}, nil
}

// AmortizeLoan runs the loan recursion. The balance on day 0 is initial; on
// each later day it accrues dailyRates[i] and is raised by repayments[i],
// capped at zero. Both slices must be as long as the simulated range.
func AmortizeLoan(initial float64, dailyRates, repayments []float64) []float64 {
	balance := make([]float64, len(dailyRates))
	if len(balance) == 0 {
		return balance
	}
	balance[0] = initial
	for i := 1; i < len(balance); i++ {
		prev := balance[i-1]
		balance[i] = math.Min(0, prev+prev*dailyRates[i]+repayments[i])
	}
	return balance
}

// Repayments returns the positive loan repayment per day of rng. Repayment
// items are expenses, so their signed targets are negated.
func Repayments(rows []model.CashFlowRow, loanItems []string, rng model.DateRange) []float64 {
	out := cashflow.ItemTarget(rows, rng, loanItems)
	for i := range out {
		out[i] = -out[i]
	}
	return out
}

// DebtBalance computes the actual loan balance for each day of rng from the
// policy's loan rate, its initial balance and the repayment targets.
func DebtBalance(rates model.RateSchedule, rows []model.CashFlowRow, loanItems []string, initial float64, rng model.DateRange) ([]float64, error) {
	if err := checkLoan(initial); err != nil {
		return nil, err
	}
	loanRate, err := StepHold(model.RateLoan, rates[model.RateLoan], rng)
	if err != nil {
		return nil, err
	}
	return AmortizeLoan(initial, daily(loanRate), Repayments(rows, loanItems, rng)), nil
}

// checkLoan rejects a positive opening loan; debt is carried as a negative value.
func checkLoan(initial float64) error {
	if initial > 0 {
		return fmt.Errorf("%w: initial loan must be zero or negative, got %v", apperrors.ErrInvalidPolicy, initial)
	}
	return nil
}

// ApplyDebt overwrites the value of every debt row dated inside rng with the
// balance for that day. Other rows are returned unchanged.
func ApplyDebt(ledger model.Ledger, balance []float64, rng model.DateRange) model.Ledger {
	out := ledger.Clone()
	for i := range out.Rows {
		r := &out.Rows[i]
		if r.Type != model.AssetTypeDebt || !rng.Contains(r.Date) {
			continue
		}
		r.Value = balance[dayIndex(rng, r.Date)]
	}
	return out
}
