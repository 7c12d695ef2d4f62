package model

import "time"

// Named rate series in a schedule.
const (
	RateRiskyRatio = "risky_ratio"
	RateSafeYield  = "safe_yield"
	RateRiskyYield = "risky_yield"
	RateLoan       = "loan_rate"
)

// ControlPoint is one sparse (date, value) point of a rate series.
type ControlPoint struct {
	Date  time.Time
	Value float64
}

// RateSchedule holds annual yield and loan rate control points by name.
type RateSchedule map[string][]ControlPoint

// AllocationSchedule holds the risky-asset allocation ratio control points.
type AllocationSchedule []ControlPoint

// Repeat settings for planned flows.
const (
	RepeatMonthly      = "MONTHLY"
	RepeatAnnually     = "ANNUALLY"
	RepeatEvery2Years  = "EVERY_2_YEARS"
	RepeatEvery3Years  = "EVERY_3_YEARS"
	RepeatSpecificDate = "SPECIFIC"
)

// PlannedFlow is a recurring cash flow in the policy. Amount is unsigned; the
// item's flow category decides the sign.
type PlannedFlow struct {
	Item     string
	Amount   float64
	Repeat   string
	Start    time.Time
	End      time.Time
	Month    int
	Day      int
	Specific time.Time
}

// TargetRow is one (date, asset class) row of the simulated target ledger.
// Ratio and TotalReturn are NaN for the debt row.
type TargetRow struct {
	Date            time.Time
	AssetClass      string
	Value           float64
	Ratio           float64
	TotalReturn     float64
	AnnualizedYield float64
}

// TargetLedger is the ordered target ledger, three rows per date.
type TargetLedger struct {
	Rows []TargetRow
}

// Len returns the number of rows.
func (l TargetLedger) Len() int {
	return len(l.Rows)
}
