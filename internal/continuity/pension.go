package continuity

import (
	"math"
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// PensionContract describes an annuity whose value is not reported by any
// statement and is instead accrued from fixed monthly contributions.
type PensionContract struct {
	// AssetID limits the contract to one asset. Empty applies it to every
	// annuity row.
	AssetID             string
	Start               time.Time
	MonthlyContribution float64
	AnnualRate          float64
}

// Accrued returns the contract's value and paid-in principal on d.
func (c PensionContract) Accrued(d time.Time) (value, cost float64) {
	n := elapsedMonths(model.Day(c.Start), model.Day(d))
	if n <= 0 {
		return 0, 0
	}
	return FutureValue(c.AnnualRate/12, n, c.MonthlyContribution), c.MonthlyContribution * float64(n)
}

// FutureValue is the value after n periods of payment pmt made at the end of
// each period at periodic rate r.
func FutureValue(r float64, n int, pmt float64) float64 {
	if r == 0 {
		return pmt * float64(n)
	}
	return pmt * (math.Pow(1+r, float64(n)) - 1) / r
}

// elapsedMonths counts whole months from start to end.
func elapsedMonths(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	return months
}

func accrue(rows []model.LedgerRow, contracts []PensionContract, from time.Time) {
	if len(contracts) == 0 {
		return
	}
	for i := range rows {
		r := &rows[i]
		if r.Subtype != model.SubtypeAnnuity || r.Date.Before(from) {
			continue
		}
		for _, c := range contracts {
			if c.AssetID != "" && c.AssetID != r.AssetID {
				continue
			}
			r.Value, r.AcquisitionCost = c.Accrued(r.Date)
			break
		}
	}
}
