// Package cashflow builds the gap-free (date × item) cash-flow ledger from the
// raw transaction export and the expanded policy targets.
package cashflow

import (
	"sort"
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/taxonomy"
)

// Stage is the name reported in errors raised by Build.
const Stage = "cashflow"

// PointsItem receives the daily change of loyalty point balances.
const PointsItem = "points"

type cell struct {
	actual float64
	target float64
}

// Build classifies transactions with rules and returns one row per day of rng
// for every item in the taxonomy. Actual amounts are the signed sums of the
// matched transactions; target amounts come from targets, which are already
// signed. Transactions outside rng or matching no rule are ignored.
//
// When the taxonomy has a PointsItem entry, the day-over-day change of the
// total value of points assets in ledger is added to that item's actual amount.
//
// Returns a *apperrors.ContinuityError if a rule or target names an item that
// the taxonomy does not classify.
func Build(
	txns []model.Transaction,
	rules []Rule,
	tax *taxonomy.Taxonomy,
	targets []model.CashFlowRow,
	rng model.DateRange,
	ledger model.Ledger,
) (model.CashFlowLedger, error) {
	if !rng.Valid() {
		return model.CashFlowLedger{}, apperrors.ErrInvalidDateRange
	}
	if err := unclassifiedItems(rules, targets, tax); err != nil {
		return model.CashFlowLedger{}, err
	}

	cells := make(map[string]map[string]*cell)
	at := func(d time.Time, item string) *cell {
		key := model.DateKey(d)
		if cells[key] == nil {
			cells[key] = make(map[string]*cell)
		}
		c := cells[key][item]
		if c == nil {
			c = &cell{}
			cells[key][item] = c
		}
		return c
	}

	for _, t := range txns {
		if !rng.Contains(t.Date) {
			continue
		}
		item, ok := Classify(rules, t)
		if !ok {
			continue
		}
		at(t.Date, item).actual += t.Amount
	}

	for _, t := range targets {
		if rng.Contains(t.Date) {
			at(t.Date, t.Item).target += t.Target
		}
	}

	if _, ok := tax.Item(PointsItem); ok {
		for d, change := range pointsChange(ledger, rng) {
			at(d, PointsItem).actual += change
		}
	}

	items := tax.Items()
	rows := make([]model.CashFlowRow, 0, rng.Len()*len(items))
	for _, d := range rng.Days() {
		byItem := cells[model.DateKey(d)]
		for _, it := range items {
			row := model.CashFlowRow{
				Date:         d,
				Item:         it.Item,
				FlowType:     it.FlowType,
				FlowCategory: it.FlowCategory,
			}
			if c := byItem[it.Item]; c != nil {
				row.Actual = c.actual
				row.Target = c.target
			}
			rows = append(rows, row)
		}
	}

	return model.CashFlowLedger{Rows: rows}, nil
}

// pointsChange returns the day-over-day change in total points value. The
// first day in the ledger has no change.
func pointsChange(ledger model.Ledger, rng model.DateRange) map[time.Time]float64 {
	totals := make(map[time.Time]float64)
	for _, r := range ledger.Rows {
		if r.Subtype == model.SubtypePoints {
			totals[model.Day(r.Date)] += r.Value
		}
	}
	if len(totals) == 0 {
		return nil
	}

	dates := make([]time.Time, 0, len(totals))
	for d := range totals {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make(map[time.Time]float64)
	for i := 1; i < len(dates); i++ {
		if rng.Contains(dates[i]) {
			out[dates[i]] = totals[dates[i]] - totals[dates[i-1]]
		}
	}
	return out
}

// NetTarget returns the net signed target per day of rng.
func NetTarget(rows []model.CashFlowRow, rng model.DateRange) []float64 {
	return sumByDay(rows, rng, func(model.CashFlowRow) bool { return true })
}

// ItemTarget returns the summed target of the given items per day of rng.
func ItemTarget(rows []model.CashFlowRow, rng model.DateRange, items []string) []float64 {
	want := make(map[string]struct{}, len(items))
	for _, it := range items {
		want[it] = struct{}{}
	}
	return sumByDay(rows, rng, func(r model.CashFlowRow) bool {
		_, ok := want[r.Item]
		return ok
	})
}

func sumByDay(rows []model.CashFlowRow, rng model.DateRange, keep func(model.CashFlowRow) bool) []float64 {
	out := make([]float64, rng.Len())
	for _, r := range rows {
		if !rng.Contains(r.Date) || !keep(r) {
			continue
		}
		out[int(model.Day(r.Date).Sub(rng.Start).Hours()/24)] += r.Target
	}
	return out
}
