package target

import (
	"sort"
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/taxonomy"
)

// Stage is the name reported in errors raised by this package.
const Stage = "target"

// ExpandFlows turns planned flows into signed target rows for every day of
// rng on which a flow occurs. Expense items are negative. Several flows for
// the same (date, item) are summed into one row; zero amounts produce no row.
//
// Returns a *apperrors.ContinuityError if a flow names an item the taxonomy
// does not classify.
func ExpandFlows(flows []model.PlannedFlow, tax *taxonomy.Taxonomy, rng model.DateRange) ([]model.CashFlowRow, error) {
	if !rng.Valid() {
		return nil, apperrors.ErrInvalidDateRange
	}

	var missing []string
	seen := make(map[string]struct{})
	for _, f := range flows {
		if _, ok := tax.Item(f.Item); ok {
			continue
		}
		if _, dup := seen[f.Item]; !dup {
			seen[f.Item] = struct{}{}
			missing = append(missing, f.Item)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &apperrors.ContinuityError{Stage: Stage, Identifiers: missing}
	}

	type key struct {
		date string
		item string
	}
	sums := make(map[key]float64)
	var keys []key

	for _, d := range rng.Days() {
		for _, f := range flows {
			if f.Amount == 0 || !Occurs(f, d) {
				continue
			}
			item, _ := tax.Item(f.Item)
			amount := f.Amount
			if item.FlowCategory == model.FlowCategoryExpense {
				amount = -amount
			}
			k := key{date: model.DateKey(d), item: f.Item}
			if _, ok := sums[k]; !ok {
				keys = append(keys, k)
			}
			sums[k] += amount
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].item < keys[j].item
	})

	rows := make([]model.CashFlowRow, 0, len(keys))
	for _, k := range keys {
		if sums[k] == 0 {
			continue
		}
		item, _ := tax.Item(k.item)
		d, _ := time.Parse(model.DateLayout, k.date)
		rows = append(rows, model.CashFlowRow{
			Date:         d,
			Item:         k.item,
			Target:       sums[k],
			FlowType:     item.FlowType,
			FlowCategory: item.FlowCategory,
		})
	}
	return rows, nil
}

// Occurs reports whether f has a payment on d.
func Occurs(f model.PlannedFlow, d time.Time) bool {
	d = model.Day(d)
	if f.Repeat == model.RepeatSpecificDate {
		return d.Equal(model.Day(f.Specific))
	}
	if !f.Start.IsZero() && d.Before(model.Day(f.Start)) {
		return false
	}
	if !f.End.IsZero() && d.After(model.Day(f.End)) {
		return false
	}

	switch f.Repeat {
	case model.RepeatMonthly:
		return d.Day() == f.Day
	case model.RepeatAnnually:
		return int(d.Month()) == f.Month && d.Day() == f.Day
	case model.RepeatEvery2Years:
		return int(d.Month()) == f.Month && d.Day() == f.Day && (d.Year()-f.Start.Year())%2 == 0
	case model.RepeatEvery3Years:
		return int(d.Month()) == f.Month && d.Day() == f.Day && (d.Year()-f.Start.Year())%3 == 0
	}
	return false
}
