// Package continuity turns sparse asset snapshots into a gap-free daily ledger.
package continuity

import (
	"sort"
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/taxonomy"
)

// Stage is the name reported in errors raised by Fill.
const Stage = "continuity"

type observation struct {
	date    time.Time
	value   float64
	cost    float64
	account string
}

// Fill merges the raw snapshot feed into the prior ledger and returns a ledger
// with exactly one row per (date, asset) from each asset's first appearance
// through the latest date of the combined data.
//
// Rows dated before the prior ledger's latest date are kept as they are, except
// that raw rows replace prior rows with the same key. From that date on every
// asset is forward-filled from its last observation, and every taxonomy entry
// without a row on a date gets a zero row. Classification columns are copied
// from the taxonomy.
//
// If any identifier present on the latest date has no taxonomy entry, Fill
// returns a *apperrors.ContinuityError listing all of them and no ledger.
//
// Parameters:
//   - raw: snapshot rows produced by the extraction step for this run
//   - prior: the previously published ledger, possibly empty
//   - tax: the taxonomy snapshot for this run
//   - pensions: accrual contracts that override annuity values
//
// Returns the gap-free ledger sorted by (date, asset).
func Fill(raw []model.Snapshot, prior model.Ledger, tax *taxonomy.Taxonomy, pensions []PensionContract) (model.Ledger, error) {
	if len(raw) == 0 && prior.Len() == 0 {
		return model.Ledger{}, &apperrors.SourceDataError{Table: "snapshot"}
	}

	observations, legacy := collect(raw, prior)
	fillStart, latest := fillRange(raw, prior, observations)

	var rows []model.LedgerRow
	rows = append(rows, legacy...)

	present := make(map[string]map[string]struct{})
	mark := func(d time.Time, id string) {
		key := model.DateKey(d)
		if present[key] == nil {
			present[key] = make(map[string]struct{})
		}
		present[key][id] = struct{}{}
	}

	ids := make([]string, 0, len(observations))
	for id := range observations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rawStart := earliestRaw(raw)
	zeroStart := fillStart
	for _, id := range ids {
		obs := observations[id]

		// a backdated raw row reopens the asset's history from that date
		assetStart := fillStart
		if d, ok := rawStart[id]; ok && d.Before(assetStart) {
			assetStart = d
		}
		if assetStart.Before(zeroStart) {
			zeroStart = assetStart
		}

		// history before the fill range is kept verbatim
		for _, o := range obs {
			if o.date.Before(assetStart) {
				rows = append(rows, newRow(id, o))
				mark(o.date, id)
			}
		}

		start := obs[0].date
		if start.Before(assetStart) {
			start = assetStart
		}
		idx := 0
		for d := start; !d.After(latest); d = d.AddDate(0, 0, 1) {
			for idx+1 < len(obs) && !obs[idx+1].date.After(d) {
				idx++
			}
			carried := obs[idx]
			carried.date = d
			rows = append(rows, newRow(id, carried))
			mark(d, id)
		}
	}

	missing := tax.Missing(idsOn(rows, latest))
	if len(missing) > 0 {
		return model.Ledger{}, &apperrors.ContinuityError{Stage: Stage, Identifiers: missing}
	}

	// zero rows keep the table dense for aggregation
	registered := tax.AssetIDs()
	for d := zeroStart; !d.After(latest); d = d.AddDate(0, 0, 1) {
		seen := present[model.DateKey(d)]
		for _, id := range registered {
			if _, ok := seen[id]; ok {
				continue
			}
			rows = append(rows, model.LedgerRow{
				Date:        d,
				AssetID:     id,
				Realized:    model.Blank(),
				Unrealized:  model.Blank(),
				TotalReturn: model.Blank(),
			})
		}
	}

	for i := range rows {
		denormalize(&rows[i], tax)
	}

	accrue(rows, pensions, zeroStart)
	Sort(rows)

	return model.Ledger{Rows: rows}, nil
}

// collect indexes observations per asset. Raw rows replace prior rows that
// share a (date, asset) key. Prior rows without an identifier are returned
// separately and never filled.
func collect(raw []model.Snapshot, prior model.Ledger) (map[string][]observation, []model.LedgerRow) {
	byKey := make(map[string]map[string]observation)
	put := func(id string, o observation) {
		if byKey[id] == nil {
			byKey[id] = make(map[string]observation)
		}
		byKey[id][model.DateKey(o.date)] = o
	}

	var legacy []model.LedgerRow
	for _, r := range prior.Rows {
		if r.AssetID == "" {
			legacy = append(legacy, r)
			continue
		}
		put(r.AssetID, observation{date: model.Day(r.Date), value: r.Value, cost: r.AcquisitionCost, account: r.Account})
	}
	for _, s := range raw {
		if s.AssetID == "" {
			continue
		}
		put(s.AssetID, observation{date: model.Day(s.Date), value: s.Value, cost: s.AcquisitionCost, account: s.Account})
	}

	out := make(map[string][]observation, len(byKey))
	for id, dates := range byKey {
		obs := make([]observation, 0, len(dates))
		for _, o := range dates {
			obs = append(obs, o)
		}
		sort.Slice(obs, func(i, j int) bool { return obs[i].date.Before(obs[j].date) })
		out[id] = obs
	}
	return out, legacy
}

// fillRange returns the first date to fill (the prior ledger's latest date, or
// the earliest raw date without a prior ledger) and the latest observed date.
func fillRange(raw []model.Snapshot, prior model.Ledger, observations map[string][]observation) (time.Time, time.Time) {
	var fillStart, latest time.Time
	for _, r := range prior.Rows {
		if r.AssetID != "" && r.Date.After(fillStart) {
			fillStart = model.Day(r.Date)
		}
	}
	if fillStart.IsZero() {
		for i, s := range raw {
			if d := model.Day(s.Date); i == 0 || d.Before(fillStart) {
				fillStart = d
			}
		}
	}
	for _, obs := range observations {
		if last := obs[len(obs)-1].date; last.After(latest) {
			latest = last
		}
	}
	if latest.Before(fillStart) {
		latest = fillStart
	}
	return fillStart, latest
}

// earliestRaw returns the first raw snapshot date of every asset.
func earliestRaw(raw []model.Snapshot) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, s := range raw {
		if s.AssetID == "" {
			continue
		}
		d := model.Day(s.Date)
		if first, ok := out[s.AssetID]; !ok || d.Before(first) {
			out[s.AssetID] = d
		}
	}
	return out
}

func newRow(id string, o observation) model.LedgerRow {
	return model.LedgerRow{
		Date:            o.date,
		AssetID:         id,
		Account:         o.account,
		Value:           o.value,
		AcquisitionCost: o.cost,
		Realized:        model.Blank(),
		Unrealized:      model.Blank(),
		TotalReturn:     model.Blank(),
	}
}

func idsOn(rows []model.LedgerRow, d time.Time) []string {
	var ids []string
	for _, r := range rows {
		if r.Date.Equal(d) {
			ids = append(ids, r.AssetID)
		}
	}
	return ids
}

func denormalize(r *model.LedgerRow, tax *taxonomy.Taxonomy) {
	if r.AssetID == "" {
		return
	}
	class, ok := tax.Asset(r.AssetID)
	if !ok {
		return
	}
	r.Type = class.Type
	r.Category = class.Category
	r.Subtype = class.Subtype
	if class.Account != "" {
		r.Account = class.Account
	}
}

// Sort orders rows by date, then asset identifier. Rows without an identifier
// sort first within a date, ordered by subtype.
func Sort(rows []model.LedgerRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.AssetID != b.AssetID {
			return a.AssetID < b.AssetID
		}
		return a.Subtype < b.Subtype
	})
}
