// Package cache materializes the daily, monthly and yearly rollup tables
// served to reporting.
package cache

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// Asset table columns.
var (
	AssetKeyColumns   = []string{"asset", "type", "category", "subtype", "account"}
	AssetValueColumns = []string{"value", "acquisition_cost", "realized", "unrealized", "total_return"}
)

// TableName returns the storage and export name of a cache table.
func TableName(kind string, g model.Granularity) string {
	return fmt.Sprintf("%s_cache_%s", kind, g)
}

func assetTable(rows []model.LedgerRow, g model.Granularity) model.CacheTable {
	table := model.CacheTable{
		Name:         TableName("asset", g),
		Granularity:  g,
		KeyColumns:   AssetKeyColumns,
		ValueColumns: AssetValueColumns,
	}

	if g == model.Daily {
		for _, r := range rows {
			table.Rows = append(table.Rows, assetRow(r.Date, r))
		}
		sortAssetRows(table.Rows)
		return table
	}

	type groupKey struct {
		period time.Time
		id     string
	}
	type group struct {
		first    model.LedgerRow
		last     model.LedgerRow
		realized float64
	}

	groups := make(map[groupKey]*group)
	order := make([]groupKey, 0)
	for _, r := range rows {
		id := r.AssetID
		if id == "" {
			id = "subtype:" + r.Subtype
		}
		k := groupKey{period: g.PeriodStart(r.Date), id: id}
		grp, ok := groups[k]
		if !ok {
			grp = &group{first: r, last: r}
			groups[k] = grp
			order = append(order, k)
		}
		grp.last = mergeLast(grp.last, r)
		if !math.IsNaN(r.Realized) {
			grp.realized += r.Realized
		}
	}

	for _, k := range order {
		grp := groups[k]
		row := assetRow(k.period, grp.first)
		row.Values = []float64{grp.last.Value, grp.last.AcquisitionCost, grp.realized, grp.last.Unrealized, grp.last.TotalReturn}
		table.Rows = append(table.Rows, row)
	}
	sortAssetRows(table.Rows)
	return table
}

// mergeLast keeps the most recent non-blank value of each stock column.
func mergeLast(prev, r model.LedgerRow) model.LedgerRow {
	pick := func(old, cur float64) float64 {
		if math.IsNaN(cur) {
			return old
		}
		return cur
	}
	prev.Value = pick(prev.Value, r.Value)
	prev.AcquisitionCost = pick(prev.AcquisitionCost, r.AcquisitionCost)
	prev.Unrealized = pick(prev.Unrealized, r.Unrealized)
	prev.TotalReturn = pick(prev.TotalReturn, r.TotalReturn)
	return prev
}

func assetRow(date time.Time, r model.LedgerRow) model.CacheRow {
	return model.CacheRow{
		Date:   model.Day(date),
		Keys:   []string{r.AssetID, r.Type, r.Category, r.Subtype, r.Account},
		Values: []float64{r.Value, r.AcquisitionCost, r.Realized, r.Unrealized, r.TotalReturn},
	}
}

func sortAssetRows(rows []model.CacheRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		if rows[i].Keys[0] != rows[j].Keys[0] {
			return rows[i].Keys[0] < rows[j].Keys[0]
		}
		return rows[i].Keys[3] < rows[j].Keys[3]
	})
}
