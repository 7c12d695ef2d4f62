package cache

import (
	"math"
	"sort"

	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// Category table column names that are not built per dimension.
const (
	ColActualValue       = "asset_actual_value"
	ColActualTotalReturn = "asset_actual_total_return"
	ColTargetValue       = "asset_target_value"
	ColTargetTotalReturn = "asset_target_total_return"
	ColCashFlowActual    = "cashflow_actual"
	ColCashFlowTarget    = "cashflow_target"
	ColProgressRatio     = "asset_progress_ratio"
	ColActualSavingsRate = "asset_actual_savings_rate"
	ColTargetSavingsRate = "asset_target_savings_rate"
	colActualIncome      = "cashflow_actual_flow_category_" + model.FlowCategoryIncome
	colTargetIncome      = "cashflow_target_flow_category_" + model.FlowCategoryIncome
	actualPrefix         = "asset_actual_"
	targetPrefix         = "asset_target_"
	actualFlowTypePrefix = "cashflow_actual_flow_type_"
	targetFlowTypePrefix = "cashflow_target_flow_type_"
	actualFlowCatPrefix  = "cashflow_actual_flow_category_"
	targetFlowCatPrefix  = "cashflow_target_flow_category_"
)

type metric struct {
	name string
	agg  aggregation
	get  func(model.LedgerRow) float64
}

var actualMetrics = []metric{
	{"value", aggLast, func(r model.LedgerRow) float64 { return r.Value }},
	{"total_return", aggLast, func(r model.LedgerRow) float64 { return r.TotalReturn }},
	{"unrealized", aggLast, func(r model.LedgerRow) float64 { return r.Unrealized }},
	{"realized", aggSum, func(r model.LedgerRow) float64 { return r.Realized }},
	{"acquisition_cost", aggLast, func(r model.LedgerRow) float64 { return r.AcquisitionCost }},
}

var targetMetrics = []struct {
	name string
	get  func(model.TargetRow) float64
}{
	{"value", func(r model.TargetRow) float64 { return r.Value }},
	{"total_return", func(r model.TargetRow) float64 { return r.TotalReturn }},
}

// dimension returns the fixed values followed by any extra non-empty values
// seen in the data, sorted.
func dimension(fixed []string, seen map[string]bool) []string {
	out := append([]string(nil), fixed...)
	known := make(map[string]bool, len(fixed))
	for _, v := range fixed {
		known[v] = true
	}
	extra := make([]string, 0)
	for v := range seen {
		if v != "" && !known[v] {
			extra = append(extra, v)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func categoryTable(ledger []model.LedgerRow, cash []model.CashFlowRow, targets []model.TargetRow, g model.Granularity, window model.DateRange) model.CacheTable {
	seenTypes := make(map[string]bool)
	for _, r := range ledger {
		seenTypes[r.Type] = true
	}
	for _, r := range targets {
		seenTypes[r.AssetClass] = true
	}
	seenFlowTypes := make(map[string]bool)
	seenFlowCats := make(map[string]bool)
	for _, r := range cash {
		seenFlowTypes[r.FlowType] = true
		seenFlowCats[r.FlowCategory] = true
	}
	types := dimension(model.AssetTypes, seenTypes)
	flowTypes := dimension(model.FlowTypes, seenFlowTypes)
	flowCats := dimension(model.FlowCategories, seenFlowCats)

	actual := newFrame()
	for _, m := range actualMetrics {
		actual.column(actualPrefix+m.name, m.agg)
	}
	for _, t := range types {
		for _, m := range actualMetrics {
			actual.column(actualPrefix+"type_"+t+"_"+m.name, m.agg)
		}
	}
	for _, r := range ledger {
		for _, m := range actualMetrics {
			v := m.get(r)
			actual.add(r.Date, actualPrefix+m.name, v)
			actual.add(r.Date, actualPrefix+"type_"+r.Type+"_"+m.name, v)
		}
	}

	target := newFrame()
	for _, m := range targetMetrics {
		target.column(targetPrefix+m.name, aggLast)
	}
	for _, t := range types {
		for _, m := range targetMetrics {
			target.column(targetPrefix+"type_"+t+"_"+m.name, aggLast)
		}
	}
	for _, r := range targets {
		for _, m := range targetMetrics {
			v := m.get(r)
			target.add(r.Date, targetPrefix+m.name, v)
			target.add(r.Date, targetPrefix+"type_"+r.AssetClass+"_"+m.name, v)
		}
	}

	flows := newFrame()
	flows.column(ColCashFlowActual, aggSum)
	flows.column(ColCashFlowTarget, aggSum)
	for _, t := range flowTypes {
		flows.column(actualFlowTypePrefix+t, aggSum)
	}
	for _, t := range flowTypes {
		flows.column(targetFlowTypePrefix+t, aggSum)
	}
	for _, c := range flowCats {
		flows.column(actualFlowCatPrefix+c, aggSum)
	}
	for _, c := range flowCats {
		flows.column(targetFlowCatPrefix+c, aggSum)
	}
	for _, r := range cash {
		flows.add(r.Date, ColCashFlowActual, r.Actual)
		flows.add(r.Date, ColCashFlowTarget, r.Target)
		flows.add(r.Date, actualFlowTypePrefix+r.FlowType, r.Actual)
		flows.add(r.Date, targetFlowTypePrefix+r.FlowType, r.Target)
		flows.add(r.Date, actualFlowCatPrefix+r.FlowCategory, r.Actual)
		flows.add(r.Date, targetFlowCatPrefix+r.FlowCategory, r.Target)
	}

	columns := make([]string, 0, len(actual.names)+len(target.names)+len(flows.names)+3)
	columns = append(columns, actual.names...)
	columns = append(columns, target.names...)
	columns = append(columns, flows.names...)
	columns = append(columns, ColProgressRatio)
	withSavings := g != model.Daily
	if withSavings {
		columns = append(columns, ColActualSavingsRate, ColTargetSavingsRate)
	}

	table := model.CacheTable{
		Name:         TableName("category", g),
		Granularity:  g,
		KeyColumns:   []string{},
		ValueColumns: columns,
	}

	if !window.Valid() {
		return table
	}

	var prev []float64
	for p := g.PeriodStart(window.Start); !p.After(window.End); p = g.Next(p) {
		from, to := p, g.Next(p).AddDate(0, 0, -1)
		if from.Before(window.Start) {
			from = window.Start
		}
		if to.After(window.End) {
			to = window.End
		}

		values := make([]float64, 0, len(columns))
		values = append(values, actual.reduce(from, to)...)
		values = append(values, target.reduce(from, to)...)
		values = append(values, flows.reduce(from, to)...)
		col := func(name string) float64 { return values[indexOf(columns, name)] }

		values = append(values, ratio(col(ColActualValue), col(ColTargetValue)))
		if withSavings {
			actualRate, targetRate := math.NaN(), math.NaN()
			if prev != nil {
				prevCol := func(name string) float64 { return prev[indexOf(columns, name)] }
				actualRate = ratio(col(ColCashFlowActual)+col(ColActualTotalReturn)-prevCol(ColActualTotalReturn), col(colActualIncome))
				targetRate = ratio(col(ColCashFlowTarget)+col(ColTargetTotalReturn)-prevCol(ColTargetTotalReturn), col(colTargetIncome))
			}
			values = append(values, actualRate, targetRate)
		}

		table.Rows = append(table.Rows, model.CacheRow{Date: p, Keys: []string{}, Values: values})
		prev = values
	}
	return table
}

func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return math.NaN()
	}
	return num / den
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
